package features

import "math"

// decayCap bounds the decay exponent before exponentiation. Beyond 50 the
// forgetting terms are below 2e-22 and indistinguishable from zero, while
// extreme time/strength ratios would otherwise underflow on bulk data.
const decayCap = 50.0

// Extract expands the base set into the derived 51-element vector. The
// layout, by index range:
//
//	[0:8]   base statistics (averageResponseTime in seconds)
//	[8:13]  forgetting curve: forgettingCurve, adjustedDecay, logTimeDecay,
//	        logMemoryStrength, decayRate
//	[13:23] interaction products and ratios
//	[23:32] polynomial terms
//	[32:37] cyclical time-of-day encoding
//	[37:46] trend and momentum approximations
//	[46:51] retention estimates
//
// Extraction is pure: no I/O, no mutation of b, and bit-identical output for
// identical input. The only error is a validation failure on b.
func Extract(b BaseFeatureSet) ([]float64, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	ms := b.MemoryStrength
	dr := b.DifficultyRating
	ts := b.TimeSinceLastReview
	sr := b.SuccessRate
	art := b.AverageResponseTime / 1000 // seconds
	tr := float64(b.TotalReviews)
	cc := float64(b.ConsecutiveCorrect)
	tod := b.TimeOfDay

	// Forgetting curve. decayRate is emitted uncapped; the exponentials use
	// the capped value.
	decayRate := ts / math.Max(ms, 0.1)
	capped := math.Min(decayRate, decayCap)
	forgettingCurve := math.Exp(-capped)
	learnerStrength := math.Max(0.1, sr*2)
	adjustedDecay := math.Exp(-capped / learnerStrength)
	logTimeDecay := math.Log1p(math.Max(0, decayRate))
	logMemoryStrength := math.Log1p(ms)

	// Interaction. Ratios over difficulty fall back to the bare numerator
	// when difficulty is zero.
	consecutiveDifficultyRatio := cc
	experienceDifficultyRatio := tr
	if dr > 0 {
		consecutiveDifficultyRatio = cc / dr
		experienceDifficultyRatio = tr / (dr + 1)
	}

	// Polynomial. Inverse strength is 0 for zero strength; inverse
	// difficulty saturates at 100 for near-zero difficulty.
	inverseMemoryStrength := 0.0
	if ms > 0 {
		inverseMemoryStrength = 1 / ms
	}
	inverseDifficulty := 100.0
	if dr > 0.01 {
		inverseDifficulty = 1 / dr
	}

	// Cyclical encoding of time of day, plus quarter-day indicators.
	radians := tod * 2 * math.Pi
	timeOfDaySin := math.Sin(radians)
	timeOfDayCos := math.Cos(radians)
	isMorning := indicator(tod >= 0.25 && tod < 0.5)
	isAfternoon := indicator(tod >= 0.5 && tod < 0.75)
	isEvening := indicator(tod >= 0.75 || tod < 0.25)

	// Moving-average and momentum terms degrade to instantaneous values
	// when no windowed history is available: current rates stand in for
	// recent ones and the trend terms are zero. These are documented
	// approximations, not true moving-window statistics.
	recentSuccessRate := sr
	recentAvgResponseTime := art
	performanceTrend := 0.0
	difficultyTrend := 0.0
	velocityTrend := 0.0
	learningMomentum := 0.0
	streakStrength := cc / math.Sqrt(math.Max(1, tr))
	performanceAcceleration := 0.0
	masteryLevel := sr * (1 - math.Abs(recentSuccessRate-sr))

	// Retention estimates.
	//
	//	stability      = log1p(consecutiveCorrect) * log1p(memoryStrength)
	//	retrievability = forgettingCurve * (1 - difficulty)
	//
	// learningEfficiency is 0 for a first review rather than a division by
	// log1p(0).
	stability := math.Log1p(cc) * math.Log1p(ms)
	retrievability := forgettingCurve * (1 - dr)
	learningEfficiency := 0.0
	if tr > 0 {
		learningEfficiency = sr / math.Log1p(tr)
	}
	retentionProbability := math.Min(1, retrievability*(1+stability*0.1))
	optimalIntervalEstimate := math.Max(1, ms*math.Abs(math.Log(0.9))*(1+stability*0.1))

	return []float64{
		// Base (8)
		ms, dr, ts, sr, art, tr, cc, tod,
		// Forgetting curve (5)
		forgettingCurve, adjustedDecay, logTimeDecay, logMemoryStrength, decayRate,
		// Interaction (10)
		dr * ts, dr * ms, sr * ms, sr * ts,
		art * dr, art * ms, cc * ms,
		consecutiveDifficultyRatio, tr * sr, experienceDifficultyRatio,
		// Polynomial (9)
		ms * ms, dr * dr, ts * ts, sr * sr,
		ms * ms * ms, math.Sqrt(math.Max(0, ms)), math.Sqrt(math.Max(0, tr)),
		inverseMemoryStrength, inverseDifficulty,
		// Cyclical time (5)
		timeOfDaySin, timeOfDayCos, isMorning, isAfternoon, isEvening,
		// Moving average (5)
		recentSuccessRate, recentAvgResponseTime, performanceTrend,
		difficultyTrend, velocityTrend,
		// Momentum (4)
		learningMomentum, streakStrength, performanceAcceleration, masteryLevel,
		// Retention (5)
		stability, retrievability, learningEfficiency, retentionProbability,
		optimalIntervalEstimate,
	}, nil
}

func indicator(cond bool) float64 {
	if cond {
		return 1
	}
	return 0
}
