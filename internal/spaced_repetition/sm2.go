// Package spaced_repetition implements the SM-2 baseline scheduler: the
// non-ML interval-selection method ml predictions are compared against.
package spaced_repetition

// Quality grades one recall attempt on the SM-2 0-5 scale.
type Quality int

const (
	// QualityBlackout: complete blackout, unable to recall.
	QualityBlackout Quality = 0
	// QualityIncorrect: wrong, but remembered upon seeing the answer.
	QualityIncorrect Quality = 1
	// QualityIncorrectFamiliar: wrong, but the answer felt familiar.
	QualityIncorrectFamiliar Quality = 2
	// QualityCorrectDifficult: correct with significant effort.
	QualityCorrectDifficult Quality = 3
	// QualityCorrectHesitation: correct after some hesitation.
	QualityCorrectHesitation Quality = 4
	// QualityPerfect: immediate correct response.
	QualityPerfect Quality = 5
)

// Response-time thresholds for grading a successful recall.
const (
	fastResponseMs = 5000
	slowResponseMs = 15000
)

// QualityFromReview grades a binary recall outcome by response speed. A
// failed recall is never better than QualityIncorrect.
func QualityFromReview(recalled bool, responseTimeMs int) Quality {
	if !recalled {
		return QualityIncorrect
	}
	switch {
	case responseTimeMs > 0 && responseTimeMs <= fastResponseMs:
		return QualityPerfect
	case responseTimeMs > 0 && responseTimeMs <= slowResponseMs:
		return QualityCorrectHesitation
	default:
		return QualityCorrectDifficult
	}
}

// State is the per-item SM-2 scheduling state.
type State struct {
	Interval    int     // current interval, days
	Easiness    float64 // SM-2 easiness factor
	Repetitions int     // successful reviews in a row since the last reset
}

// DefaultState is the state of a never-reviewed item.
func DefaultState() State {
	return State{Interval: 1, Easiness: 2.5, Repetitions: 0}
}

// Scheduler holds the SM-2 tuning knobs.
type Scheduler struct {
	// PassThreshold is the lowest quality counted as a successful recall.
	PassThreshold Quality
	// MaxInterval caps the computed interval, in days.
	MaxInterval int
	// InitialIntervals are the fixed intervals for the first successful
	// repetitions, before the multiplicative formula takes over.
	InitialIntervals []int
	// MinEasiness is the floor of the easiness factor.
	MinEasiness float64
}

// NewScheduler returns a Scheduler with the standard tuning.
func NewScheduler() *Scheduler {
	return &Scheduler{
		PassThreshold:    QualityCorrectDifficult,
		MaxInterval:      365,
		InitialIntervals: []int{1, 2, 3, 7, 10, 15, 20, 30},
		MinEasiness:      1.3,
	}
}

// Next applies one graded review to the state and returns the updated state.
// The easiness factor moves by the SM-2 update
//
//	EF' = EF + 0.1 - (5-q)*(0.08 + (5-q)*0.02)
//
// floored at MinEasiness. A passing quality advances the repetition ladder;
// a failing one resets the interval to one day.
func (s *Scheduler) Next(st State, q Quality) State {
	shift := float64(QualityPerfect - q)
	easiness := st.Easiness + 0.1 - shift*(0.08+shift*0.02)
	if easiness < s.MinEasiness {
		easiness = s.MinEasiness
	}

	if q < s.PassThreshold {
		return State{Interval: 1, Easiness: easiness, Repetitions: 0}
	}

	repetitions := st.Repetitions + 1
	var interval int
	if repetitions <= len(s.InitialIntervals) {
		interval = s.InitialIntervals[repetitions-1]
	} else {
		interval = int(float64(st.Interval) * easiness)
	}
	if interval > s.MaxInterval {
		interval = s.MaxInterval
	}
	return State{Interval: interval, Easiness: easiness, Repetitions: repetitions}
}

// NextInterval grades one binary review outcome and returns the updated
// state. Convenience wrapper over QualityFromReview and Next.
func (s *Scheduler) NextInterval(st State, recalled bool, responseTimeMs int) State {
	return s.Next(st, QualityFromReview(recalled, responseTimeMs))
}
