package features

import (
	"errors"
	"fmt"
	"math"

	"github.com/example/recallml/pkg/models"
)

// Widths of the two feature layouts understood by the system.
const (
	BaseCount = 8  // directly observed statistics
	Count     = 51 // full derived vector
)

// ErrNotFinite reports a base feature carrying NaN or an infinity.
var ErrNotFinite = errors.New("features: non-finite base feature")

// ErrNegativeCount reports a negative review or streak count.
var ErrNegativeCount = errors.New("features: negative count")

// BaseFeatureSet holds the eight observed statistics describing one review
// event at prediction time. AverageResponseTime is in milliseconds as
// recorded; extraction converts it to seconds.
type BaseFeatureSet struct {
	MemoryStrength      float64 // days-equivalent trace strength, >= 0
	DifficultyRating    float64 // 0-1, higher is harder
	TimeSinceLastReview float64 // days, >= 0
	SuccessRate         float64 // 0-1
	AverageResponseTime float64 // milliseconds, > 0
	TotalReviews        int
	ConsecutiveCorrect  int
	TimeOfDay           float64 // fraction of a day, [0,1)
}

// Validate reports whether every field is usable: float fields must be
// finite and counts non-negative. It fails fast instead of substituting
// defaults. Out-of-range but finite values are not rejected here; the
// extractor's guards absorb those.
func (b BaseFeatureSet) Validate() error {
	floats := []struct {
		name string
		v    float64
	}{
		{"memoryStrength", b.MemoryStrength},
		{"difficultyRating", b.DifficultyRating},
		{"timeSinceLastReview", b.TimeSinceLastReview},
		{"successRate", b.SuccessRate},
		{"averageResponseTime", b.AverageResponseTime},
		{"timeOfDay", b.TimeOfDay},
	}
	for _, f := range floats {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s", ErrNotFinite, f.name)
		}
	}
	if b.TotalReviews < 0 {
		return fmt.Errorf("%w: totalReviews", ErrNegativeCount)
	}
	if b.ConsecutiveCorrect < 0 {
		return fmt.Errorf("%w: consecutiveCorrect", ErrNegativeCount)
	}
	return nil
}

// Vector returns the base features as an ordered 8-element vector, the
// layout used by the simplified model variant. Response time is converted
// to seconds, matching its representation inside the derived vector.
func (b BaseFeatureSet) Vector() []float64 {
	return []float64{
		b.MemoryStrength,
		b.DifficultyRating,
		b.TimeSinceLastReview,
		b.SuccessRate,
		b.AverageResponseTime / 1000,
		float64(b.TotalReviews),
		float64(b.ConsecutiveCorrect),
		b.TimeOfDay,
	}
}

// FromReview derives the base set for one stored review event from its item
// and the strict prefix of history before that event. The caller must slice
// the prefix so it contains only events ordered before the target; success
// rate and counts are computed over earlier events alone, never the current
// or later ones.
func FromReview(item models.Item, prefix []models.ReviewEvent, event models.ReviewEvent) BaseFeatureSet {
	correct := 0
	for _, r := range prefix {
		if r.Recalled {
			correct++
		}
	}
	successRate := 0.0
	if len(prefix) > 0 {
		successRate = float64(correct) / float64(len(prefix))
	}

	memoryStrength := float64(event.IntervalUsed)
	if event.IntervalUsed <= 0 {
		memoryStrength = 1
	}
	responseTime := float64(event.ResponseTimeMs)
	if event.ResponseTimeMs <= 0 {
		responseTime = 2000
	}
	timeOfDay := 0.5
	if !event.ReviewedAt.IsZero() {
		timeOfDay = float64(event.ReviewedAt.UTC().Hour()) / 24
	}

	return BaseFeatureSet{
		MemoryStrength:      memoryStrength,
		DifficultyRating:    1 - successRate,
		TimeSinceLastReview: 0, // elapsed time is not reconstructed from stored history
		SuccessRate:         successRate,
		AverageResponseTime: responseTime,
		TotalReviews:        len(prefix),
		ConsecutiveCorrect:  item.ConsecutiveCorrect,
		TimeOfDay:           timeOfDay,
	}
}
