package database

import (
	"fmt"

	"github.com/example/recallml/pkg/models"
)

// AlgorithmStat aggregates stored review events by scheduling algorithm
type AlgorithmStat struct {
	Algorithm    string  `db:"algorithm_used" json:"algorithm"`
	Events       int     `db:"events" json:"events"`
	MeanInterval float64 `db:"mean_interval" json:"meanInterval"`
}

// ConversionStats summarizes all ml-converted events currently stored
type ConversionStats struct {
	Converted            int     `db:"converted" json:"converted"`
	AgreementRate        float64 `db:"agreement_rate" json:"agreementRate"`
	MeanMLInterval       float64 `db:"mean_ml_interval" json:"meanMlInterval"`
	MeanBaselineInterval float64 `db:"mean_baseline_interval" json:"meanBaselineInterval"`
}

// StatsRepository reports aggregate statistics over stored history
type StatsRepository struct{}

// NewStatsRepository creates a new repository instance
func NewStatsRepository() *StatsRepository {
	return &StatsRepository{}
}

// AlgorithmSummary returns event counts and mean intervals per algorithm
func (r *StatsRepository) AlgorithmSummary() ([]AlgorithmStat, error) {
	var stats []AlgorithmStat
	err := DB.Select(&stats, `
		SELECT
			algorithm_used,
			COUNT(*) AS events,
			AVG(interval_used) AS mean_interval
		FROM review_events
		GROUP BY algorithm_used
		ORDER BY algorithm_used
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to get algorithm summary: %v", err)
	}
	return stats, nil
}

// ConversionSummary returns how converted intervals compare to the baseline
// intervals they replaced. Agreement counts exact interval matches.
func (r *StatsRepository) ConversionSummary() (*ConversionStats, error) {
	var stats ConversionStats
	err := DB.Get(&stats, `
		SELECT
			COUNT(*) AS converted,
			COALESCE(AVG(CASE WHEN ml_interval = baseline_interval THEN 1.0 ELSE 0.0 END), 0) AS agreement_rate,
			COALESCE(AVG(ml_interval), 0) AS mean_ml_interval,
			COALESCE(AVG(baseline_interval), 0) AS mean_baseline_interval
		FROM review_events
		WHERE algorithm_used = $1 AND ml_interval IS NOT NULL
	`, models.AlgorithmML)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversion summary: %v", err)
	}
	return &stats, nil
}
