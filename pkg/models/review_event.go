package models

import "time"

// Values of ReviewEvent.AlgorithmUsed.
const (
	AlgorithmBaseline = "baseline"
	AlgorithmML       = "ml"
)

// ReviewEvent is one entry in an item's ordered review history. History order
// is (reviewed_at, id) ascending; prefix computations depend on that order.
type ReviewEvent struct {
	ID               int64     `json:"id" db:"id"`
	ItemID           int64     `json:"item_id" db:"item_id"`
	Recalled         bool      `json:"recalled" db:"recalled"`
	ResponseTimeMs   int       `json:"response_time_ms" db:"response_time_ms"`
	IntervalUsed     int       `json:"interval_used" db:"interval_used"` // Days until the next review
	AlgorithmUsed    string    `json:"algorithm_used" db:"algorithm_used"`
	MLInterval       *int      `json:"ml_interval" db:"ml_interval"`             // Set once converted to ml
	BaselineInterval *int      `json:"baseline_interval" db:"baseline_interval"` // Original interval retained on conversion
	ReviewedAt       time.Time `json:"reviewed_at" db:"reviewed_at"`
}
