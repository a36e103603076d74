package models

// PredictedInterval is the resolved output of one pipeline run: the interval
// to use plus provenance. Immutable once attached to a review event.
type PredictedInterval struct {
	Interval         int    `json:"interval"` // Days, always >= 1
	AlgorithmUsed    string `json:"algorithm_used"`
	MLInterval       int    `json:"ml_interval"`
	BaselineInterval int    `json:"baseline_interval"`
}
