// Package model defines the regression capability consumed by the
// prediction pipeline, plus the concrete inference backends that provide it.
package model

// Model maps one normalized feature vector to the raw predicted interval in
// days, pre-rounding. Implementations must be deterministic for a fixed
// model and fixed input, must not mutate or retain the input slice, and
// return whatever scalar the underlying regression produces; finiteness is
// enforced by the pipeline, not here.
type Model interface {
	Predict(normalized []float64) (float64, error)
}
