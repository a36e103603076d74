// Package norm applies persisted z-score normalization to feature vectors.
package norm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Epsilon keeps the divisor strictly positive for zero-variance features.
const Epsilon = 1e-8

var (
	// ErrWidthMismatch reports stats whose length does not match the
	// feature layout the pipeline was built for. This is a configuration
	// error; the process must not serve predictions with mismatched stats.
	ErrWidthMismatch = errors.New("norm: stats width mismatch")

	// ErrMalformedStats reports a stats document that does not carry two
	// same-length non-empty arrays.
	ErrMalformedStats = errors.New("norm: malformed stats")
)

// Stats is the persisted per-feature mean and standard deviation, written
// once by the training side and read-only afterwards.
type Stats struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// Width returns the number of features the stats describe.
func (s Stats) Width() int { return len(s.Mean) }

// LoadStats reads and shape-checks a stats document.
func LoadStats(path string) (Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Stats{}, fmt.Errorf("norm: read stats: %w", err)
	}
	var s Stats
	if err := json.Unmarshal(data, &s); err != nil {
		return Stats{}, fmt.Errorf("norm: decode stats: %w", err)
	}
	if len(s.Mean) == 0 || len(s.Mean) != len(s.Std) {
		return Stats{}, fmt.Errorf("%w: mean length %d, std length %d",
			ErrMalformedStats, len(s.Mean), len(s.Std))
	}
	return s, nil
}

// Normalizer applies z-score scaling with an immutable copy of the stats.
// Safe for concurrent use.
type Normalizer struct {
	mean []float64
	std  []float64
}

// New validates the stats against the expected feature width and returns a
// Normalizer holding private copies of them. Width validation happens here,
// once, so that a mismatch fails at startup rather than per call.
func New(s Stats, width int) (*Normalizer, error) {
	if len(s.Mean) != width || len(s.Std) != width {
		return nil, fmt.Errorf("%w: mean %d, std %d, want %d",
			ErrWidthMismatch, len(s.Mean), len(s.Std), width)
	}
	return &Normalizer{
		mean: append([]float64(nil), s.Mean...),
		std:  append([]float64(nil), s.Std...),
	}, nil
}

// Width returns the feature width the Normalizer was built for.
func (n *Normalizer) Width() int { return len(n.mean) }

// Normalize returns (vec[i] - mean[i]) / (std[i] + Epsilon) element-wise in
// a fresh slice. The input is never mutated.
func (n *Normalizer) Normalize(vec []float64) ([]float64, error) {
	if len(vec) != len(n.mean) {
		return nil, fmt.Errorf("%w: vector length %d, stats width %d",
			ErrWidthMismatch, len(vec), len(n.mean))
	}
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = (v - n.mean[i]) / (n.std[i] + Epsilon)
	}
	return out, nil
}
