// Package predictor wires the prediction pipeline together: feature
// extraction, normalization, model inference and interval resolution.
package predictor

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/example/recallml/internal/features"
	"github.com/example/recallml/internal/model"
	"github.com/example/recallml/internal/norm"
	"github.com/example/recallml/pkg/models"
)

// Model-error conditions. Both mean the regression produced garbage; they
// are surfaced distinctly and never masked by the clamp path.
var (
	ErrNonFiniteOutput = errors.New("predictor: non-finite model output")
	ErrNegativeOutput  = errors.New("predictor: negative model output")
)

// ResolveInterval clamps a valid raw prediction to a usable review interval:
// round half away from zero, then floor at one day. Negative and non-finite
// values are model errors, not small predictions, and are rejected instead
// of floored.
func ResolveInterval(raw float64) (int, error) {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0, ErrNonFiniteOutput
	}
	if raw < 0 {
		return 0, ErrNegativeOutput
	}
	interval := int(math.Round(raw))
	if interval < 1 {
		interval = 1
	}
	return interval, nil
}

// Predictor runs the full pipeline for one review event. It is safe for
// concurrent use: the normalizer is immutable and model implementations are
// stateless per call.
type Predictor struct {
	normalizer *norm.Normalizer
	model      model.Model
	log        *zap.Logger
}

// New builds a Predictor. The normalizer must be sized for the full derived
// layout; a mismatch is a wiring error reported here, at construction, not
// at prediction time.
func New(n *norm.Normalizer, m model.Model, log *zap.Logger) (*Predictor, error) {
	if n.Width() != features.Count {
		return nil, fmt.Errorf("%w: normalizer width %d, pipeline needs %d",
			norm.ErrWidthMismatch, n.Width(), features.Count)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Predictor{normalizer: n, model: m, log: log}, nil
}

// Predict runs base set → derived vector → normalization → inference →
// resolution and returns the interval with ml provenance. BaselineInterval
// is left for the caller that attaches the result to a history record, since
// only that caller knows the interval being replaced.
func (p *Predictor) Predict(base features.BaseFeatureSet) (models.PredictedInterval, error) {
	vec, err := features.Extract(base)
	if err != nil {
		return models.PredictedInterval{}, err
	}
	normalized, err := p.normalizer.Normalize(vec)
	if err != nil {
		return models.PredictedInterval{}, err
	}
	raw, err := p.model.Predict(normalized)
	if err != nil {
		return models.PredictedInterval{}, fmt.Errorf("predictor: inference: %w", err)
	}
	interval, err := ResolveInterval(raw)
	if err != nil {
		p.log.Error("model produced unusable prediction",
			zap.Float64("raw", raw),
			zap.Error(err))
		return models.PredictedInterval{}, err
	}
	p.log.Debug("resolved interval",
		zap.Float64("raw", raw),
		zap.Int("interval", interval))
	return models.PredictedInterval{
		Interval:      interval,
		AlgorithmUsed: models.AlgorithmML,
		MLInterval:    interval,
	}, nil
}
