package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// ErrMalformedWeights reports a weights document whose layer shapes or
// activations do not form a valid network.
var ErrMalformedWeights = errors.New("model: malformed weights")

// ErrInputWidth reports an input vector that does not match the network's
// input layer.
var ErrInputWidth = errors.New("model: input width mismatch")

// weightsDocument is the on-disk form of a trained network: dense layers in
// forward order, weights indexed [output][input]. Batch normalization and
// dropout from training are folded away at export time, so inference is a
// plain affine chain with activations.
type weightsDocument struct {
	Version string       `json:"version"`
	Layers  []denseLayer `json:"layers"`
}

type denseLayer struct {
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
	Activation string      `json:"activation"` // relu, softplus or linear
}

// MLP is a feed-forward regression network loaded from a weights document.
// The weights are never mutated after load, so a single MLP is safe for
// concurrent use.
type MLP struct {
	version string
	layers  []denseLayer
	inWidth int
}

// LoadMLP reads a weights document and builds the network.
func LoadMLP(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("model: read weights: %w", err)
	}
	var doc weightsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("model: decode weights: %w", err)
	}
	return newMLP(doc)
}

func newMLP(doc weightsDocument) (*MLP, error) {
	if len(doc.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrMalformedWeights)
	}
	width := 0
	for i, layer := range doc.Layers {
		if len(layer.Weights) == 0 {
			return nil, fmt.Errorf("%w: layer %d has no units", ErrMalformedWeights, i)
		}
		in := len(layer.Weights[0])
		if in == 0 {
			return nil, fmt.Errorf("%w: layer %d has zero-width units", ErrMalformedWeights, i)
		}
		for j, row := range layer.Weights {
			if len(row) != in {
				return nil, fmt.Errorf("%w: layer %d unit %d ragged", ErrMalformedWeights, i, j)
			}
		}
		if len(layer.Bias) != len(layer.Weights) {
			return nil, fmt.Errorf("%w: layer %d bias length %d for %d units",
				ErrMalformedWeights, i, len(layer.Bias), len(layer.Weights))
		}
		switch layer.Activation {
		case "relu", "softplus", "linear":
		default:
			return nil, fmt.Errorf("%w: layer %d unknown activation %q",
				ErrMalformedWeights, i, layer.Activation)
		}
		if i == 0 {
			width = in
		} else if in != len(doc.Layers[i-1].Weights) {
			return nil, fmt.Errorf("%w: layer %d expects %d inputs, previous layer emits %d",
				ErrMalformedWeights, i, in, len(doc.Layers[i-1].Weights))
		}
	}
	last := doc.Layers[len(doc.Layers)-1]
	if len(last.Weights) != 1 {
		return nil, fmt.Errorf("%w: output layer has %d units, want 1",
			ErrMalformedWeights, len(last.Weights))
	}
	return &MLP{version: doc.Version, layers: doc.Layers, inWidth: width}, nil
}

// InputWidth returns the width of the network's input layer.
func (m *MLP) InputWidth() int { return m.inWidth }

// Version returns the version string carried by the weights document.
func (m *MLP) Version() string { return m.version }

// Predict runs the forward pass and returns the single output unit.
func (m *MLP) Predict(normalized []float64) (float64, error) {
	if len(normalized) != m.inWidth {
		return 0, fmt.Errorf("%w: got %d, want %d", ErrInputWidth, len(normalized), m.inWidth)
	}
	act := normalized
	for _, layer := range m.layers {
		next := make([]float64, len(layer.Weights))
		for j, row := range layer.Weights {
			sum := layer.Bias[j]
			for i, w := range row {
				sum += w * act[i]
			}
			next[j] = activate(layer.Activation, sum)
		}
		act = next
	}
	return act[0], nil
}

func activate(kind string, x float64) float64 {
	switch kind {
	case "relu":
		if x < 0 {
			return 0
		}
		return x
	case "softplus":
		// log1p(exp(x)) overflows for large x where softplus(x) == x anyway.
		if x > 30 {
			return x
		}
		return math.Log1p(math.Exp(x))
	default: // linear
		return x
	}
}
