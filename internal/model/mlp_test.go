package model

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func twoLayerDoc() weightsDocument {
	return weightsDocument{
		Version: "t1",
		Layers: []denseLayer{
			{
				Weights:    [][]float64{{1, -1}, {0.5, 2}},
				Bias:       []float64{0, -1},
				Activation: "relu",
			},
			{
				Weights:    [][]float64{{2, 1}},
				Bias:       []float64{0.25},
				Activation: "linear",
			},
		},
	}
}

func TestMLPForward(t *testing.T) {
	m, err := newMLP(twoLayerDoc())
	if err != nil {
		t.Fatalf("newMLP: %v", err)
	}
	if m.InputWidth() != 2 {
		t.Fatalf("InputWidth = %d, want 2", m.InputWidth())
	}

	// Hidden: relu(1*1 - 1*2 + 0) = 0, relu(0.5*1 + 2*2 - 1) = 3.5.
	// Output: 2*0 + 1*3.5 + 0.25 = 3.75.
	got, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(got-3.75) > 1e-12 {
		t.Fatalf("Predict = %v, want 3.75", got)
	}

	again, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != again {
		t.Fatalf("Predict not deterministic: %v vs %v", got, again)
	}

	if _, err := m.Predict([]float64{1, 2, 3}); !errors.Is(err, ErrInputWidth) {
		t.Fatalf("Predict wide input = %v, want ErrInputWidth", err)
	}
}

func TestMLPSoftplus(t *testing.T) {
	m, err := newMLP(weightsDocument{
		Layers: []denseLayer{{
			Weights:    [][]float64{{1}},
			Bias:       []float64{0},
			Activation: "softplus",
		}},
	})
	if err != nil {
		t.Fatalf("newMLP: %v", err)
	}

	got, err := m.Predict([]float64{0})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(got-math.Ln2) > 1e-12 {
		t.Fatalf("softplus(0) = %v, want ln 2", got)
	}

	// Large inputs take the overflow-safe identity branch.
	got, err = m.Predict([]float64{40})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 40 {
		t.Fatalf("softplus(40) = %v, want 40", got)
	}
}

func TestMLPValidation(t *testing.T) {
	mutate := func(f func(*weightsDocument)) weightsDocument {
		doc := twoLayerDoc()
		f(&doc)
		return doc
	}
	cases := []struct {
		name string
		doc  weightsDocument
	}{
		{"no layers", weightsDocument{}},
		{"ragged row", mutate(func(d *weightsDocument) { d.Layers[0].Weights[1] = []float64{1} })},
		{"bias mismatch", mutate(func(d *weightsDocument) { d.Layers[0].Bias = []float64{0} })},
		{"unknown activation", mutate(func(d *weightsDocument) { d.Layers[0].Activation = "tanh" })},
		{"chain mismatch", mutate(func(d *weightsDocument) { d.Layers[1].Weights = [][]float64{{2, 1, 7}} })},
		{"multi-unit output", mutate(func(d *weightsDocument) {
			d.Layers[1].Weights = [][]float64{{2, 1}, {1, 1}}
			d.Layers[1].Bias = []float64{0, 0}
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := newMLP(tc.doc); !errors.Is(err, ErrMalformedWeights) {
				t.Fatalf("newMLP = %v, want ErrMalformedWeights", err)
			}
		})
	}
}

func TestLoadMLP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	doc := `{
		"version": "4.0.0",
		"layers": [
			{"weights": [[1, -1], [0.5, 2]], "bias": [0, -1], "activation": "relu"},
			{"weights": [[2, 1]], "bias": [0.25], "activation": "linear"}
		]
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMLP(path)
	if err != nil {
		t.Fatalf("LoadMLP: %v", err)
	}
	if m.Version() != "4.0.0" {
		t.Errorf("Version = %q", m.Version())
	}
	got, err := m.Predict([]float64{1, 2})
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if math.Abs(got-3.75) > 1e-12 {
		t.Fatalf("Predict = %v, want 3.75", got)
	}

	if _, err := LoadMLP(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("LoadMLP missing file: want error")
	}
}

func TestLoadMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "metadata.json")
	doc := `{
		"modelVersion": "4.0.0-advanced",
		"trainedDate": "2025-06-02T10:00:00",
		"numFeatures": 51,
		"architecture": "51-128-64-32-16-1",
		"trainingSize": 1800,
		"testSize": 450,
		"performance": {"testMAE": 1.82, "baselineMAE": 3.4, "improvement": 0.46}
	}`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	meta, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("LoadMetadata: %v", err)
	}
	if meta.NumFeatures != 51 || meta.ModelVersion != "4.0.0-advanced" {
		t.Fatalf("LoadMetadata = %+v", meta)
	}
	if meta.Performance["testMAE"] != 1.82 {
		t.Errorf("Performance = %v", meta.Performance)
	}
}
