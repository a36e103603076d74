package predictor

import (
	"errors"
	"math"
	"testing"

	"github.com/example/recallml/internal/features"
	"github.com/example/recallml/internal/norm"
	"github.com/example/recallml/pkg/models"
)

type modelFunc func([]float64) (float64, error)

func (f modelFunc) Predict(v []float64) (float64, error) { return f(v) }

func identityNormalizer(t *testing.T) *norm.Normalizer {
	t.Helper()
	mean := make([]float64, features.Count)
	std := make([]float64, features.Count)
	for i := range std {
		std[i] = 1
	}
	n, err := norm.New(norm.Stats{Mean: mean, Std: std}, features.Count)
	if err != nil {
		t.Fatalf("norm.New: %v", err)
	}
	return n
}

var someBase = features.BaseFeatureSet{
	MemoryStrength:      2,
	DifficultyRating:    0.3,
	TimeSinceLastReview: 1,
	SuccessRate:         0.8,
	AverageResponseTime: 2500,
	TotalReviews:        12,
	ConsecutiveCorrect:  3,
	TimeOfDay:           0.4,
}

func TestResolveInterval(t *testing.T) {
	cases := []struct {
		raw  float64
		want int
	}{
		{2.3, 2},
		{0.4, 1},
		{0, 1},
		{0.5, 1},
		{0.51, 1},
		{1.49, 1},
		{1.5, 2},
		{2.5, 3},
		{10, 10},
		{364.7, 365},
	}
	for _, tc := range cases {
		got, err := ResolveInterval(tc.raw)
		if err != nil {
			t.Fatalf("ResolveInterval(%v): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("ResolveInterval(%v) = %d, want %d", tc.raw, got, tc.want)
		}
	}
}

func TestResolveIntervalRejectsGarbage(t *testing.T) {
	for _, raw := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := ResolveInterval(raw); !errors.Is(err, ErrNonFiniteOutput) {
			t.Errorf("ResolveInterval(%v) = %v, want ErrNonFiniteOutput", raw, err)
		}
	}
	for _, raw := range []float64{-0.1, -3, -0.0000001} {
		if _, err := ResolveInterval(raw); !errors.Is(err, ErrNegativeOutput) {
			t.Errorf("ResolveInterval(%v) = %v, want ErrNegativeOutput", raw, err)
		}
	}
}

// Sweep the clamp against an independent half-up formulation; for
// non-negative values round-half-away and round-half-up agree.
func TestResolveIntervalSweep(t *testing.T) {
	for i := 0; i <= 3000; i++ {
		raw := float64(i) / 100
		want := int(math.Floor(raw + 0.5))
		if want < 1 {
			want = 1
		}
		got, err := ResolveInterval(raw)
		if err != nil {
			t.Fatalf("ResolveInterval(%v): %v", raw, err)
		}
		if got != want {
			t.Fatalf("ResolveInterval(%v) = %d, want %d", raw, got, want)
		}
	}
}

func TestPredict(t *testing.T) {
	var gotWidth int
	m := modelFunc(func(v []float64) (float64, error) {
		gotWidth = len(v)
		return 2.3, nil
	})
	p, err := New(identityNormalizer(t), m, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Predict(someBase)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	want := models.PredictedInterval{Interval: 2, AlgorithmUsed: models.AlgorithmML, MLInterval: 2}
	if got != want {
		t.Fatalf("Predict = %+v, want %+v", got, want)
	}
	if gotWidth != features.Count {
		t.Fatalf("model received %d features, want %d", gotWidth, features.Count)
	}

	again, err := p.Predict(someBase)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != again {
		t.Fatalf("Predict not deterministic: %+v vs %+v", got, again)
	}
}

func TestPredictModelErrors(t *testing.T) {
	p, err := New(identityNormalizer(t), modelFunc(func([]float64) (float64, error) {
		return math.NaN(), nil
	}), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Predict(someBase); !errors.Is(err, ErrNonFiniteOutput) {
		t.Fatalf("Predict = %v, want ErrNonFiniteOutput", err)
	}

	p, err = New(identityNormalizer(t), modelFunc(func([]float64) (float64, error) {
		return -4, nil
	}), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Predict(someBase); !errors.Is(err, ErrNegativeOutput) {
		t.Fatalf("Predict = %v, want ErrNegativeOutput", err)
	}

	boom := errors.New("backend down")
	p, err = New(identityNormalizer(t), modelFunc(func([]float64) (float64, error) {
		return 0, boom
	}), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := p.Predict(someBase); !errors.Is(err, boom) {
		t.Fatalf("Predict = %v, want wrapped backend error", err)
	}
}

func TestPredictInvalidBase(t *testing.T) {
	p, err := New(identityNormalizer(t), modelFunc(func([]float64) (float64, error) {
		t.Fatal("model must not be called for invalid input")
		return 0, nil
	}), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	bad := someBase
	bad.SuccessRate = math.NaN()
	if _, err := p.Predict(bad); !errors.Is(err, features.ErrNotFinite) {
		t.Fatalf("Predict = %v, want ErrNotFinite", err)
	}
}

func TestNewRejectsWrongWidth(t *testing.T) {
	n, err := norm.New(norm.Stats{Mean: make([]float64, 8), Std: make([]float64, 8)}, 8)
	if err != nil {
		t.Fatalf("norm.New: %v", err)
	}
	if _, err := New(n, modelFunc(func([]float64) (float64, error) { return 1, nil }), nil); !errors.Is(err, norm.ErrWidthMismatch) {
		t.Fatalf("New = %v, want ErrWidthMismatch", err)
	}
}
