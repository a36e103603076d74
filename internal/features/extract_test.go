package features

import (
	"math"
	"testing"
)

func assertFloat(t *testing.T, name string, got, want, eps float64) {
	t.Helper()
	if math.Abs(got-want) > eps {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// The documented anchor scenario: a well-reviewed item checked at midday
// immediately after a review.
var anchorBase = BaseFeatureSet{
	MemoryStrength:      1,
	DifficultyRating:    0.25,
	TimeSinceLastReview: 0,
	SuccessRate:         0.75,
	AverageResponseTime: 3000,
	TotalReviews:        24,
	ConsecutiveCorrect:  5,
	TimeOfDay:           0.5,
}

func TestExtractAnchorScenario(t *testing.T) {
	vec, err := Extract(anchorBase)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	assertFloat(t, "forgettingCurve", vec[8], 1, 1e-9)
	assertFloat(t, "logMemoryStrength", vec[11], 0.6931471806, 1e-9)
	assertFloat(t, "timeOfDaySin", vec[32], 0, 1e-9)
	assertFloat(t, "timeOfDayCos", vec[33], -1, 1e-9)
	assertFloat(t, "averageResponseTime", vec[4], 3, 1e-9) // ms to seconds
	assertFloat(t, "isAfternoon", vec[35], 1, 0)
	assertFloat(t, "isMorning", vec[34], 0, 0)
	assertFloat(t, "isEvening", vec[36], 0, 0)
}

func TestExtractGolden(t *testing.T) {
	cases := []struct {
		name string
		base BaseFeatureSet
		want []float64
	}{
		{
			name: "anchor",
			base: anchorBase,
			want: []float64{
				1, 0.25, 0, 0.75, 3, 24, 5, 0.5,
				1, 1, 0, 0.6931471806, 0,
				0, 0.25, 0.75, 0, 0.75, 3, 5, 20, 18, 19.2,
				1, 0.0625, 0, 0.5625, 1, 1, 4.8989794856, 1, 4,
				0, -1, 0, 1, 0,
				0.75, 3, 0, 0, 0,
				0, 1.0206207262, 0, 0.75,
				1.2419530243, 0.75, 0.2330006005, 0.8431464768, 1,
			},
		},
		{
			name: "partially forgotten item",
			base: BaseFeatureSet{
				MemoryStrength:      2.5,
				DifficultyRating:    0.6,
				TimeSinceLastReview: 3,
				SuccessRate:         0.5,
				AverageResponseTime: 4500,
				TotalReviews:        10,
				ConsecutiveCorrect:  2,
				TimeOfDay:           0.3,
			},
			want: []float64{
				2.5, 0.6, 3, 0.5, 4.5, 10, 2, 0.3,
				0.3011942119, 0.3011942119, 0.7884573604, 1.2527629685, 1.2,
				1.8, 1.5, 1.25, 1.5, 2.7, 11.25, 5, 3.3333333333, 5, 6.25,
				6.25, 0.36, 9, 0.25, 15.625, 1.5811388301, 3.1622776602, 0.4, 1.6666666667,
				0.9510565163, -0.3090169944, 1, 0, 0,
				0.5, 4.5, 0, 0, 0,
				0, 0.632455532, 0, 0.5,
				1.376300792, 0.1204776848, 0.2085161957, 0.1370590381, 1,
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			vec, err := Extract(tc.base)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if len(vec) != Count {
				t.Fatalf("len = %d, want %d", len(vec), Count)
			}
			names := Names()
			for i := range vec {
				assertFloat(t, names[i], vec[i], tc.want[i], 1e-6)
			}
		})
	}
}

func TestExtractDimensionality(t *testing.T) {
	bases := []BaseFeatureSet{
		{},
		{MemoryStrength: 0.001, DifficultyRating: 1, TimeSinceLastReview: 400, SuccessRate: 1, AverageResponseTime: 1, TotalReviews: 1, ConsecutiveCorrect: 1, TimeOfDay: 0.999},
		{MemoryStrength: 365, DifficultyRating: 0.5, TimeSinceLastReview: 0.01, SuccessRate: 0.1, AverageResponseTime: 60000, TotalReviews: 5000, ConsecutiveCorrect: 200, TimeOfDay: 0},
	}
	for _, b := range bases {
		vec, err := Extract(b)
		if err != nil {
			t.Fatalf("Extract(%+v): %v", b, err)
		}
		if len(vec) != Count {
			t.Fatalf("len = %d, want %d", len(vec), Count)
		}
		for i, v := range vec {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				t.Errorf("feature %d (%s) = %v for %+v", i, Names()[i], v, b)
			}
		}
	}
	if got := len(Names()); got != Count {
		t.Fatalf("len(Names()) = %d, want %d", got, Count)
	}
}

func TestExtractDeterminism(t *testing.T) {
	a, err := Extract(anchorBase)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	b, err := Extract(anchorBase)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("feature %d differs between identical calls: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestExtractZeroGuards(t *testing.T) {
	t.Run("zero memory strength", func(t *testing.T) {
		vec, err := Extract(BaseFeatureSet{TimeSinceLastReview: 5, AverageResponseTime: 1000})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		assertFloat(t, "decayRate", vec[12], 50, 1e-9) // 5 / 0.1 floor
		assertFloat(t, "logMemoryStrength", vec[11], 0, 0)
		assertFloat(t, "sqrtMemoryStrength", vec[28], 0, 0)
		assertFloat(t, "inverseMemoryStrength", vec[30], 0, 0)
	})
	t.Run("zero difficulty", func(t *testing.T) {
		vec, err := Extract(BaseFeatureSet{ConsecutiveCorrect: 4, TotalReviews: 9, AverageResponseTime: 1000})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		assertFloat(t, "consecutiveDifficultyRatio", vec[20], 4, 0)
		assertFloat(t, "experienceDifficultyRatio", vec[22], 9, 0)
		assertFloat(t, "inverseDifficulty", vec[31], 100, 0)
	})
	t.Run("near-zero difficulty", func(t *testing.T) {
		vec, err := Extract(BaseFeatureSet{DifficultyRating: 0.005, ConsecutiveCorrect: 4, AverageResponseTime: 1000})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		assertFloat(t, "consecutiveDifficultyRatio", vec[20], 800, 1e-9)
		assertFloat(t, "inverseDifficulty", vec[31], 100, 0)
	})
	t.Run("first review", func(t *testing.T) {
		vec, err := Extract(BaseFeatureSet{SuccessRate: 1, ConsecutiveCorrect: 3, AverageResponseTime: 1000})
		if err != nil {
			t.Fatalf("Extract: %v", err)
		}
		assertFloat(t, "learningEfficiency", vec[48], 0, 0)
		assertFloat(t, "streakStrength", vec[43], 3, 0) // cc / sqrt(max(1, 0))
	})
}

func TestExtractDecayCap(t *testing.T) {
	vec, err := Extract(BaseFeatureSet{MemoryStrength: 0.1, TimeSinceLastReview: 10, AverageResponseTime: 1000})
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got := vec[12]; got != 100 {
		t.Fatalf("decayRate = %v, want uncapped 100", got)
	}
	if got, want := vec[8], math.Exp(-50); got != want {
		t.Fatalf("forgettingCurve = %v, want exp(-50) = %v", got, want)
	}
	assertFloat(t, "logTimeDecay", vec[10], math.Log1p(100), 0)
}
