package learn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// step returns rows where y jumps from 0 to 10 at x = 10.
func step(n int) (*mat.Dense, []float64) {
	X := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		X.Set(i, 0, float64(i))
		X.Set(i, 1, float64(n-i)*0.5)
		if i >= n/2 {
			y[i] = 10
		}
	}
	return X, y
}

func TestRandomForest_Step(t *testing.T) {
	tests := []struct {
		name string
		rule string
	}{
		{"variance", SplitVariance},
		{"extratrees", SplitExtraTrees},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			X, y := step(20)
			f := &RandomForest{
				Params:   ForestParams{Trees: 25, SplitRule: tt.rule, MTry: 1, MinNodeSize: 1},
				Features: []int{0},
				Seed:     42,
			}
			require.NoError(t, f.Fit(X, y))
			require.Len(t, f.Trees, 25)

			assert.InDelta(t, 0., f.Predict([]float64{2, 0}), 1e-9)
			assert.InDelta(t, 10., f.Predict([]float64{17, 0}), 1e-9)
		})
	}
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := step(40)
	for i := range y {
		y[i] += float64(i%3) - 1
	}
	fit := func() *RandomForest {
		f := &RandomForest{
			Params:   ForestParams{Trees: 10, SplitRule: SplitVariance, MTry: 2, MinNodeSize: 3},
			Features: []int{0, 1},
			Seed:     7,
		}
		require.NoError(t, f.Fit(X, y))
		return f
	}
	a := fit()
	b := fit()
	for _, x := range [][]float64{{0, 0}, {13.5, 4}, {39, 1}, {-2, 30}} {
		pa := a.Predict(x)
		assert.Equal(t, pa, b.Predict(x))
		assert.Equal(t, pa, a.Predict(x))
	}
}

func TestRandomForest_Overfits(t *testing.T) {
	X, y := step(30)
	for i := range y {
		y[i] += float64((i*13)%7) - 3
	}
	f := &RandomForest{
		Params:   ForestParams{Trees: 50, SplitRule: SplitVariance, MTry: 2, MinNodeSize: 1},
		Features: []int{0, 1},
		Seed:     1,
	}
	require.NoError(t, f.Fit(X, y))

	sse := 0.
	for i := range y {
		r := f.Predict(X.RawRowView(i)) - y[i]
		sse += r * r
	}
	assert.Less(t, sse/float64(len(y)), 2.)
}

func TestRandomForest_BadParams(t *testing.T) {
	X, y := step(10)
	f := &RandomForest{Params: ForestParams{SplitRule: "gini"}, Features: []int{0}}
	assert.Error(t, f.Fit(X, y))

	f = &RandomForest{Params: ForestParams{MTry: 2}, Features: []int{0}}
	assert.Error(t, f.Fit(X, y))
}

func TestMidpoint(t *testing.T) {
	assert.Equal(t, 1.5, midpoint(1, 2))
	a := 1.
	b := 1.0000000000000002
	m := midpoint(a, b)
	assert.True(t, a <= m && m < b)
}

func BenchmarkRandomForest_Fit(b *testing.B) {
	X, y := step(500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f := &RandomForest{
			Params:   ForestParams{Trees: 20, SplitRule: SplitVariance, MTry: 1, MinNodeSize: 5},
			Features: []int{0, 1},
			Seed:     int64(i),
		}
		if err := f.Fit(X, y); err != nil {
			b.Fatal(err)
		}
	}
}
