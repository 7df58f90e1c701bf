package learn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SVRParams are the hyperparameters of a linear support vector regression.
// Cost is the penalty on points outside the epsilon tube; Epsilon is the tube half-width in response units.
type SVRParams struct {
	Cost      float64 `yaml:"cost"`
	Epsilon   float64 `yaml:"epsilon"`
	Tolerance float64 `yaml:"tolerance,omitempty"`
	MaxIter   int     `yaml:"max_iter,omitempty"`
}

func (p SVRParams) withDefaults() SVRParams {
	if p.Cost <= 0 {
		p.Cost = 1
	}
	if p.Epsilon < 0 {
		p.Epsilon = 0
	}
	if p.Tolerance <= 0 {
		p.Tolerance = 0.1
	}
	if p.MaxIter <= 0 {
		p.MaxIter = 1000
	}
	return p
}

func (p SVRParams) String() string {
	return fmt.Sprintf("cost=%g epsilon=%g", p.Cost, p.Epsilon)
}

// LinearSVR is an epsilon-insensitive linear support vector regression on standardized features.
// The bias is fit as an extra, regularized, constant column.
type LinearSVR struct {
	Params     SVRParams `yaml:"params"`
	Features   []int     `yaml:"features"`
	Seed       int64     `yaml:"seed"`
	Center     []float64 `yaml:"center"`
	Scale      []float64 `yaml:"scale"`
	Weights    []float64 `yaml:"weights"`
	Bias       float64   `yaml:"bias"`
	Iterations int       `yaml:"iterations"`
}

// Fit solves the dual problem by coordinate descent, visiting the observations in a seeded random order each pass.
func (m *LinearSVR) Fit(X mat.Matrix, y []float64) error {
	n, err := checkShape(X, y, m.Features)
	if err != nil {
		return err
	}
	m.Params = m.Params.withDefaults()
	d := len(m.Features)

	m.Center = make([]float64, d)
	m.Scale = make([]float64, d)
	col := make([]float64, n)
	for j, f := range m.Features {
		for i := 0; i < n; i++ {
			col[i] = X.At(i, f)
		}
		mean, sd := stat.MeanStdDev(col, nil)
		if sd == 0 || math.IsNaN(sd) {
			sd = 1
		}
		m.Center[j] = mean
		m.Scale[j] = sd
	}

	z := make([][]float64, n)
	qii := make([]float64, n)
	for i := range z {
		z[i] = make([]float64, d+1)
		for j, f := range m.Features {
			z[i][j] = (X.At(i, f) - m.Center[j]) / m.Scale[j]
		}
		z[i][d] = 1
		qii[i] = floats.Dot(z[i], z[i])
	}

	w := make([]float64, d+1)
	beta := make([]float64, n)
	c := m.Params.Cost
	eps := m.Params.Epsilon
	rng := rand.New(rand.NewSource(m.Seed))

	iter := 0
	for ; iter < m.Params.MaxIter; iter++ {
		maxViolation := 0.
		for _, i := range rng.Perm(n) {
			g := floats.Dot(w, z[i]) - y[i]
			gp := g + eps
			gn := g - eps
			b := beta[i]

			var v float64
			switch {
			case b == 0:
				v = math.Max(0, math.Max(-gp, gn))
			case b >= c:
				v = math.Max(0, gp)
			case b <= -c:
				v = math.Max(0, -gn)
			case b > 0:
				v = math.Abs(gp)
			default:
				v = math.Abs(gn)
			}
			if v > maxViolation {
				maxViolation = v
			}

			h := qii[i]
			var step float64
			if gp < h*b {
				step = -gp / h
			} else if gn > h*b {
				step = -gn / h
			} else {
				step = -b
			}
			nb := math.Min(math.Max(b+step, -c), c)
			if delta := nb - b; delta != 0 {
				beta[i] = nb
				floats.AddScaled(w, delta, z[i])
			}
		}
		if maxViolation < m.Params.Tolerance {
			break
		}
	}

	m.Weights = w[:d]
	m.Bias = w[d]
	m.Iterations = iter
	return nil
}

// Predict standardizes the selected features and applies the fitted hyperplane.
func (m *LinearSVR) Predict(x []float64) float64 {
	p := m.Bias
	for j, f := range m.Features {
		p += m.Weights[j] * (x[f] - m.Center[j]) / m.Scale[j]
	}
	return p
}
