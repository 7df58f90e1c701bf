package learn

import (
	"fmt"

	"github.com/sajari/regression"
	"gonum.org/v1/gonum/mat"
)

// LinearModel is an ordinary least squares fit on a subset of the feature columns.
// The fitted coefficients live on the struct so that a decoded model predicts exactly like the original.
type LinearModel struct {
	Features     []int     `yaml:"features"`
	Intercept    float64   `yaml:"intercept"`
	Coefficients []float64 `yaml:"coefficients"`
	R2           float64   `yaml:"r2"`
}

// Fit runs the regression on the selected columns of X.
func (m *LinearModel) Fit(X mat.Matrix, y []float64) error {
	n, err := checkShape(X, y, m.Features)
	if err != nil {
		return err
	}

	var r regression.Regression
	r.SetObserved("margin")
	for i, f := range m.Features {
		r.SetVar(i, fmt.Sprintf("x%d", f))
	}

	for i := 0; i < n; i++ {
		vars := make([]float64, len(m.Features))
		for j, f := range m.Features {
			vars[j] = X.At(i, f)
		}
		r.Train(regression.DataPoint(y[i], vars))
	}
	if err := r.Run(); err != nil {
		return fmt.Errorf("linear fit: %w", err)
	}

	m.Intercept = r.Coeff(0)
	m.Coefficients = make([]float64, len(m.Features))
	for j := range m.Features {
		m.Coefficients[j] = r.Coeff(j + 1)
	}
	m.R2 = r.R2
	return nil
}

// Predict returns the intercept plus the weighted selected features.
func (m *LinearModel) Predict(x []float64) float64 {
	p := m.Intercept
	for j, f := range m.Features {
		p += m.Coefficients[j] * x[f]
	}
	return p
}

func (m *LinearModel) String() string {
	return fmt.Sprintf("linear%v intercept=%.4f coefficients=%v", m.Features, m.Intercept, m.Coefficients)
}
