// Package learn holds the regression model families used to predict game margins.
package learn

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Regressor is a model that can be fit to a feature matrix and then predict a single response.
type Regressor interface {
	// Fit trains the model on rows of X against the responses y.
	Fit(X mat.Matrix, y []float64) error
	// Predict returns the predicted response for one full feature vector.
	Predict(x []float64) float64
}

// Family names a kind of regression model.
type Family string

const (
	// Linear is ordinary least squares regression.
	Linear Family = "linear"

	// Forest is random forest regression.
	Forest Family = "forest"

	// SVR is linear epsilon-insensitive support vector regression.
	SVR Family = "svr"
)

// Spec describes one candidate model: a family, the feature columns it uses, and its hyperparameters.
type Spec struct {
	Family   Family        `yaml:"family"`
	Features []int         `yaml:"features"`
	Forest   *ForestParams `yaml:"forest,omitempty"`
	SVR      *SVRParams    `yaml:"svr,omitempty"`
}

// New builds an unfit Regressor from the Spec. The seed drives any randomness in fitting.
func (s Spec) New(seed int64) (Regressor, error) {
	if len(s.Features) == 0 {
		return nil, fmt.Errorf("model spec %s has no features", s)
	}
	features := make([]int, len(s.Features))
	copy(features, s.Features)

	switch s.Family {
	case Linear:
		return &LinearModel{Features: features}, nil
	case Forest:
		if s.Forest == nil {
			return nil, fmt.Errorf("forest spec missing parameters")
		}
		p := s.Forest.withDefaults()
		if p.MTry > len(features) {
			return nil, fmt.Errorf("mtry %d exceeds number of features %d", p.MTry, len(features))
		}
		return &RandomForest{Params: p, Features: features, Seed: seed}, nil
	case SVR:
		if s.SVR == nil {
			return nil, fmt.Errorf("svr spec missing parameters")
		}
		return &LinearSVR{Params: s.SVR.withDefaults(), Features: features, Seed: seed}, nil
	default:
		return nil, fmt.Errorf("unknown model family \"%s\"", s.Family)
	}
}

func (s Spec) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s%v", s.Family, s.Features))
	if s.Forest != nil {
		b.WriteString(" " + s.Forest.String())
	}
	if s.SVR != nil {
		b.WriteString(" " + s.SVR.String())
	}
	return b.String()
}

// Saved is a fitted model in a form that can be encoded and decoded. Exactly one of the model fields is set.
type Saved struct {
	Linear *LinearModel  `yaml:"linear,omitempty"`
	Forest *RandomForest `yaml:"forest,omitempty"`
	SVR    *LinearSVR    `yaml:"svr,omitempty"`
}

// Save wraps a fitted Regressor for encoding.
func Save(r Regressor) (Saved, error) {
	switch m := r.(type) {
	case *LinearModel:
		return Saved{Linear: m}, nil
	case *RandomForest:
		return Saved{Forest: m}, nil
	case *LinearSVR:
		return Saved{SVR: m}, nil
	default:
		return Saved{}, fmt.Errorf("cannot save regressor of type %T", r)
	}
}

// Regressor unwraps the saved model.
func (s Saved) Regressor() (Regressor, error) {
	switch {
	case s.Linear != nil:
		return s.Linear, nil
	case s.Forest != nil:
		return s.Forest, nil
	case s.SVR != nil:
		return s.SVR, nil
	}
	return nil, fmt.Errorf("saved model is empty")
}

// Features returns the feature indices the saved model reads.
func (s Saved) Features() []int {
	switch {
	case s.Linear != nil:
		return s.Linear.Features
	case s.Forest != nil:
		return s.Forest.Features
	case s.SVR != nil:
		return s.SVR.Features
	}
	return nil
}

func checkShape(X mat.Matrix, y []float64, features []int) (int, error) {
	r, c := X.Dims()
	if r != len(y) {
		return 0, fmt.Errorf("feature rows (%d) must equal responses (%d)", r, len(y))
	}
	if r == 0 {
		return 0, fmt.Errorf("no observations to fit")
	}
	for _, f := range features {
		if f < 0 || f >= c {
			return 0, fmt.Errorf("feature index %d out of range [0,%d)", f, c)
		}
	}
	return r, nil
}
