package pool

import (
	"fmt"
	"math"
	"strings"
)

// Predictor is anything that maps a feature vector to a predicted margin.
type Predictor interface {
	Predict(x []float64) float64
}

// Sweep holds predictions along a synthetic range of one feature with the other features held fixed.
type Sweep struct {
	Feature     int
	Values      []float64
	Predictions []float64
	// Monotone is true when predictions never change direction along the sweep.
	Monotone bool
	// Roughness is the mean absolute second difference of the predictions. Smooth models score near zero.
	Roughness float64
}

// Steps returns lo, lo+step, ... up to and including hi (within rounding).
func Steps(lo, hi, step float64) []float64 {
	if step <= 0 || hi < lo {
		return nil
	}
	n := int(math.Floor((hi-lo)/step+1e-9)) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// SweepFeature predicts along values of one feature, with the remaining features taken from base.
func SweepFeature(p Predictor, feature int, values []float64, base []float64) Sweep {
	s := Sweep{Feature: feature, Values: values, Predictions: make([]float64, len(values)), Monotone: true}
	x := make([]float64, len(base))
	copy(x, base)
	for i, v := range values {
		x[feature] = v
		s.Predictions[i] = p.Predict(x)
	}

	direction := 0.
	for i := 1; i < len(s.Predictions); i++ {
		d := s.Predictions[i] - s.Predictions[i-1]
		if d == 0 {
			continue
		}
		if direction != 0 && math.Signbit(d) != math.Signbit(direction) {
			s.Monotone = false
		}
		direction = d
	}

	if len(s.Predictions) > 2 {
		total := 0.
		for i := 2; i < len(s.Predictions); i++ {
			total += math.Abs(s.Predictions[i] - 2*s.Predictions[i-1] + s.Predictions[i-2])
		}
		s.Roughness = total / float64(len(s.Predictions)-2)
	}
	return s
}

func (s Sweep) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-22s", Schema[s.Feature]))
	for _, v := range s.Values {
		b.WriteString(fmt.Sprintf(" %7.2f", v))
	}
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-22s", "predicted margin"))
	for _, p := range s.Predictions {
		b.WriteString(fmt.Sprintf(" %+7.2f", p))
	}
	b.WriteString(fmt.Sprintf("\nmonotone: %t; roughness: %.3f", s.Monotone, s.Roughness))
	return b.String()
}
