package pool

import (
	"fmt"
	"math"

	"github.com/atgjack/prob"
)

// Side is the side of a game picked against the pool spread.
type Side int

const (
	// Road is a pick of the road team.
	Road Side = -1

	// NoPick means the prediction sits exactly on the spread.
	NoPick Side = 0

	// Home is a pick of the home team.
	Home Side = 1
)

func (s Side) String() string {
	switch s {
	case Home:
		return "home"
	case Road:
		return "road"
	default:
		return "none"
	}
}

// sideOf returns the side that covers the spread given a home margin.
func sideOf(margin, spread float64) Side {
	v := margin + spread
	switch {
	case v > 0:
		return Home
	case v < 0:
		return Road
	default:
		return NoPick
	}
}

// PickSide is the side implied by a predicted margin against the pool spread.
func PickSide(predicted float64, g Game) Side {
	return sideOf(predicted, g.PoolSpread)
}

// Covered is the side that actually covered the pool spread, or NoPick on a push.
func Covered(g Game) Side {
	return sideOf(g.Margin, g.PoolSpread)
}

// FavoritePick reports whether the picked side is favored by the pool spread.
func FavoritePick(s Side, g Game) bool {
	return (s == Home && g.PoolSpread < 0) || (s == Road && g.PoolSpread > 0)
}

// MovementPick reports whether the picked side is the side the line moved toward between the pool spread and the final spread.
func MovementPick(s Side, g Game) bool {
	m := g.LineMovement()
	return (s == Home && m < 0) || (s == Road && m > 0)
}

// CoverProbability is the probability the home team covers the pool spread when the margin is
// normally distributed around the prediction with standard deviation sigma.
func CoverProbability(predicted, spread, sigma float64) float64 {
	if sigma <= 0 || math.IsNaN(predicted) || math.IsNaN(sigma) {
		return math.NaN()
	}
	return 1 - prob.Normal{Mu: predicted, Sigma: sigma}.Cdf(-spread)
}

// Rate counts picks and wins in a subset of games.
type Rate struct {
	Picks int
	Wins  int
}

// Value is the fraction of picks won, or NaN if the subset is empty.
func (r Rate) Value() float64 {
	if r.Picks == 0 {
		return math.NaN()
	}
	return float64(r.Wins) / float64(r.Picks)
}

func (r *Rate) add(won bool) {
	r.Picks++
	if won {
		r.Wins++
	}
}

func (r Rate) String() string {
	if r.Picks == 0 {
		return "NA"
	}
	return fmt.Sprintf("%.3f (%d/%d)", r.Value(), r.Wins, r.Picks)
}

// PickStats summarizes how a model's picks fared against the pool spread.
// Pushes and predictions exactly on the spread are left out of every rate.
type PickStats struct {
	Overall  Rate
	Home     Rate
	Favorite Rate
	Movement Rate
	Pushes   int
	NoPicks  int
	RMSE     float64
	Brier    float64
}

// EvaluatePicks scores predictions (one per game) against the realized margins.
// sigma is the model's residual standard deviation used for cover probabilities; non-positive sigma leaves Brier undefined.
func EvaluatePicks(games []Game, predictions []float64, sigma float64) PickStats {
	var s PickStats
	sse := 0.
	brier := 0.
	nBrier := 0
	for i, g := range games {
		p := predictions[i]
		d := p - g.Margin
		sse += d * d

		covered := Covered(g)
		if covered == NoPick {
			s.Pushes++
			continue
		}
		if cp := CoverProbability(p, g.PoolSpread, sigma); !math.IsNaN(cp) {
			outcome := 0.
			if covered == Home {
				outcome = 1
			}
			brier += (cp - outcome) * (cp - outcome)
			nBrier++
		}

		side := PickSide(p, g)
		if side == NoPick {
			s.NoPicks++
			continue
		}
		won := side == covered
		s.Overall.add(won)
		if side == Home {
			s.Home.add(won)
		}
		if FavoritePick(side, g) {
			s.Favorite.add(won)
		}
		if MovementPick(side, g) {
			s.Movement.add(won)
		}
	}

	s.RMSE = math.NaN()
	if len(games) > 0 {
		s.RMSE = math.Sqrt(sse / float64(len(games)))
	}
	s.Brier = math.NaN()
	if nBrier > 0 {
		s.Brier = brier / float64(nBrier)
	}
	return s
}

// ResidualSigma is the standard deviation of the residuals of predictions against margins.
func ResidualSigma(games []Game, predictions []float64) float64 {
	if len(games) < 2 {
		return math.NaN()
	}
	mean := 0.
	for i, g := range games {
		mean += predictions[i] - g.Margin
	}
	mean /= float64(len(games))
	ss := 0.
	for i, g := range games {
		d := predictions[i] - g.Margin - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(games)-1))
}
