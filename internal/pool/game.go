// Package pool holds NFL pool game records, their train/test handling, and pick evaluation.
package pool

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Schema names the feature columns every model is fit on, in column order.
var Schema = []string{"final_spread", "strength_differential"}

const (
	// FinalSpread is the column index of the closing point spread.
	FinalSpread = 0

	// StrengthDifferential is the column index of the home-minus-road DAVE/DVOA differential.
	StrengthDifferential = 1
)

// Game is one game record. Spreads are from the home team's point of view (negative means the home team is favored),
// and Margin is home points minus road points. Missing numbers are NaN.
type Game struct {
	Week        int
	Home        string
	Road        string
	PoolSpread  float64
	FinalSpread float64
	Strength    float64
	Margin      float64
}

// Features returns the game's feature vector in Schema order.
func (g Game) Features() []float64 {
	return []float64{g.FinalSpread, g.Strength}
}

// Labeled reports whether the game has everything needed for training and evaluation.
func (g Game) Labeled() bool {
	return g.Week > 0 &&
		!math.IsNaN(g.PoolSpread) &&
		!math.IsNaN(g.FinalSpread) &&
		!math.IsNaN(g.Strength) &&
		!math.IsNaN(g.Margin)
}

// Playable reports whether the game can be given a prediction row.
func (g Game) Playable() bool {
	return !math.IsNaN(g.FinalSpread)
}

// LineMovement is the change from the stale pool spread to the final spread.
func (g Game) LineMovement() float64 {
	return g.FinalSpread - g.PoolSpread
}

func (g Game) String() string {
	return fmt.Sprintf("week %d: %s vs %s (pool %+.1f, final %+.1f, strength %+.3f, margin %+.0f)", g.Week, g.Home, g.Road, g.PoolSpread, g.FinalSpread, g.Strength, g.Margin)
}

// header names recognized in a table's first row, after normalization.
var headerAliases = map[string]string{
	"week":                 "week",
	"wk":                   "week",
	"home":                 "home",
	"hometeam":             "home",
	"road":                 "road",
	"roadteam":             "road",
	"away":                 "road",
	"awayteam":             "road",
	"visitor":              "road",
	"spread":               "pool_spread",
	"poolspread":           "pool_spread",
	"poolline":             "pool_spread",
	"openingspread":        "pool_spread",
	"finalspread":          "final_spread",
	"closingspread":        "final_spread",
	"closingline":          "final_spread",
	"finalline":            "final_spread",
	"dave":                 "strength",
	"davediff":             "strength",
	"davedifferential":     "strength",
	"dvoa":                 "strength",
	"dvoadiff":             "strength",
	"strength":             "strength",
	"strengthdiff":         "strength",
	"strengthdifferential": "strength",
	"margin":               "margin",
	"actualmargin":         "margin",
	"outcome":              "margin",
	"result":               "margin",
}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ParseGames reads game records from a table whose first row is a header.
// Unparseable or empty numeric cells are treated as missing rather than as errors.
func ParseGames(rows [][]string) ([]Game, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("table is empty")
	}
	cols := make(map[string]int)
	for i, h := range rows[0] {
		if key, ok := headerAliases[normalizeHeader(h)]; ok {
			if _, dup := cols[key]; !dup {
				cols[key] = i
			}
		}
	}
	for _, required := range []string{"week", "final_spread"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("table header %v has no %s column", rows[0], required)
		}
	}

	cell := func(row []string, key string) string {
		i, ok := cols[key]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	games := make([]Game, 0, len(rows)-1)
	for _, row := range rows[1:] {
		week := parseNumber(cell(row, "week"))
		if math.IsNaN(week) {
			continue // not a game row
		}
		games = append(games, Game{
			Week:        int(week),
			Home:        cell(row, "home"),
			Road:        cell(row, "road"),
			PoolSpread:  parseNumber(cell(row, "pool_spread")),
			FinalSpread: parseNumber(cell(row, "final_spread")),
			Strength:    parseNumber(cell(row, "strength")),
			Margin:      parseNumber(cell(row, "margin")),
		})
	}
	return games, nil
}

// parseNumber parses a cell, treating blanks and NA markers as missing. Percentages are returned as fractions.
func parseNumber(s string) float64 {
	switch strings.ToUpper(s) {
	case "", "NA", "N/A", "#N/A", "-":
		return math.NaN()
	}
	scale := 1.
	if strings.HasSuffix(s, "%") {
		s = strings.TrimSuffix(s, "%")
		scale = 0.01
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN() // Not an error, just missing data
	}
	return v * scale
}

// Labeled filters out games that cannot be used for training.
func Labeled(games []Game) []Game {
	out := make([]Game, 0, len(games))
	for _, g := range games {
		if g.Labeled() {
			out = append(out, g)
		}
	}
	return out
}

// Playable filters out games without a final spread.
func Playable(games []Game) []Game {
	out := make([]Game, 0, len(games))
	for _, g := range games {
		if g.Playable() {
			out = append(out, g)
		}
	}
	return out
}

// ForWeek filters games to a single week.
func ForWeek(games []Game, week int) []Game {
	out := make([]Game, 0)
	for _, g := range games {
		if g.Week == week {
			out = append(out, g)
		}
	}
	return out
}

// Features builds the feature matrix for a non-empty list of games.
func Features(games []Game) *mat.Dense {
	X := mat.NewDense(len(games), len(Schema), nil)
	for i, g := range games {
		X.SetRow(i, g.Features())
	}
	return X
}

// Margins returns the observed margins of the games.
func Margins(games []Game) []float64 {
	y := make([]float64, len(games))
	for i, g := range games {
		y[i] = g.Margin
	}
	return y
}
