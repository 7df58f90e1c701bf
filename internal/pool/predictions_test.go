package pool

import (
	"bytes"
	"encoding/csv"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "3.14", FormatValue(3.14159))
	assert.Equal(t, "-2.50", FormatValue(-2.499))
	assert.Equal(t, "0.00", FormatValue(-0.001))
	assert.Equal(t, "NA", FormatValue(math.NaN()))
	assert.Equal(t, "NA", FormatValue(math.Inf(-1)))
}

func TestMakePredictions(t *testing.T) {
	spreadOnly := Model{
		Name:      "Spread LM",
		Predictor: predictFunc(func(x []float64) float64 { return -x[FinalSpread] }),
		Features:  []int{FinalSpread},
		Sigma:     13,
	}
	both := Model{
		Name:      "DAVE + Spread LM",
		Predictor: predictFunc(func(x []float64) float64 { return -0.8*x[FinalSpread] + 20*x[StrengthDifferential] }),
		Features:  []int{FinalSpread, StrengthDifferential},
		Sigma:     12.5,
	}
	nan := math.NaN()
	games := []Game{
		{Week: 5, Home: "BUF", Road: "MIA", PoolSpread: -3, FinalSpread: -3.5, Strength: 0.1},
		{Week: 5, Home: "LV", Road: "DEN", PoolSpread: 1, FinalSpread: nan, Strength: 0},
		{Week: 5, Home: "CHI", Road: "GB", PoolSpread: 2, FinalSpread: 1.5, Strength: nan},
		{Week: 5, Home: "SEA", Road: "NYG", PoolSpread: -1, FinalSpread: -2, Strength: -0.05},
	}

	table := MakePredictions(games, []Model{spreadOnly, both}, false)
	// one row per game with a final spread
	require.Len(t, table.Rows, len(Playable(games)))
	assert.Equal(t, []string{"Spread LM", "DAVE + Spread LM"}, table.Models)
	assert.Equal(t, "BUF", table.Rows[0].Home)
	assert.InDelta(t, 3.5, table.Rows[0].Margins[0], 1e-12)
	assert.InDelta(t, 4.8, table.Rows[0].Margins[1], 1e-12)
	assert.Equal(t, "CHI", table.Rows[1].Home)
	assert.True(t, math.IsNaN(table.Rows[1].Margins[1]))
	assert.Nil(t, table.Rows[0].Cover)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, []string{"Home Team", "Road Team", "Spread LM", "DAVE + Spread LM"}, records[0])
	assert.Equal(t, []string{"BUF", "MIA", "3.50", "4.80"}, records[1])
	assert.Equal(t, []string{"CHI", "GB", "-1.50", "NA"}, records[2])
	assert.NotEmpty(t, table.String())
}

func TestMakePredictions_Cover(t *testing.T) {
	m := Model{
		Name:      "flat",
		Predictor: predictFunc(func(x []float64) float64 { return 3 }),
		Features:  []int{FinalSpread},
		Sigma:     10,
	}
	games := []Game{{Week: 1, Home: "A", Road: "B", PoolSpread: -3, FinalSpread: -3}}
	table := MakePredictions(games, []Model{m}, true)
	require.Len(t, table.Rows, 1)
	assert.InDelta(t, 0.5, table.Rows[0].Cover[0], 1e-9)

	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []string{"Home Team", "Road Team", "flat", "flat Cover"}, records[0])
	assert.Equal(t, []string{"A", "B", "3.00", "0.50"}, records[1])
}

func TestPredictWeek(t *testing.T) {
	model := Model{Name: "m", Predictor: predictFunc(func(x []float64) float64 { return 1 }), Features: []int{FinalSpread}}
	games := []Game{
		{Week: 1, Home: "A", Road: "B", FinalSpread: -3},
		{Week: 2, Home: "C", Road: "D", FinalSpread: 7},
		{Week: 2, Home: "E", Road: "F", FinalSpread: math.NaN()},
	}

	table, err := PredictWeek(games, 2, []Model{model}, false)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "C", table.Rows[0].Home)

	_, err = PredictWeek(games, 3, []Model{model}, false)
	assert.ErrorIs(t, err, ErrNoGames)
}
