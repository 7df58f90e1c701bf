package pool

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// ErrNoGames is returned when a week has no games to predict.
var ErrNoGames = errors.New("no games")

// Model is a named fitted model together with what it needs at prediction time.
type Model struct {
	Name      string
	Predictor Predictor
	// Features are the Schema columns the model reads. A game missing any of them gets an undefined prediction.
	Features []int
	// Sigma is the model's training residual standard deviation.
	Sigma float64
}

// Predict returns the model's prediction for a game, or NaN when a needed feature is missing.
func (m Model) Predict(g Game) float64 {
	x := g.Features()
	for _, f := range m.Features {
		if math.IsNaN(x[f]) {
			return math.NaN()
		}
	}
	return m.Predictor.Predict(x)
}

// PredictionRow is one game's predictions, one per model.
type PredictionRow struct {
	Home    string
	Road    string
	Margins []float64
	// Cover holds home cover probabilities against the pool spread, when requested.
	Cover []float64
}

// PredictionTable is a week of predictions with one column per model.
type PredictionTable struct {
	Models []string
	Rows   []PredictionRow
}

// MakePredictions predicts every playable game with every model.
func MakePredictions(games []Game, models []Model, withCover bool) *PredictionTable {
	t := &PredictionTable{Models: make([]string, len(models))}
	for i, m := range models {
		t.Models[i] = m.Name
	}
	for _, g := range Playable(games) {
		row := PredictionRow{Home: g.Home, Road: g.Road, Margins: make([]float64, len(models))}
		if withCover {
			row.Cover = make([]float64, len(models))
		}
		for i, m := range models {
			row.Margins[i] = m.Predict(g)
			if withCover {
				row.Cover[i] = CoverProbability(row.Margins[i], g.PoolSpread, m.Sigma)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// PredictWeek predicts the playable games of one week.
func PredictWeek(games []Game, week int, models []Model, withCover bool) (*PredictionTable, error) {
	weekGames := ForWeek(games, week)
	if len(weekGames) == 0 {
		return nil, fmt.Errorf("%w in week %d", ErrNoGames, week)
	}
	return MakePredictions(weekGames, models, withCover), nil
}

// FormatValue rounds to two decimal places, writing NA for undefined values.
func FormatValue(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "NA"
	}
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0 // no negative zero
	}
	return strconv.FormatFloat(r, 'f', 2, 64)
}

// WriteCSV writes a header row and one row per game.
func (t *PredictionTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	withCover := len(t.Rows) > 0 && t.Rows[0].Cover != nil

	header := []string{"Home Team", "Road Team"}
	header = append(header, t.Models...)
	if withCover {
		for _, m := range t.Models {
			header = append(header, m+" Cover")
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range t.Rows {
		record := []string{row.Home, row.Road}
		for _, v := range row.Margins {
			record = append(record, FormatValue(v))
		}
		if withCover {
			for _, v := range row.Cover {
				record = append(record, FormatValue(v))
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (t PredictionTable) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-20s %-20s", "home", "road"))
	for _, m := range t.Models {
		b.WriteString(fmt.Sprintf(" %18.18s", m))
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		b.WriteString(fmt.Sprintf("%-20.20s %-20.20s", row.Home, row.Road))
		for _, v := range row.Margins {
			b.WriteString(fmt.Sprintf(" %18s", FormatValue(v)))
		}
		b.WriteString("\n")
	}
	return b.String()
}
