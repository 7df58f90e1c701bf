package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/reallyasi9/pool-margins/internal/bundle"
	"github.com/reallyasi9/pool-margins/internal/config"
	"github.com/reallyasi9/pool-margins/internal/learn"
	"github.com/reallyasi9/pool-margins/internal/pool"
	"github.com/reallyasi9/pool-margins/internal/tune"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// overfitRate is the training win rate above which a model is flagged as memorizing the training set.
const overfitRate = 0.9

// trained is one model family after search and refit.
type trained struct {
	name      string
	spec      learn.Spec
	regressor learn.Regressor
	cv        tune.Result
	sigma     float64
	train     pool.PickStats
	test      pool.PickStats
}

// train runs the whole pipeline over labeled games and returns the bundle of retained models.
// Reports for a human reader go to w.
func train(ctx context.Context, season string, games []pool.Game, conf *config.Config, w io.Writer) (*bundle.Bundle, error) {
	opts := conf.Training
	trainSet, testSet, err := pool.StratifiedSplit(games, opts.TrainFraction, opts.Seed)
	if err != nil {
		return nil, err
	}
	log.Printf("split %d games into %d training and %d test games", len(games), len(trainSet), len(testSet))
	if len(trainSet) < opts.Folds {
		return nil, fmt.Errorf("%d training games cannot fill %d folds", len(trainSet), opts.Folds)
	}
	if len(testSet) == 0 {
		log.Warn("test partition is empty: held-out statistics will be undefined")
	}

	X := pool.Features(trainSet)
	y := pool.Margins(trainSet)
	resamples, err := tune.Folds(len(trainSet), opts.Folds, opts.Repeats, opts.Seed)
	if err != nil {
		return nil, err
	}

	models := make([]trained, 0, len(conf.Models))
	for _, m := range conf.Models {
		t, err := fit(ctx, m, X, y, resamples, opts)
		if err != nil {
			return nil, fmt.Errorf("model \"%s\": %w", m.Name, err)
		}

		trainPred := predictAll(t.regressor, trainSet)
		t.sigma = pool.ResidualSigma(trainSet, trainPred)
		t.train = pool.EvaluatePicks(trainSet, trainPred, t.sigma)
		t.test = pool.EvaluatePicks(testSet, predictAll(t.regressor, testSet), t.sigma)
		if t.train.Overall.Value() > overfitRate {
			log.Warnf("%s wins %.3f of its training picks: it is memorizing the training set", t.name, t.train.Overall.Value())
		}
		models = append(models, t)
	}

	reportSweeps(w, models, opts.Sweep)
	reportPicks(w, models)

	b := bundle.New(season, pool.Schema, opts.Seed)
	for _, t := range models {
		if err := b.Add(t.name, t.spec, t.regressor, t.sigma); err != nil {
			return nil, err
		}
	}
	if err := b.Retain(opts.Retain); err != nil {
		return nil, err
	}
	return b, nil
}

// fit searches a model's grid and refits the best candidate on all training rows.
func fit(ctx context.Context, m config.Model, X mat.Matrix, y []float64, resamples []tune.Resample, opts config.Training) (trained, error) {
	features, err := m.FeatureIndices(pool.Schema)
	if err != nil {
		return trained{}, err
	}
	specs := m.Grid.Expand(m.Family, features)
	log.Printf("cross-validating %d candidates for %s over %d resamples", len(specs), m.Name, len(resamples))

	best, _, err := tune.Search(ctx, specs, X, y, resamples, tune.Options{Seed: opts.Seed, Workers: opts.Workers})
	if err != nil {
		return trained{}, err
	}
	log.WithFields(log.Fields{"model": m.Name, "candidate": best.Spec.String(), "rmse": best.Mean}).Info("selected")

	r, err := best.Spec.New(opts.Seed)
	if err != nil {
		return trained{}, err
	}
	if err := r.Fit(X, y); err != nil {
		return trained{}, err
	}
	return trained{name: m.Name, spec: best.Spec, regressor: r, cv: best}, nil
}

func predictAll(r learn.Regressor, games []pool.Game) []float64 {
	out := make([]float64, len(games))
	for i, g := range games {
		out[i] = r.Predict(g.Features())
	}
	return out
}

func reportSweeps(w io.Writer, models []trained, s config.Sweep) {
	spreads := pool.Steps(s.SpreadMin, s.SpreadMax, s.SpreadStep)
	strengths := pool.Steps(s.StrengthMin, s.StrengthMax, s.StrengthStep)
	for _, t := range models {
		fmt.Fprintf(w, "== %s: synthetic sweeps\n", t.name)
		for _, sw := range []pool.Sweep{
			pool.SweepFeature(t.regressor, pool.FinalSpread, spreads, []float64{0, 0}),
			pool.SweepFeature(t.regressor, pool.StrengthDifferential, strengths, []float64{0, 0}),
		} {
			fmt.Fprintln(w, sw)
			if !sw.Monotone {
				log.Warnf("%s is not monotone in %s", t.name, pool.Schema[sw.Feature])
			}
		}
		fmt.Fprintln(w)
	}
}

func reportPicks(w io.Writer, models []trained) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "model\tset\tCV RMSE\tRMSE\tBrier\tall\thome\tfavorite\tmovement\tpushes\t")
	for _, t := range models {
		for _, set := range []struct {
			name  string
			stats pool.PickStats
		}{{"train", t.train}, {"test", t.test}} {
			fmt.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%.4f\t%s\t%s\t%s\t%s\t%d\t\n",
				t.name, set.name, t.cv.Mean, set.stats.RMSE, set.stats.Brier,
				set.stats.Overall, set.stats.Home, set.stats.Favorite, set.stats.Movement, set.stats.Pushes)
		}
	}
	tw.Flush()
}
