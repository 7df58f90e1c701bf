// Package tune selects model hyperparameters by repeated k-fold cross-validation.
package tune

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/reallyasi9/pool-margins/internal/learn"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Resample is one train/test partition of row indices.
type Resample struct {
	Train []int
	Test  []int
}

// Folds builds repeats independent k-fold partitions of n rows.
// Each repeat shuffles the rows with the seeded generator and cuts the permutation into k near-equal folds.
func Folds(n, k, repeats int, seed int64) ([]Resample, error) {
	if k < 2 || k > n {
		return nil, fmt.Errorf("cannot make %d folds from %d rows", k, n)
	}
	if repeats < 1 {
		return nil, fmt.Errorf("repeats must be positive, got %d", repeats)
	}

	rng := rand.New(rand.NewSource(seed))
	out := make([]Resample, 0, k*repeats)
	for r := 0; r < repeats; r++ {
		perm := rng.Perm(n)
		for f := 0; f < k; f++ {
			lo := f * n / k
			hi := (f + 1) * n / k
			test := make([]int, hi-lo)
			copy(test, perm[lo:hi])
			train := make([]int, 0, n-len(test))
			train = append(train, perm[:lo]...)
			train = append(train, perm[hi:]...)
			sort.Ints(test)
			sort.Ints(train)
			out = append(out, Resample{Train: train, Test: test})
		}
	}
	return out, nil
}

// Result is the cross-validated performance of one candidate.
type Result struct {
	// Index is the candidate's position in the searched list.
	Index int
	Spec  learn.Spec
	// RMSE holds one root-mean-squared error per resample.
	RMSE   []float64
	Mean   float64
	StdDev float64
}

// CrossValidate fits the candidate on each resample's training rows and scores it on the test rows.
func CrossValidate(spec learn.Spec, X mat.Matrix, y []float64, resamples []Resample, seed int64) (Result, error) {
	res := Result{Spec: spec, RMSE: make([]float64, len(resamples))}
	for i, rs := range resamples {
		model, err := spec.New(seed)
		if err != nil {
			return res, err
		}
		if err := model.Fit(Rows(X, rs.Train), Pick(y, rs.Train)); err != nil {
			return res, fmt.Errorf("resample %d: %w", i, err)
		}

		_, c := X.Dims()
		row := make([]float64, c)
		pred := make([]float64, len(rs.Test))
		for j, r := range rs.Test {
			pred[j] = model.Predict(mat.Row(row, r, X))
		}
		res.RMSE[i] = RMSE(pred, Pick(y, rs.Test))
	}
	res.Mean, res.StdDev = stat.MeanStdDev(res.RMSE, nil)
	return res, nil
}

// Options control a search.
type Options struct {
	// Seed is passed to every candidate's model.
	Seed int64
	// Workers bounds the number of candidates evaluated at once. Values below 2 run sequentially.
	Workers int
}

// Search cross-validates every candidate on the same resamples and returns the best result along with all results in candidate order.
func Search(ctx context.Context, specs []learn.Spec, X mat.Matrix, y []float64, resamples []Resample, opts Options) (Result, []Result, error) {
	if len(specs) == 0 {
		return Result{}, nil, fmt.Errorf("no candidates to search")
	}

	results := make([]Result, len(specs))
	g, ctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := CrossValidate(spec, X, y, resamples, opts.Seed)
			if err != nil {
				return fmt.Errorf("candidate %s: %w", spec, err)
			}
			r.Index = i
			results[i] = r
			log.WithFields(log.Fields{"candidate": spec.String(), "rmse": r.Mean, "sd": r.StdDev}).Debug("cross-validated")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, nil, err
	}

	best, err := Best(results)
	return best, results, err
}

// Best returns the result with the lowest mean RMSE. Ties go to the earliest result.
func Best(results []Result) (Result, error) {
	bestIdx := -1
	for i, r := range results {
		if math.IsNaN(r.Mean) {
			continue
		}
		if bestIdx < 0 || r.Mean < results[bestIdx].Mean-1e-12 {
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return Result{}, fmt.Errorf("no candidate produced a finite error")
	}
	return results[bestIdx], nil
}

// RMSE is the root-mean-squared difference between predictions and observations.
func RMSE(pred, obs []float64) float64 {
	if len(pred) == 0 {
		return math.NaN()
	}
	sse := 0.
	for i := range pred {
		d := pred[i] - obs[i]
		sse += d * d
	}
	return math.Sqrt(sse / float64(len(pred)))
}

// Rows copies the indexed rows of X into a new matrix.
func Rows(X mat.Matrix, idx []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(idx), c, nil)
	row := make([]float64, c)
	for i, r := range idx {
		out.SetRow(i, mat.Row(row, r, X))
	}
	return out
}

// Pick copies the indexed values of v.
func Pick(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v[r]
	}
	return out
}
