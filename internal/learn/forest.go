package learn

import (
	"fmt"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/mat"
)

const (
	// SplitVariance chooses the split point that maximizes the decrease in response variance.
	SplitVariance = "variance"

	// SplitExtraTrees draws random split points and keeps the best of them.
	SplitExtraTrees = "extratrees"
)

// ForestParams are the hyperparameters of a random forest.
type ForestParams struct {
	Trees        int    `yaml:"trees"`
	SplitRule    string `yaml:"split_rule"`
	MTry         int    `yaml:"mtry"`
	MinNodeSize  int    `yaml:"min_node_size"`
	RandomSplits int    `yaml:"random_splits,omitempty"`
}

func (p ForestParams) withDefaults() ForestParams {
	if p.Trees <= 0 {
		p.Trees = 500
	}
	if p.SplitRule == "" {
		p.SplitRule = SplitVariance
	}
	if p.MTry <= 0 {
		p.MTry = 1
	}
	if p.MinNodeSize <= 0 {
		p.MinNodeSize = 5
	}
	if p.RandomSplits <= 0 {
		p.RandomSplits = 1
	}
	return p
}

func (p ForestParams) String() string {
	return fmt.Sprintf("trees=%d splitrule=%s mtry=%d min.node.size=%d", p.Trees, p.SplitRule, p.MTry, p.MinNodeSize)
}

// Node is a node of a regression tree stored in a flat slice.
// A node with Left == 0 is a leaf, since the root (index 0) is never a child.
type Node struct {
	Feature   int     `yaml:"f,omitempty"`
	Threshold float64 `yaml:"t,omitempty"`
	Left      int     `yaml:"l,omitempty"`
	Right     int     `yaml:"r,omitempty"`
	Value     float64 `yaml:"v"`
}

// Tree is a single regression tree.
type Tree struct {
	Nodes []Node `yaml:"nodes"`
}

// Predict walks the tree to a leaf. Observations equal to a threshold go left.
func (t Tree) Predict(x []float64) float64 {
	i := 0
	for t.Nodes[i].Left != 0 {
		n := t.Nodes[i]
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
	return t.Nodes[i].Value
}

// RandomForest is an ensemble of regression trees grown on bootstrap samples.
type RandomForest struct {
	Params   ForestParams `yaml:"params"`
	Features []int        `yaml:"features"`
	Seed     int64        `yaml:"seed"`
	Trees    []Tree       `yaml:"trees"`
}

// Fit grows Params.Trees trees. The same seed and data always grow the same forest.
func (f *RandomForest) Fit(X mat.Matrix, y []float64) error {
	n, err := checkShape(X, y, f.Features)
	if err != nil {
		return err
	}
	f.Params = f.Params.withDefaults()
	if f.Params.SplitRule != SplitVariance && f.Params.SplitRule != SplitExtraTrees {
		return fmt.Errorf("unknown split rule \"%s\"", f.Params.SplitRule)
	}
	if f.Params.MTry > len(f.Features) {
		return fmt.Errorf("mtry %d exceeds number of features %d", f.Params.MTry, len(f.Features))
	}

	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, len(f.Features))
		for j, c := range f.Features {
			rows[i][j] = X.At(i, c)
		}
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]Tree, f.Params.Trees)
	for t := range f.Trees {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.Intn(n)
		}
		g := &grower{x: rows, y: y, features: f.Features, params: f.Params, rng: rng}
		g.grow(sample)
		f.Trees[t] = Tree{Nodes: g.nodes}
	}
	return nil
}

// Predict averages the predictions of all trees.
func (f *RandomForest) Predict(x []float64) float64 {
	if len(f.Trees) == 0 {
		return 0
	}
	sum := 0.
	for _, t := range f.Trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(f.Trees))
}

type grower struct {
	x        [][]float64
	y        []float64
	features []int
	params   ForestParams
	rng      *rand.Rand
	nodes    []Node
}

func (g *grower) grow(idx []int) int {
	sum := 0.
	for _, i := range idx {
		sum += g.y[i]
	}
	id := len(g.nodes)
	g.nodes = append(g.nodes, Node{Value: sum / float64(len(idx))})

	if len(idx) <= g.params.MinNodeSize {
		return id
	}
	col, threshold, ok := g.bestSplit(idx, sum)
	if !ok {
		return id
	}

	k := 0
	for i := range idx {
		if g.x[idx[i]][col] <= threshold {
			idx[i], idx[k] = idx[k], idx[i]
			k++
		}
	}
	left := g.grow(idx[:k])
	right := g.grow(idx[k:])

	g.nodes[id].Feature = g.features[col]
	g.nodes[id].Threshold = threshold
	g.nodes[id].Left = left
	g.nodes[id].Right = right
	return id
}

// bestSplit returns the local column and threshold of the best split among mtry random columns.
func (g *grower) bestSplit(idx []int, sum float64) (int, float64, bool) {
	n := float64(len(idx))
	best := sum * sum / n
	bestCol := -1
	bestThreshold := 0.

	for _, col := range g.rng.Perm(len(g.features))[:g.params.MTry] {
		var score, threshold float64
		var ok bool
		if g.params.SplitRule == SplitExtraTrees {
			score, threshold, ok = g.randomSplit(idx, col, sum)
		} else {
			score, threshold, ok = g.varianceSplit(idx, col, sum)
		}
		if ok && score > best+1e-12 {
			best = score
			bestCol = col
			bestThreshold = threshold
		}
	}
	return bestCol, bestThreshold, bestCol >= 0
}

func (g *grower) varianceSplit(idx []int, col int, sum float64) (float64, float64, bool) {
	sorted := make([]int, len(idx))
	copy(sorted, idx)
	sort.Slice(sorted, func(a, b int) bool { return g.x[sorted[a]][col] < g.x[sorted[b]][col] })

	n := len(sorted)
	best := 0.
	threshold := 0.
	found := false
	left := 0.
	for k := 0; k < n-1; k++ {
		left += g.y[sorted[k]]
		a := g.x[sorted[k]][col]
		b := g.x[sorted[k+1]][col]
		if a == b {
			continue
		}
		nl := float64(k + 1)
		nr := float64(n - k - 1)
		right := sum - left
		score := left*left/nl + right*right/nr
		if !found || score > best {
			best = score
			threshold = midpoint(a, b)
			found = true
		}
	}
	return best, threshold, found
}

func (g *grower) randomSplit(idx []int, col int, sum float64) (float64, float64, bool) {
	lo := g.x[idx[0]][col]
	hi := lo
	for _, i := range idx[1:] {
		v := g.x[i][col]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		return 0, 0, false
	}

	best := 0.
	threshold := 0.
	found := false
	for r := 0; r < g.params.RandomSplits; r++ {
		t := lo + g.rng.Float64()*(hi-lo)
		if t >= hi {
			continue
		}
		left := 0.
		nl := 0
		for _, i := range idx {
			if g.x[i][col] <= t {
				left += g.y[i]
				nl++
			}
		}
		nr := len(idx) - nl
		if nl == 0 || nr == 0 {
			continue
		}
		right := sum - left
		score := left*left/float64(nl) + right*right/float64(nr)
		if !found || score > best {
			best = score
			threshold = t
			found = true
		}
	}
	return best, threshold, found
}

// midpoint returns a threshold t with a <= t < b.
func midpoint(a, b float64) float64 {
	t := a + (b-a)/2
	if t >= b {
		return a
	}
	return t
}
