package learn

// Grid lists candidate hyperparameter values for a model family.
// Expand enumerates the Cartesian product in declared order, so the first value of each list
// should be the simplest or default setting: ties in cross-validation favor earlier candidates.
type Grid struct {
	Trees        []int     `yaml:"trees,omitempty"`
	SplitRule    []string  `yaml:"split_rule,omitempty"`
	MTry         []int     `yaml:"mtry,omitempty"`
	MinNodeSize  []int     `yaml:"min_node_size,omitempty"`
	RandomSplits []int     `yaml:"random_splits,omitempty"`
	Cost         []float64 `yaml:"cost,omitempty"`
	Epsilon      []float64 `yaml:"epsilon,omitempty"`
}

// Expand returns every candidate Spec for the family. Linear models have no hyperparameters
// and always expand to a single candidate. Empty lists fall back to one default value.
func (g Grid) Expand(family Family, features []int) []Spec {
	switch family {
	case Forest:
		var out []Spec
		for _, trees := range orInts(g.Trees, 500) {
			for _, rule := range orStrings(g.SplitRule, SplitVariance) {
				for _, mtry := range orInts(g.MTry, 1) {
					if mtry > len(features) {
						continue
					}
					for _, size := range orInts(g.MinNodeSize, 5) {
						for _, rs := range orInts(g.RandomSplits, 1) {
							p := ForestParams{Trees: trees, SplitRule: rule, MTry: mtry, MinNodeSize: size, RandomSplits: rs}
							out = append(out, Spec{Family: Forest, Features: features, Forest: &p})
						}
					}
				}
			}
		}
		return out
	case SVR:
		var out []Spec
		for _, cost := range orFloats(g.Cost, 1) {
			for _, eps := range orFloats(g.Epsilon, 0.1) {
				p := SVRParams{Cost: cost, Epsilon: eps}
				out = append(out, Spec{Family: SVR, Features: features, SVR: &p})
			}
		}
		return out
	default:
		return []Spec{{Family: family, Features: features}}
	}
}

func orInts(v []int, def int) []int {
	if len(v) == 0 {
		return []int{def}
	}
	return v
}

func orFloats(v []float64, def float64) []float64 {
	if len(v) == 0 {
		return []float64{def}
	}
	return v
}

func orStrings(v []string, def string) []string {
	if len(v) == 0 {
		return []string{def}
	}
	return v
}
