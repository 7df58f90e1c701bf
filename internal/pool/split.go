package pool

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions games into training and test sets week by week, sending round(n*fraction)
// of each week's games to training. Both sets keep the input order.
// Rounding means a week with very few games can land entirely in training: at a fraction of 0.8,
// weeks of one or two games contribute nothing to the test set.
func StratifiedSplit(games []Game, fraction float64, seed int64) (train, test []Game, err error) {
	if !(fraction > 0 && fraction < 1) {
		return nil, nil, fmt.Errorf("training fraction must be in (0,1), got %f", fraction)
	}

	byWeek := make(map[int][]int)
	for i, g := range games {
		byWeek[g.Week] = append(byWeek[g.Week], i)
	}
	weeks := make([]int, 0, len(byWeek))
	for w := range byWeek {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)

	rng := rand.New(rand.NewSource(seed))
	inTrain := make([]bool, len(games))
	for _, w := range weeks {
		idx := byWeek[w]
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
		nTrain := int(math.Round(fraction * float64(len(idx))))
		for _, i := range idx[:nTrain] {
			inTrain[i] = true
		}
	}

	for i, g := range games {
		if inTrain[i] {
			train = append(train, g)
		} else {
			test = append(test, g)
		}
	}
	return train, test, nil
}

// WeekCounts tallies games per week.
func WeekCounts(games []Game) map[int]int {
	out := make(map[int]int)
	for _, g := range games {
		out[g.Week]++
	}
	return out
}
