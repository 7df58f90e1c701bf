package pool

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weeksOfGames(counts map[int]int) []Game {
	var games []Game
	for w := 1; w <= 18; w++ {
		for i := 0; i < counts[w]; i++ {
			games = append(games, Game{Week: w, Home: fmt.Sprintf("H%d-%d", w, i)})
		}
	}
	return games
}

func TestStratifiedSplit_Proportions(t *testing.T) {
	counts := make(map[int]int)
	for w := 1; w <= 18; w++ {
		counts[w] = 10 + (w*7)%7 + w%5
	}
	games := weeksOfGames(counts)

	train, test, err := StratifiedSplit(games, 0.8, 2023)
	require.NoError(t, err)
	assert.Equal(t, len(games), len(train)+len(test))

	trainCounts := WeekCounts(train)
	for w, n := range counts {
		share := float64(trainCounts[w]) / float64(n)
		// rounding within a week can move the share by at most half a game
		assert.InDelta(t, 0.8, share, 0.5/float64(n)+1e-9, "week %d", w)
	}

	overall := float64(len(train)) / float64(len(games))
	assert.InDelta(t, 0.8, overall, 0.05)
}

func TestStratifiedSplit_DeterministicAndDisjoint(t *testing.T) {
	games := weeksOfGames(map[int]int{1: 16, 2: 15, 3: 14})
	a1, b1, err := StratifiedSplit(games, 0.75, 7)
	require.NoError(t, err)
	a2, b2, err := StratifiedSplit(games, 0.75, 7)
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)

	seen := make(map[string]bool)
	for _, g := range append(append([]Game{}, a1...), b1...) {
		assert.False(t, seen[g.Home], "game %s in both partitions", g.Home)
		seen[g.Home] = true
	}
	assert.Len(t, seen, len(games))

	// a different seed should pick a different training set
	a3, _, err := StratifiedSplit(games, 0.75, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a1, a3)
}

func TestStratifiedSplit_BadFraction(t *testing.T) {
	for _, f := range []float64{0, 1, -0.5, 2, math.NaN()} {
		_, _, err := StratifiedSplit(nil, f, 0)
		assert.Error(t, err, "fraction %v", f)
	}
}

func TestStratifiedSplit_SmallWeeks(t *testing.T) {
	games := weeksOfGames(map[int]int{1: 1, 2: 2, 3: 3, 4: 10})

	train, test, err := StratifiedSplit(games, 0.8, 7)
	require.NoError(t, err)

	trainCounts := WeekCounts(train)
	testCounts := WeekCounts(test)
	assert.Equal(t, 1, trainCounts[1])
	assert.Equal(t, 2, trainCounts[2])
	assert.Zero(t, testCounts[1])
	assert.Zero(t, testCounts[2])
	assert.Equal(t, 1, testCounts[3])
	assert.Equal(t, 2, testCounts[4])
}
