package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/reallyasi9/pool-margins/internal/learn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "pool.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
bundle_dir: /tmp/bundles
seasons:
  "2023":
    sheet: 1AbCdEf
    games_range: "Week Games!A:F"
training:
  seed: 5
  folds: 5
  retain: ["SVR"]
models:
  - name: SVR
    family: svr
    grid:
      cost: [0.1, 1]
`)
	c, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreFile, c.Store)
	assert.Equal(t, "/tmp/bundles", c.BundleDir)
	assert.Equal(t, int64(5), c.Training.Seed)
	assert.Equal(t, 5, c.Training.Folds)
	// untouched settings keep their defaults
	assert.Equal(t, 3, c.Training.Repeats)
	assert.Equal(t, 0.8, c.Training.TrainFraction)
	require.Len(t, c.Models, 1)
	assert.Equal(t, learn.SVR, c.Models[0].Family)
	assert.Equal(t, []float64{0.1, 1}, c.Models[0].Grid.Cost)

	s, err := c.Season("2023")
	require.NoError(t, err)
	assert.Equal(t, "1AbCdEf", s.Sheet)
	assert.Equal(t, "Training!A:G", s.TrainingRange)
	assert.Equal(t, "Week Games!A:F", s.GamesRange)
}

func TestSeason_Unknown(t *testing.T) {
	_, err := Default().Season("1999")
	assert.True(t, errors.Is(err, ErrUnknownSeason))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"store", func(c *Config) { c.Store = "s3" }},
		{"fraction", func(c *Config) { c.Training.TrainFraction = 1 }},
		{"folds", func(c *Config) { c.Training.Folds = 1 }},
		{"repeats", func(c *Config) { c.Training.Repeats = 0 }},
		{"no models", func(c *Config) { c.Models = nil }},
		{"duplicate", func(c *Config) { c.Models = append(c.Models, c.Models[0]) }},
		{"family", func(c *Config) { c.Models[0].Family = "knn" }},
		{"unnamed", func(c *Config) { c.Models[0].Name = "" }},
		{"retain", func(c *Config) { c.Training.Retain = []string{"nope"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "training: [1, 2"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "store: bigtable"))
	assert.Error(t, err)
}

func TestFeatureIndices(t *testing.T) {
	schema := []string{"final_spread", "strength_differential"}
	idx, err := Model{Name: "a"}.FeatureIndices(schema)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, idx)

	idx, err = Model{Name: "b", Features: []string{"strength_differential"}}.FeatureIndices(schema)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, idx)

	_, err = Model{Name: "c", Features: []string{"weather"}}.FeatureIndices(schema)
	assert.Error(t, err)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("POOL_CONFIG", "/etc/pool.yaml")
	t.Setenv("GCP_PROJECT", "pool-project")
	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "/etc/pool.yaml", env.ConfigFile)
	assert.Equal(t, "pool-project", env.ProjectID)
}

func TestLoad_Example(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "pool.example.yaml"))
	require.NoError(t, err)
	assert.Len(t, c.Models, 4)
	assert.Equal(t, 4, c.Training.Workers)

	s, err := c.Season("2022")
	require.NoError(t, err)
	assert.Equal(t, "data/2022.csv", s.Sheet)
	assert.Equal(t, "archive/models", s.BundleDir)

	s, err = c.Season("2023")
	require.NoError(t, err)
	assert.Equal(t, "models", s.BundleDir)
	assert.Equal(t, "Games!A:G", s.GamesRange)
}
