// Package config loads the pool model configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"github.com/reallyasi9/pool-margins/internal/learn"
	yaml "gopkg.in/yaml.v2"
)

// ErrUnknownSeason is returned when a season is not configured.
var ErrUnknownSeason = errors.New("unknown season")

const (
	// StoreFile keeps bundles as YAML files under BundleDir.
	StoreFile = "file"

	// StoreFirestore keeps bundles in Firestore.
	StoreFirestore = "firestore"
)

// Env holds settings taken from the environment.
type Env struct {
	ConfigFile  string `envconfig:"POOL_CONFIG" default:"pool.yaml"`
	Credentials string `envconfig:"GOOGLE_APPLICATION_CREDENTIALS"`
	ProjectID   string `envconfig:"GCP_PROJECT"`
}

// LoadEnv reads Env from the environment.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Season locates a season's data.
type Season struct {
	// Sheet is a spreadsheet ID, or a path to a local CSV file.
	Sheet         string `yaml:"sheet"`
	TrainingRange string `yaml:"training_range"`
	GamesRange    string `yaml:"games_range"`
	// BundleDir overrides the top-level bundle_dir for this season's file store.
	BundleDir     string `yaml:"bundle_dir"`
}

// Model is a named model definition and its hyperparameter grid.
type Model struct {
	Name     string       `yaml:"name"`
	Family   learn.Family `yaml:"family"`
	Features []string     `yaml:"features"`
	Grid     learn.Grid   `yaml:"grid"`
}

// FeatureIndices maps the model's feature names to schema columns. No names means every column.
func (m Model) FeatureIndices(schema []string) ([]int, error) {
	if len(m.Features) == 0 {
		out := make([]int, len(schema))
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, 0, len(m.Features))
	for _, f := range m.Features {
		found := -1
		for i, s := range schema {
			if s == f {
				found = i
				break
			}
		}
		if found < 0 {
			return nil, fmt.Errorf("model \"%s\": feature \"%s\" not in schema %v", m.Name, f, schema)
		}
		out = append(out, found)
	}
	return out, nil
}

// Sweep sets the synthetic ranges used to sanity-check fitted models.
type Sweep struct {
	SpreadMin    float64 `yaml:"spread_min"`
	SpreadMax    float64 `yaml:"spread_max"`
	SpreadStep   float64 `yaml:"spread_step"`
	StrengthMin  float64 `yaml:"strength_min"`
	StrengthMax  float64 `yaml:"strength_max"`
	StrengthStep float64 `yaml:"strength_step"`
}

// Training controls the model trainer.
type Training struct {
	Seed          int64    `yaml:"seed"`
	TrainFraction float64  `yaml:"train_fraction"`
	Folds         int      `yaml:"folds"`
	Repeats       int      `yaml:"repeats"`
	Workers       int      `yaml:"workers"`
	Retain        []string `yaml:"retain"`
	Sweep         Sweep    `yaml:"sweep"`
}

// Config is the whole configuration file.
type Config struct {
	Store     string            `yaml:"store"`
	BundleDir string            `yaml:"bundle_dir"`
	OutputDir string            `yaml:"output_dir"`
	Seasons   map[string]Season `yaml:"seasons"`
	Training  Training          `yaml:"training"`
	Models    []Model           `yaml:"models"`
}

// Default returns the built-in configuration. The grids and the fixed tree count are judgment calls carried over
// from earlier seasons' tuning; override them in the config file rather than in code.
func Default() *Config {
	return &Config{
		Store:     StoreFile,
		BundleDir: "models",
		OutputDir: "predictions",
		Seasons:   make(map[string]Season),
		Training: Training{
			Seed:          20230907,
			TrainFraction: 0.8,
			Folds:         10,
			Repeats:       3,
			Workers:       1,
			Sweep: Sweep{
				SpreadMin:    -21,
				SpreadMax:    21,
				SpreadStep:   3,
				StrengthMin:  -0.5,
				StrengthMax:  0.5,
				StrengthStep: 0.1,
			},
		},
		Models: []Model{
			{Name: "Spread LM", Family: learn.Linear, Features: []string{"final_spread"}},
			{Name: "DAVE + Spread LM", Family: learn.Linear, Features: []string{"final_spread", "strength_differential"}},
			{
				Name:   "DAVE + Spread RF",
				Family: learn.Forest,
				Grid: learn.Grid{
					Trees:       []int{500},
					SplitRule:   []string{learn.SplitVariance, learn.SplitExtraTrees},
					MTry:        []int{1, 2},
					MinNodeSize: []int{80, 40, 20, 10, 5},
				},
			},
			{
				Name:   "DAVE + Spread SVR",
				Family: learn.SVR,
				Grid: learn.Grid{
					Cost:    []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
					Epsilon: []float64{0.1},
				},
			},
		},
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	in, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	if err := yaml.Unmarshal(in, c); err != nil {
		return nil, fmt.Errorf("parsing config \"%s\": %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config \"%s\": %w", path, err)
	}
	return c, nil
}

// Validate checks settings the trainer and predictor depend on.
func (c *Config) Validate() error {
	if c.Store != StoreFile && c.Store != StoreFirestore {
		return fmt.Errorf("unknown store \"%s\"", c.Store)
	}
	t := c.Training
	if !(t.TrainFraction > 0 && t.TrainFraction < 1) {
		return fmt.Errorf("train_fraction must be in (0,1), got %f", t.TrainFraction)
	}
	if t.Folds < 2 {
		return fmt.Errorf("folds must be at least 2, got %d", t.Folds)
	}
	if t.Repeats < 1 {
		return fmt.Errorf("repeats must be at least 1, got %d", t.Repeats)
	}
	if len(c.Models) == 0 {
		return fmt.Errorf("no models defined")
	}
	names := make(map[string]bool)
	for _, m := range c.Models {
		if m.Name == "" {
			return fmt.Errorf("model with family \"%s\" has no name", m.Family)
		}
		if names[m.Name] {
			return fmt.Errorf("model \"%s\" defined twice", m.Name)
		}
		names[m.Name] = true
		switch m.Family {
		case learn.Linear, learn.Forest, learn.SVR:
		default:
			return fmt.Errorf("model \"%s\": unknown family \"%s\"", m.Name, m.Family)
		}
	}
	for _, r := range t.Retain {
		if !names[r] {
			return fmt.Errorf("retained model \"%s\" is not defined", r)
		}
	}
	return nil
}

// Season looks up a season by key, filling in default ranges and the bundle directory.
func (c *Config) Season(key string) (Season, error) {
	s, ok := c.Seasons[key]
	if !ok {
		return Season{}, fmt.Errorf("%w \"%s\"", ErrUnknownSeason, key)
	}
	if s.TrainingRange == "" {
		s.TrainingRange = "Training!A:G"
	}
	if s.GamesRange == "" {
		s.GamesRange = "Games!A:G"
	}
	if s.BundleDir == "" {
		s.BundleDir = c.BundleDir
	}
	return s, nil
}
