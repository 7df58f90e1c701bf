// Package bundle persists named collections of fitted models, one collection per season.
package bundle

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/reallyasi9/pool-margins/internal/learn"
	"github.com/reallyasi9/pool-margins/internal/pool"
	"github.com/segmentio/fasthash/jody"
	yaml "gopkg.in/yaml.v2"
)

// ErrNoBundle is returned when no bundle is stored for a season.
var ErrNoBundle = errors.New("no model bundle")

// ErrSchemaMismatch is returned when a bundle was fit on a different feature schema.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

// NamedModel is a fitted model and the name it is reported under.
type NamedModel struct {
	Name  string      `yaml:"name"`
	Spec  learn.Spec  `yaml:"spec"`
	Sigma float64     `yaml:"sigma"`
	Model learn.Saved `yaml:"model"`
}

// Bundle is the unit of persistence: every model the trainer kept for a season.
type Bundle struct {
	Season     string       `yaml:"season"`
	Schema     []string     `yaml:"schema"`
	SchemaHash string       `yaml:"schema_hash"`
	Created    time.Time    `yaml:"created"`
	Seed       int64        `yaml:"seed"`
	Models     []NamedModel `yaml:"models"`
}

// SchemaHash fingerprints an ordered list of feature names.
func SchemaHash(schema []string) string {
	h := jody.HashString64("")
	for _, name := range schema {
		h = jody.AddString64(h, name)
		h = jody.AddString64(h, "\x00")
	}
	return fmt.Sprintf("%016x", h)
}

// New makes an empty bundle for a season and schema.
func New(season string, schema []string, seed int64) *Bundle {
	s := make([]string, len(schema))
	copy(s, schema)
	return &Bundle{
		Season:     season,
		Schema:     s,
		SchemaHash: SchemaHash(s),
		Created:    time.Now().UTC(),
		Seed:       seed,
	}
}

// Add appends a fitted model. Names must be unique within a bundle.
func (b *Bundle) Add(name string, spec learn.Spec, r learn.Regressor, sigma float64) error {
	for _, m := range b.Models {
		if m.Name == name {
			return fmt.Errorf("model \"%s\" already in bundle", name)
		}
	}
	saved, err := learn.Save(r)
	if err != nil {
		return err
	}
	b.Models = append(b.Models, NamedModel{Name: name, Spec: spec, Sigma: sigma, Model: saved})
	return nil
}

// Names lists the models in bundle order.
func (b *Bundle) Names() []string {
	out := make([]string, len(b.Models))
	for i, m := range b.Models {
		out[i] = m.Name
	}
	return out
}

// Retain drops every model not named. An empty list keeps everything. Naming a model that is not in the bundle is an error.
func (b *Bundle) Retain(names []string) error {
	if len(names) == 0 {
		return nil
	}
	keep := make(map[string]bool)
	for _, n := range names {
		keep[n] = true
	}
	kept := make([]NamedModel, 0, len(names))
	for _, m := range b.Models {
		if keep[m.Name] {
			kept = append(kept, m)
			delete(keep, m.Name)
		}
	}
	if len(keep) > 0 {
		missing := make([]string, 0, len(keep))
		for _, n := range names {
			if keep[n] {
				missing = append(missing, n)
			}
		}
		return fmt.Errorf("models %v not trained", missing)
	}
	b.Models = kept
	return nil
}

// Check verifies that the bundle was fit on the given schema.
func (b *Bundle) Check(schema []string) error {
	if b.SchemaHash != SchemaHash(schema) {
		return fmt.Errorf("%w: bundle %v, expected %v", ErrSchemaMismatch, b.Schema, schema)
	}
	return nil
}

// Predictors unwraps the bundle into models ready to predict games.
func (b *Bundle) Predictors() ([]pool.Model, error) {
	out := make([]pool.Model, len(b.Models))
	for i, m := range b.Models {
		r, err := m.Model.Regressor()
		if err != nil {
			return nil, fmt.Errorf("model \"%s\": %w", m.Name, err)
		}
		out[i] = pool.Model{Name: m.Name, Predictor: r, Features: m.Model.Features(), Sigma: m.Sigma}
	}
	return out, nil
}

// Encode writes the bundle as YAML.
func (b *Bundle) Encode(w io.Writer) error {
	out, err := yaml.Marshal(b)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// Decode reads a YAML bundle.
func Decode(r io.Reader) (*Bundle, error) {
	in, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var b Bundle
	if err := yaml.Unmarshal(in, &b); err != nil {
		return nil, fmt.Errorf("decoding bundle: %w", err)
	}
	return &b, nil
}
