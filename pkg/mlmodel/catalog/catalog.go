// Package catalog maps model ids to the model families trained by the
// pipeline: a pipeline shape plus the hyperparameter grid to search.
package catalog

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Catalog is a registry of model configs. Lookups return copies.
type Catalog struct {
	configs map[string]models.ModelConfig
	aliases map[string]string
	order   []string
}

// New creates an empty catalog
func New() *Catalog {
	return &Catalog{
		configs: make(map[string]models.ModelConfig),
		aliases: make(map[string]string),
	}
}

// Default returns the catalog of built-in model families
func Default() *Catalog {
	c := New()
	for _, cfg := range builtin() {
		// built-in entries are valid by construction
		_ = c.Register(cfg)
	}
	_ = c.Alias("lr", "logistic_regression")
	return c
}

// Register adds a config. Ids must be unique and every parameter needs at
// least one candidate value.
func (c *Catalog) Register(cfg models.ModelConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("model config has no id")
	}
	if _, ok := c.configs[cfg.ID]; ok {
		return fmt.Errorf("model %q is already registered", cfg.ID)
	}
	if _, ok := c.aliases[cfg.ID]; ok {
		return fmt.Errorf("model %q is already registered as an alias", cfg.ID)
	}
	if cfg.SearchSpace.Size() == 0 {
		return fmt.Errorf("model %q has an empty search space", cfg.ID)
	}
	c.configs[cfg.ID] = cfg.Clone()
	c.order = append(c.order, cfg.ID)
	return nil
}

// Alias makes alias resolve to the config registered under id
func (c *Catalog) Alias(alias, id string) error {
	if _, ok := c.configs[id]; !ok {
		return &models.UnknownModelError{ID: id}
	}
	if _, ok := c.configs[alias]; ok {
		return fmt.Errorf("alias %q shadows a registered model", alias)
	}
	c.aliases[alias] = id
	return nil
}

// Get returns the config registered under id or one of its aliases
func (c *Catalog) Get(id string) (models.ModelConfig, error) {
	if target, ok := c.aliases[id]; ok {
		id = target
	}
	cfg, ok := c.configs[id]
	if !ok {
		return models.ModelConfig{}, &models.UnknownModelError{ID: id}
	}
	return cfg.Clone(), nil
}

// IDs returns the registered ids in registration order
func (c *Catalog) IDs() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Aliases returns alias -> id, sorted by alias
func (c *Catalog) Aliases() [][2]string {
	out := make([][2]string, 0, len(c.aliases))
	for a, id := range c.aliases {
		out = append(out, [2]string{a, id})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}

type catalogFile struct {
	Models  []models.ModelConfig `yaml:"models"`
	Aliases map[string]string    `yaml:"aliases"`
}

// LoadYAML registers the models and aliases of a YAML catalog document, e.g.
//
//	models:
//	  - id: nb_small
//	    name: MultinomialNB
//	    pipeline: {vectorizer: tfidf, classifier: multinomial_nb}
//	    search_space:
//	      - {name: alpha, values: [0.1, 1.0]}
//	aliases:
//	  nb: nb_small
func (c *Catalog) LoadYAML(r io.Reader) error {
	var doc catalogFile
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}
	for _, cfg := range doc.Models {
		for i, p := range cfg.SearchSpace {
			cfg.SearchSpace[i].Values = normalizeValues(p.Values)
		}
		if err := c.Register(cfg); err != nil {
			return err
		}
	}

	aliases := make([]string, 0, len(doc.Aliases))
	for a := range doc.Aliases {
		aliases = append(aliases, a)
	}
	sort.Strings(aliases)
	for _, a := range aliases {
		if err := c.Alias(a, doc.Aliases[a]); err != nil {
			return fmt.Errorf("alias %q: %w", a, err)
		}
	}
	return nil
}

// LoadFile registers the models of a YAML catalog file
func (c *Catalog) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return c.LoadYAML(f)
}

// normalizeValues turns YAML integers into float64 so numeric parameters
// have a single representation
func normalizeValues(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		switch n := v.(type) {
		case int:
			out[i] = float64(n)
		case int64:
			out[i] = float64(n)
		default:
			out[i] = v
		}
	}
	return out
}

// Logspace returns n values evenly spaced on a log10 scale from 10^start to 10^stop
func Logspace(start, stop float64, n int) []any {
	out := make([]any, n)
	for i, v := range linspace(start, stop, n) {
		out[i] = math.Pow(10, v)
	}
	return out
}

// Linspace returns n evenly spaced values from start to stop inclusive
func Linspace(start, stop float64, n int) []any {
	out := make([]any, n)
	for i, v := range linspace(start, stop, n) {
		out[i] = v
	}
	return out
}

func linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[n-1] = stop
	return out
}
