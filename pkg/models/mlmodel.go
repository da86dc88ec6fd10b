package models

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// VectorizerKind identifies the text vectorization stage of a pipeline
type VectorizerKind string

const (
	VectorizerTfidf VectorizerKind = "tfidf"
)

// ClassifierKind identifies the classifier stage of a pipeline
type ClassifierKind string

const (
	ClassifierSVM                ClassifierKind = "svc"
	ClassifierNaiveBayes         ClassifierKind = "multinomial_nb"
	ClassifierLogisticRegression ClassifierKind = "logistic_regression"
	ClassifierNeuralNetwork      ClassifierKind = "mlp"
)

// PipelineShape describes the stages of a model pipeline
type PipelineShape struct {
	Vectorizer VectorizerKind `json:"vectorizer" yaml:"vectorizer"`
	Classifier ClassifierKind `json:"classifier" yaml:"classifier"`
}

// Param is one hyperparameter and its finite candidate set.
// Values are float64 or string.
type Param struct {
	Name   string `json:"name" yaml:"name"`
	Values []any  `json:"values" yaml:"values"`
}

// SearchSpace is an ordered list of hyperparameters
type SearchSpace []Param

// Size returns the number of combinations in the Cartesian product
func (s SearchSpace) Size() int {
	if len(s) == 0 {
		return 0
	}
	size := 1
	for _, p := range s {
		size *= len(p.Values)
	}
	return size
}

// Grid enumerates every combination. The last parameter varies fastest.
func (s SearchSpace) Grid() []Params {
	size := s.Size()
	if size == 0 {
		return nil
	}

	grid := make([]Params, 0, size)
	idx := make([]int, len(s))
	for n := 0; n < size; n++ {
		p := make(Params, len(s))
		for i, param := range s {
			p[param.Name] = param.Values[idx[i]]
		}
		grid = append(grid, p)

		// odometer increment
		for i := len(s) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(s[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return grid
}

// ModelConfig describes a model family: its pipeline shape and the
// hyperparameter space searched when fitting it
type ModelConfig struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	Pipeline    PipelineShape `json:"pipeline" yaml:"pipeline"`
	SearchSpace SearchSpace   `json:"search_space" yaml:"search_space"`
}

// Clone returns a deep copy so catalog entries cannot be mutated by callers
func (c ModelConfig) Clone() ModelConfig {
	out := c
	out.SearchSpace = make(SearchSpace, len(c.SearchSpace))
	for i, p := range c.SearchSpace {
		values := make([]any, len(p.Values))
		copy(values, p.Values)
		out.SearchSpace[i] = Param{Name: p.Name, Values: values}
	}
	return out
}

func (c ModelConfig) String() string {
	return fmt.Sprintf("%s\nN° of params: %d", c.Name, len(c.SearchSpace))
}

// Params is one point of a search space
type Params map[string]any

// Float returns a numeric parameter
func (p Params) Float(name string) (float64, error) {
	v, ok := p[name]
	if !ok {
		return 0, fmt.Errorf("missing parameter %q", name)
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %q is not numeric: %v", name, v)
	}
}

// Choice returns a string parameter
func (p Params) Choice(name string) (string, error) {
	v, ok := p[name]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", name)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("parameter %q is not a string: %v", name, v)
	}
	return s, nil
}

// Key renders the parameters in a stable form, e.g. "C=10 kernel=rbf"
func (p Params) Key() string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s=%v", name, p[name])
	}
	return strings.Join(parts, " ")
}

// Clone returns a shallow copy of the parameter map
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ModelRecord tracks the latest persisted artifact of a model family
type ModelRecord struct {
	ModelID      string    `json:"model_id"`
	RunID        string    `json:"run_id"`
	ArtifactPath string    `json:"artifact_path"`
	ReportPath   string    `json:"report_path,omitempty"`
	Classifier   string    `json:"classifier"`
	Labels       []string  `json:"labels"`
	Params       Params    `json:"params,omitempty"`
	CVScore      float64   `json:"cv_score"`
	Accuracy     float64   `json:"accuracy"`
	TrainedAt    time.Time `json:"trained_at"`
}
