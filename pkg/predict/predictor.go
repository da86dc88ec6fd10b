// Package predict serves a persisted sentiment model.
package predict

import (
	"errors"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/training"
	"github.com/mimir-aip/sentiment-go/pkg/storage"
)

// Display labels for binary label spaces
const (
	LabelPositive = "Positif"
	LabelNegative = "Négatif"
)

// ErrNoModel is returned when no model has been loaded yet
var ErrNoModel = errors.New("no model loaded")

// Normalizer cleans input text before prediction
type Normalizer interface {
	Normalize(text string) string
}

// Prediction is the outcome of classifying one text
type Prediction struct {
	Index   int
	Label   string // raw label from the training data
	Display string
}

// Predictor holds the served model. The model is immutable once loaded and is
// swapped atomically on reload, so Predict takes no locks.
type Predictor struct {
	path       string
	normalizer Normalizer
	logger     *zap.Logger
	model      atomic.Pointer[training.FittedModel]
}

// NewPredictor creates a predictor for the artifact at path. normalizer may be
// nil, in which case text is passed to the model as is.
func NewPredictor(path string, normalizer Normalizer, logger *zap.Logger) *Predictor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Predictor{path: path, normalizer: normalizer, logger: logger}
}

// Path returns the artifact path the predictor loads from
func (p *Predictor) Path() string {
	return p.path
}

// Reload loads the artifact from disk and swaps it in. On error the previous
// model stays in place.
func (p *Predictor) Reload() error {
	model, err := storage.LoadModel(p.path)
	if err != nil {
		p.logger.Error("Failed to load model", zap.String("path", p.path), zap.Error(err))
		return err
	}
	p.Set(model)
	p.logger.Info("Model loaded",
		zap.String("path", p.path),
		zap.String("model_id", model.ModelID),
		zap.Strings("labels", model.Labels))
	return nil
}

// Set replaces the served model
func (p *Predictor) Set(model *training.FittedModel) {
	p.model.Store(model)
}

// Model returns the served model, or nil
func (p *Predictor) Model() *training.FittedModel {
	return p.model.Load()
}

// Ready reports whether a model is loaded
func (p *Predictor) Ready() bool {
	return p.model.Load() != nil
}

// Predict classifies text with the current model
func (p *Predictor) Predict(text string) (*Prediction, error) {
	model := p.model.Load()
	if model == nil {
		return nil, ErrNoModel
	}

	if p.normalizer != nil {
		text = p.normalizer.Normalize(text)
	}
	idx, err := model.PredictIndex(text)
	if err != nil {
		return nil, err
	}
	return &Prediction{
		Index:   idx,
		Label:   model.Labels[idx],
		Display: DisplayLabel(model.Labels, idx),
	}, nil
}

// DisplayLabel maps a predicted index to the label shown to users. Binary
// label spaces read as Positif (index 1) and Négatif (index 0); otherwise the
// raw label is returned.
func DisplayLabel(labels []string, idx int) string {
	if len(labels) == 2 {
		if idx == 1 {
			return LabelPositive
		}
		return LabelNegative
	}
	return labels[idx]
}
