package training

import (
	"encoding/json"
	"fmt"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// FormatVersion is bumped whenever the persisted model layout changes
const FormatVersion = 1

// FittedModel is a trained vectorizer + classifier pipeline together with the
// label space and hyperparameters it was fitted with
type FittedModel struct {
	ModelID    string
	Labels     []string
	Params     models.Params
	Vectorizer *TfidfVectorizer
	Classifier Classifier
}

// Fit vectorizes texts, trains clf on them and returns the fitted pipeline
func Fit(modelID string, labels []string, params models.Params, texts []string, y []int, clf Classifier) (*FittedModel, error) {
	vec := NewTfidfVectorizer()
	X, err := vec.FitTransform(texts)
	if err != nil {
		return nil, fmt.Errorf("failed to fit vectorizer: %w", err)
	}
	if err := clf.Fit(X, y, len(labels), vec.NumFeatures()); err != nil {
		return nil, fmt.Errorf("failed to fit %s: %w", clf.Kind(), err)
	}
	return &FittedModel{
		ModelID:    modelID,
		Labels:     labels,
		Params:     params.Clone(),
		Vectorizer: vec,
		Classifier: clf,
	}, nil
}

// PredictIndex returns the label index predicted for text
func (m *FittedModel) PredictIndex(text string) (int, error) {
	if m.Vectorizer == nil || m.Classifier == nil {
		return 0, fmt.Errorf("model %q is not fitted", m.ModelID)
	}
	return PredictIndex(m.Classifier, m.Vectorizer.Transform([]string{text})[0]), nil
}

// Predict returns the label predicted for text
func (m *FittedModel) Predict(text string) (string, error) {
	idx, err := m.PredictIndex(text)
	if err != nil {
		return "", err
	}
	return m.Labels[idx], nil
}

// PredictBatch returns the label index predicted for each text
func (m *FittedModel) PredictBatch(texts []string) ([]int, error) {
	if m.Vectorizer == nil || m.Classifier == nil {
		return nil, fmt.Errorf("model %q is not fitted", m.ModelID)
	}
	rows := m.Vectorizer.Transform(texts)
	out := make([]int, len(rows))
	for i, x := range rows {
		out[i] = PredictIndex(m.Classifier, x)
	}
	return out, nil
}

type fittedModelJSON struct {
	FormatVersion int                   `json:"format_version"`
	ModelID       string                `json:"model_id"`
	Classifier    models.ClassifierKind `json:"classifier"`
	Labels        []string              `json:"labels"`
	Params        models.Params         `json:"params"`
	Vectorizer    *TfidfVectorizer      `json:"vectorizer"`
	State         json.RawMessage       `json:"state"`
}

// MarshalJSON implements json.Marshaler. Struct fields keep their declared
// order and map keys are sorted, so equal models encode to equal bytes.
func (m *FittedModel) MarshalJSON() ([]byte, error) {
	if m.Classifier == nil {
		return nil, fmt.Errorf("model %q has no classifier", m.ModelID)
	}
	state, err := json.Marshal(m.Classifier)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier state: %w", err)
	}
	return json.Marshal(fittedModelJSON{
		FormatVersion: FormatVersion,
		ModelID:       m.ModelID,
		Classifier:    m.Classifier.Kind(),
		Labels:        m.Labels,
		Params:        m.Params,
		Vectorizer:    m.Vectorizer,
		State:         state,
	})
}

// UnmarshalJSON implements json.Unmarshaler
func (m *FittedModel) UnmarshalJSON(data []byte) error {
	var raw fittedModelJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.FormatVersion != FormatVersion {
		return fmt.Errorf("unsupported model format version %d", raw.FormatVersion)
	}
	if raw.Vectorizer == nil || len(raw.Labels) < 2 {
		return fmt.Errorf("model %q is incomplete", raw.ModelID)
	}
	if len(raw.Vectorizer.Terms) != len(raw.Vectorizer.IDF) {
		return fmt.Errorf("model %q has %d terms and %d idf weights", raw.ModelID, len(raw.Vectorizer.Terms), len(raw.Vectorizer.IDF))
	}

	clf, err := defaultFactory.zero(raw.Classifier)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw.State, clf); err != nil {
		return fmt.Errorf("failed to decode %s state: %w", raw.Classifier, err)
	}
	if err := clf.Validate(len(raw.Labels), len(raw.Vectorizer.Terms)); err != nil {
		return fmt.Errorf("invalid %s state in model %q: %w", raw.Classifier, raw.ModelID, err)
	}
	raw.Vectorizer.buildIndex()

	*m = FittedModel{
		ModelID:    raw.ModelID,
		Labels:     raw.Labels,
		Params:     raw.Params,
		Vectorizer: raw.Vectorizer,
		Classifier: clf,
	}
	return nil
}
