package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchSpaceGrid(t *testing.T) {
	space := SearchSpace{
		{Name: "C", Values: []any{1.0, 10.0}},
		{Name: "kernel", Values: []any{"linear", "rbf", "poly"}},
	}

	grid := space.Grid()

	require.Len(t, grid, 6)
	assert.Equal(t, 6, space.Size())
	assert.Equal(t, Params{"C": 1.0, "kernel": "linear"}, grid[0])
	assert.Equal(t, Params{"C": 1.0, "kernel": "rbf"}, grid[1])
	assert.Equal(t, Params{"C": 10.0, "kernel": "linear"}, grid[3])
	assert.Equal(t, Params{"C": 10.0, "kernel": "poly"}, grid[5])
}

func TestSearchSpaceEmpty(t *testing.T) {
	assert.Equal(t, 0, SearchSpace{}.Size())
	assert.Nil(t, SearchSpace{}.Grid())
	assert.Equal(t, 0, SearchSpace{{Name: "a"}}.Size())
}

func TestModelConfigClone(t *testing.T) {
	orig := ModelConfig{
		ID:          "nb",
		SearchSpace: SearchSpace{{Name: "alpha", Values: []any{0.1, 0.5}}},
	}

	clone := orig.Clone()
	clone.SearchSpace[0].Values[0] = 99.0

	assert.Equal(t, 0.1, orig.SearchSpace[0].Values[0])
}

func TestParams(t *testing.T) {
	p := Params{"C": 10.0, "kernel": "rbf", "hidden_units": 16}

	c, err := p.Float("C")
	require.NoError(t, err)
	assert.Equal(t, 10.0, c)

	h, err := p.Float("hidden_units")
	require.NoError(t, err)
	assert.Equal(t, 16.0, h)

	k, err := p.Choice("kernel")
	require.NoError(t, err)
	assert.Equal(t, "rbf", k)

	_, err = p.Float("kernel")
	assert.Error(t, err)
	_, err = p.Choice("C")
	assert.Error(t, err)
	_, err = p.Float("gamma")
	assert.Error(t, err)

	assert.Equal(t, "C=10 hidden_units=16 kernel=rbf", p.Key())
}

func TestErrorsMatchSentinels(t *testing.T) {
	var err error = fmt.Errorf("resolve: %w", &UnknownModelError{ID: "bogus"})
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.False(t, errors.Is(err, ErrInsufficientData))

	var unknown *UnknownModelError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "bogus", unknown.ID)

	err = &InsufficientDataError{Label: "1", Count: 3, Folds: 5}
	assert.True(t, errors.Is(err, ErrInsufficientData))
	assert.Contains(t, err.Error(), `"1"`)

	assert.True(t, errors.Is(DataFormatError("row %d", 3), ErrDataFormat))
	assert.True(t, errors.Is(PersistenceError("write", "/x", errors.New("disk full")), ErrPersistence))
}

func TestEvaluationReportLayout(t *testing.T) {
	report := &EvaluationReport{
		ModelID: "naive_bayes",
		Labels:  []string{"0", "1"},
		PerLabel: map[string]LabelMetrics{
			"0": {Precision: 1, Recall: 0.5, F1Score: 2.0 / 3, Support: 2},
			"1": {Precision: 0.5, Recall: 1, F1Score: 2.0 / 3, Support: 1},
		},
		Accuracy:        2.0 / 3,
		ConfusionMatrix: [][]int{{1, 1}, {0, 1}},
		CVScore:         0.7,
		BestParams:      Params{"alpha": 0.5},
	}

	data, err := json.Marshal(report)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"0", "1", "accuracy", "macro avg", "weighted avg", "confusion_matrix", "labels", "model_id", "cv_score", "best_params"} {
		assert.Contains(t, raw, key)
	}
	assert.Contains(t, raw["0"], "f1-score")

	var back EvaluationReport
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, report.PerLabel, back.PerLabel)
	assert.Equal(t, report.ConfusionMatrix, back.ConfusionMatrix)
	assert.InDelta(t, report.Accuracy, back.Accuracy, 1e-12)
}

func TestTrainingRunFinish(t *testing.T) {
	now := time.Now()

	run := &TrainingRun{Results: map[string]ModelOutcome{
		"svm":         {Status: OutcomeSucceeded},
		"naive_bayes": {Status: OutcomeSucceeded},
	}}
	run.Finish(now)
	assert.Equal(t, RunStatusCompleted, run.Status)
	require.NotNil(t, run.CompletedAt)

	run.Results["bogus"] = ModelOutcome{Status: OutcomeFailed, Stage: StageResolve}
	run.Finish(now)
	assert.Equal(t, RunStatusPartial, run.Status)

	run = &TrainingRun{Error: "dataset missing"}
	run.Finish(now)
	assert.Equal(t, RunStatusFailed, run.Status)
}
