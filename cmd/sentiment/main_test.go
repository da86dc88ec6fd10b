package main

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/sentiment-go/pkg/mlmodel"
	"github.com/mimir-aip/sentiment-go/pkg/models"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"generic", errors.New("boom"), ExitError},
		{"explicit", withExitCode(ExitConfigError, errors.New("bad env")), ExitConfigError},
		{"unknown model", &models.UnknownModelError{ID: "rf"}, ExitModelNotFound},
		{"data format", models.DataFormatError("bad header"), ExitDataError},
		{"wrapped insufficient data", fmt.Errorf("select: %w", models.ErrInsufficientData), ExitDataError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestExitErrorUnwraps(t *testing.T) {
	err := withExitCode(ExitTrainingError, models.ErrPersistence)
	assert.ErrorIs(t, err, models.ErrPersistence)
	assert.Equal(t, models.ErrPersistence.Error(), err.Error())
}

func TestSummarize(t *testing.T) {
	result := &mlmodel.RunResult{
		RunID:  "run-1",
		Labels: []string{"0", "1"},
		Reports: map[string]*models.EvaluationReport{
			"naive_bayes": {ModelID: "naive_bayes", Accuracy: 0.8, CVScore: 0.75, BestParams: models.Params{"alpha": 0.1}},
		},
		Failures: map[string]*mlmodel.ModelFailure{
			"svm": {Stage: models.StageSelect, Err: models.ErrInsufficientData},
		},
		Duration: 1500 * time.Millisecond,
	}

	summary := summarize(result)
	assert.Equal(t, "run-1", summary.RunID)
	assert.Equal(t, "1.5s", summary.Duration)
	require.Contains(t, summary.Models, "naive_bayes")
	assert.InDelta(t, 0.8, summary.Models["naive_bayes"].Accuracy, 1e-9)
	assert.Equal(t, "select: insufficient data", summary.Failures["svm"])
}

func TestSummarizeOmitsEmptyFailures(t *testing.T) {
	summary := summarize(&mlmodel.RunResult{Reports: map[string]*models.EvaluationReport{}})
	assert.Nil(t, summary.Failures)
	assert.Empty(t, summary.Models)
}

func TestCommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"prepare", "train", "predict", "serve", "models"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestTrainedCountIgnoresComparisonModel(t *testing.T) {
	onlyOld := &mlmodel.RunResult{
		Reports: map[string]*models.EvaluationReport{mlmodel.CompareModelID: {ModelID: mlmodel.CompareModelID}},
		Failures: map[string]*mlmodel.ModelFailure{
			"svm": {Stage: models.StageSelect, Err: models.ErrInsufficientData},
		},
	}
	assert.Equal(t, 0, trainedCount(onlyOld))

	onlyOld.Reports["naive_bayes"] = &models.EvaluationReport{ModelID: "naive_bayes"}
	assert.Equal(t, 1, trainedCount(onlyOld))
}
