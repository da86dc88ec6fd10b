package metadatastore

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sentiment.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_TrainingRuns(t *testing.T) {
	store := newTestStore(t)
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	older := &models.TrainingRun{
		ID:          "run-1",
		DatasetPath: "data/comments_clean.csv",
		OutputDir:   "models",
		ModelIDs:    []string{"svm"},
		Seed:        32451365,
		Status:      models.RunStatusRunning,
		StartedAt:   base,
		Results:     map[string]models.ModelOutcome{},
	}
	require.NoError(t, store.SaveTrainingRun(older))

	older.Results["svm"] = models.ModelOutcome{Status: models.OutcomeSucceeded, Accuracy: 0.9}
	older.Finish(base.Add(time.Minute))
	require.NoError(t, store.SaveTrainingRun(older))

	newer := &models.TrainingRun{ID: "run-2", DatasetPath: "d.csv", OutputDir: "out", Status: models.RunStatusRunning, StartedAt: base.Add(time.Hour)}
	require.NoError(t, store.SaveTrainingRun(newer))

	got, err := store.GetTrainingRun("run-1")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, got.Status)
	assert.Equal(t, 0.9, got.Results["svm"].Accuracy)
	assert.Equal(t, int64(32451365), got.Seed)

	runs, err := store.ListTrainingRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].ID)

	runs, err = store.ListTrainingRuns(1)
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = store.GetTrainingRun("missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSQLiteStore_ModelRecords(t *testing.T) {
	store := newTestStore(t)
	now := time.Now().UTC()

	for _, id := range []string{"svm", "naive_bayes"} {
		require.NoError(t, store.SaveModelRecord(&models.ModelRecord{
			ModelID:      id,
			RunID:        "run-1",
			ArtifactPath: "models/" + id + "_pipe.json",
			Classifier:   "svc",
			Labels:       []string{"0", "1"},
			Accuracy:     0.8,
			TrainedAt:    now,
		}))
	}

	// a later run overwrites the record
	require.NoError(t, store.SaveModelRecord(&models.ModelRecord{
		ModelID: "svm", RunID: "run-2", ArtifactPath: "models/svm_pipe.json", Classifier: "svc", Accuracy: 0.85, TrainedAt: now,
	}))

	rec, err := store.GetModelRecord("svm")
	require.NoError(t, err)
	assert.Equal(t, "run-2", rec.RunID)
	assert.Equal(t, 0.85, rec.Accuracy)

	records, err := store.ListModelRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "naive_bayes", records[0].ModelID)

	_, err = store.GetModelRecord("lr")
	assert.True(t, errors.Is(err, ErrNotFound))
}
