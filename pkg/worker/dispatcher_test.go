package worker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mimir-aip/sentiment-go/pkg/config"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel"
	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/queue"
)

type stubTrainer struct {
	mu       sync.Mutex
	requests []mlmodel.RunRequest
	result   *mlmodel.RunResult
	err      error
}

func (s *stubTrainer) Run(_ context.Context, req mlmodel.RunRequest) (*mlmodel.RunResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	return s.result, s.err
}

type stubLauncher struct {
	created []string
	status  models.WorkTaskStatus
	err     error
}

func (l *stubLauncher) CreateTrainingJob(_ context.Context, task *models.WorkTask) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	name := "train-" + task.ID
	l.created = append(l.created, name)
	return name, nil
}

func (l *stubLauncher) GetJobStatus(context.Context, string) (models.WorkTaskStatus, error) {
	return l.status, nil
}

type stubReloader struct {
	path    string
	reloads int
}

func (r *stubReloader) Path() string { return r.path }
func (r *stubReloader) Reload() error {
	r.reloads++
	return nil
}

func enqueue(t *testing.T, q *queue.Queue, id string, modelIDs ...string) {
	t.Helper()
	require.NoError(t, q.Enqueue(&models.WorkTask{
		ID:   id,
		Type: models.WorkTaskTypeMLTraining,
		Spec: models.TrainingSpec{
			DatasetPath: "data/comments_clean.csv",
			OutputDir:   "models",
			ModelIDs:    modelIDs,
			Seed:        7,
		},
	}))
}

func TestNewDispatcher_Validation(t *testing.T) {
	q := queue.NewQueue()

	_, err := NewDispatcher(q, Options{Backend: config.BackendLocal})
	assert.Error(t, err)

	_, err = NewDispatcher(q, Options{Backend: config.BackendKubernetes})
	assert.Error(t, err)

	_, err = NewDispatcher(q, Options{Backend: "lambda", Trainer: &stubTrainer{}})
	assert.Error(t, err)

	d, err := NewDispatcher(q, Options{Trainer: &stubTrainer{}})
	require.NoError(t, err)
	assert.Equal(t, config.BackendLocal, d.opts.Backend)
	assert.Equal(t, DefaultInterval, d.opts.Interval)
}

func TestProcessNext_Local(t *testing.T) {
	q := queue.NewQueue()
	trainer := &stubTrainer{result: &mlmodel.RunResult{
		Reports: map[string]*models.EvaluationReport{"svm": {ModelID: "svm"}},
		Failures: map[string]*mlmodel.ModelFailure{
			"bogus": {Stage: models.StageResolve, Err: &models.UnknownModelError{ID: "bogus"}},
		},
	}}
	reloader := &stubReloader{path: filepath.Join("models", "svm_pipe.json")}
	d, err := NewDispatcher(q, Options{Trainer: trainer, Reloader: reloader, Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)

	found, err := d.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.False(t, found)

	enqueue(t, q, "task-1", "svm", "bogus")
	found, err = d.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.True(t, found)

	require.Len(t, trainer.requests, 1)
	req := trainer.requests[0]
	assert.Equal(t, []string{"svm", "bogus"}, req.ModelIDs)
	assert.Equal(t, int64(7), req.Seed)
	assert.NotEmpty(t, req.RunID)

	task, err := q.GetWorkTask("task-1")
	require.NoError(t, err)
	assert.Equal(t, models.WorkTaskStatusCompleted, task.Status)
	assert.Equal(t, req.RunID, task.RunID)
	assert.Equal(t, `bogus (resolve): unknown model "bogus"`, task.ErrorMessage)
	assert.NotNil(t, task.StartedAt)
	assert.NotNil(t, task.CompletedAt)

	assert.Equal(t, 1, reloader.reloads)
}

func TestProcessNext_LocalNoReloadForOtherModel(t *testing.T) {
	q := queue.NewQueue()
	trainer := &stubTrainer{result: &mlmodel.RunResult{
		Reports: map[string]*models.EvaluationReport{"naive_bayes": {ModelID: "naive_bayes"}},
	}}
	reloader := &stubReloader{path: "models/svm_pipe.json"}
	d, err := NewDispatcher(q, Options{Trainer: trainer, Reloader: reloader})
	require.NoError(t, err)

	enqueue(t, q, "task-1", "naive_bayes")
	_, err = d.ProcessNext(context.Background())
	require.NoError(t, err)
	assert.Zero(t, reloader.reloads)
}

func TestProcessNext_LocalFailures(t *testing.T) {
	t.Run("fatal error", func(t *testing.T) {
		q := queue.NewQueue()
		d, err := NewDispatcher(q, Options{Trainer: &stubTrainer{err: errors.New("dataset missing")}})
		require.NoError(t, err)

		enqueue(t, q, "task-1", "svm")
		_, err = d.ProcessNext(context.Background())
		require.NoError(t, err)

		task, _ := q.GetWorkTask("task-1")
		assert.Equal(t, models.WorkTaskStatusFailed, task.Status)
		assert.Equal(t, "dataset missing", task.ErrorMessage)
	})

	t.Run("every model failed", func(t *testing.T) {
		q := queue.NewQueue()
		trainer := &stubTrainer{result: &mlmodel.RunResult{
			Reports: map[string]*models.EvaluationReport{},
			Failures: map[string]*mlmodel.ModelFailure{
				"svm": {Stage: models.StageSelect, Err: errors.New("boom")},
			},
		}}
		d, err := NewDispatcher(q, Options{Trainer: trainer})
		require.NoError(t, err)

		enqueue(t, q, "task-1", "svm")
		_, err = d.ProcessNext(context.Background())
		require.NoError(t, err)

		task, _ := q.GetWorkTask("task-1")
		assert.Equal(t, models.WorkTaskStatusFailed, task.Status)
	})

	t.Run("invalid spec", func(t *testing.T) {
		q := queue.NewQueue()
		trainer := &stubTrainer{}
		d, err := NewDispatcher(q, Options{Trainer: trainer})
		require.NoError(t, err)

		enqueue(t, q, "task-1")
		_, err = d.ProcessNext(context.Background())
		require.NoError(t, err)

		task, _ := q.GetWorkTask("task-1")
		assert.Equal(t, models.WorkTaskStatusFailed, task.Status)
		assert.Empty(t, trainer.requests)
	})
}

func TestProcessNext_Kubernetes(t *testing.T) {
	q := queue.NewQueue()
	launcher := &stubLauncher{status: models.WorkTaskStatusExecuting}
	d, err := NewDispatcher(q, Options{Backend: config.BackendKubernetes, Launcher: launcher})
	require.NoError(t, err)
	ctx := context.Background()

	enqueue(t, q, "task-1", "svm")
	d.Tick(ctx)

	task, _ := q.GetWorkTask("task-1")
	assert.Equal(t, models.WorkTaskStatusSpawned, task.Status)
	assert.Equal(t, "train-task-1", task.KubernetesJobName)
	assert.Equal(t, []string{"train-task-1"}, launcher.created)

	d.Tick(ctx)
	task, _ = q.GetWorkTask("task-1")
	assert.Equal(t, models.WorkTaskStatusExecuting, task.Status)

	launcher.status = models.WorkTaskStatusCompleted
	d.Tick(ctx)
	task, _ = q.GetWorkTask("task-1")
	assert.Equal(t, models.WorkTaskStatusCompleted, task.Status)
	assert.Empty(t, d.spawned)
}

func TestProcessNext_KubernetesCreateFails(t *testing.T) {
	q := queue.NewQueue()
	d, err := NewDispatcher(q, Options{Backend: config.BackendKubernetes, Launcher: &stubLauncher{err: errors.New("forbidden")}})
	require.NoError(t, err)

	enqueue(t, q, "task-1", "svm")
	_, err = d.ProcessNext(context.Background())
	require.NoError(t, err)

	task, _ := q.GetWorkTask("task-1")
	assert.Equal(t, models.WorkTaskStatusFailed, task.Status)
	assert.Equal(t, "forbidden", task.ErrorMessage)
}
