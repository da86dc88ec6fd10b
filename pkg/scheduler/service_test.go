package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

type recordingQueue struct {
	mu    sync.Mutex
	tasks []*models.WorkTask
}

func (q *recordingQueue) Enqueue(task *models.WorkTask) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tasks = append(q.tasks, task)
	return nil
}

func validRequest() *models.RetrainScheduleCreateRequest {
	return &models.RetrainScheduleCreateRequest{
		Name:     "nightly",
		Schedule: "0 3 * * *",
		Spec: models.TrainingSpec{
			DatasetPath: "data/comments_clean.csv",
			OutputDir:   "models",
			ModelIDs:    []string{"svm", "naive_bayes"},
			Seed:        32451365,
		},
		Priority: 1,
		Enabled:  true,
	}
}

func TestCreateAndTrigger(t *testing.T) {
	q := &recordingQueue{}
	s := NewService(q, nil)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	schedule, err := s.Create(validRequest())
	require.NoError(t, err)
	require.NotNil(t, schedule.NextRun)
	assert.Equal(t, time.Date(2024, 5, 2, 3, 0, 0, 0, time.UTC), *schedule.NextRun)

	task, err := s.Trigger(schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkTaskTypeMLTraining, task.Type)
	assert.Equal(t, models.WorkTaskStatusQueued, task.Status)
	assert.Equal(t, "schedule:nightly", task.Source)
	assert.Equal(t, 1, task.Priority)
	assert.Equal(t, []string{"svm", "naive_bayes"}, task.Spec.ModelIDs)

	require.Len(t, q.tasks, 1)
	assert.Equal(t, task.ID, q.tasks[0].ID)

	got, err := s.Get(schedule.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastRun)
	assert.Equal(t, task.ID, got.LastTask)
}

func TestCreate_Validation(t *testing.T) {
	s := NewService(&recordingQueue{}, nil)

	tests := map[string]func(*models.RetrainScheduleCreateRequest){
		"missing name":  func(r *models.RetrainScheduleCreateRequest) { r.Name = "" },
		"bad cron":      func(r *models.RetrainScheduleCreateRequest) { r.Schedule = "every night" },
		"no models":     func(r *models.RetrainScheduleCreateRequest) { r.Spec.ModelIDs = nil },
		"no dataset":    func(r *models.RetrainScheduleCreateRequest) { r.Spec.DatasetPath = "" },
		"no output dir": func(r *models.RetrainScheduleCreateRequest) { r.Spec.OutputDir = "" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			req := validRequest()
			mutate(req)
			_, err := s.Create(req)
			assert.Error(t, err)
		})
	}
	assert.Empty(t, s.List())
}

func TestDisabledScheduleIsNotRegistered(t *testing.T) {
	s := NewService(&recordingQueue{}, nil)
	req := validRequest()
	req.Enabled = false

	schedule, err := s.Create(req)
	require.NoError(t, err)
	assert.Nil(t, schedule.NextRun)
	assert.Empty(t, s.cron.Entries())
}

func TestDelete(t *testing.T) {
	s := NewService(&recordingQueue{}, nil)
	schedule, err := s.Create(validRequest())
	require.NoError(t, err)
	require.Len(t, s.cron.Entries(), 1)

	require.NoError(t, s.Delete(schedule.ID))
	assert.Empty(t, s.cron.Entries())
	assert.Empty(t, s.List())
	assert.Error(t, s.Delete(schedule.ID))

	_, err = s.Trigger(schedule.ID)
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := NewService(&recordingQueue{}, nil)
	_, err := s.Create(validRequest())
	require.NoError(t, err)

	s.Start()
	s.Stop()
}
