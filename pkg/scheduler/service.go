package scheduler

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Enqueuer accepts training work tasks
type Enqueuer interface {
	Enqueue(task *models.WorkTask) error
}

// Service schedules recurring training runs. Each firing enqueues a
// WorkTask; the dispatcher does the actual training.
type Service struct {
	mu        sync.Mutex
	queue     Enqueuer
	logger    *zap.Logger
	cron      *cron.Cron
	schedules map[string]*models.RetrainSchedule
	entries   map[string]cron.EntryID // Maps schedule ID to cron entry ID
	now       func() time.Time
}

// NewService creates a new scheduler service
func NewService(queue Enqueuer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		queue:     queue,
		logger:    logger,
		cron:      cron.New(),
		schedules: make(map[string]*models.RetrainSchedule),
		entries:   make(map[string]cron.EntryID),
		now:       time.Now,
	}
}

// Start starts the scheduler
func (s *Service) Start() {
	s.cron.Start()
	s.logger.Info("Retrain scheduler started", zap.Int("schedules", len(s.List())))
}

// Stop stops the scheduler and waits for running firings to finish
func (s *Service) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Retrain scheduler stopped")
}

// Create validates and registers a new retrain schedule
func (s *Service) Create(req *models.RetrainScheduleCreateRequest) (*models.RetrainSchedule, error) {
	if err := validateCreateRequest(req); err != nil {
		return nil, err
	}

	schedule := &models.RetrainSchedule{
		ID:        uuid.New().String(),
		Name:      req.Name,
		Schedule:  req.Schedule,
		Spec:      req.Spec,
		Priority:  req.Priority,
		Enabled:   req.Enabled,
		CreatedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.schedules[schedule.ID] = schedule
	if schedule.Enabled {
		if err := s.scheduleLocked(schedule); err != nil {
			delete(s.schedules, schedule.ID)
			return nil, err
		}
	}

	out := *schedule
	return &out, nil
}

// Get retrieves a schedule by ID
func (s *Service) Get(id string) (*models.RetrainSchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule, ok := s.schedules[id]
	if !ok {
		return nil, fmt.Errorf("schedule not found: %s", id)
	}
	out := *schedule
	return &out, nil
}

// List lists all schedules ordered by name
func (s *Service) List() []*models.RetrainSchedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.RetrainSchedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		cp := *schedule
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a schedule
func (s *Service) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.schedules[id]; !ok {
		return fmt.Errorf("schedule not found: %s", id)
	}
	if entryID, ok := s.entries[id]; ok {
		s.cron.Remove(entryID)
		delete(s.entries, id)
	}
	delete(s.schedules, id)
	return nil
}

// scheduleLocked registers the schedule with cron. Caller holds s.mu.
func (s *Service) scheduleLocked(schedule *models.RetrainSchedule) error {
	spec, err := cron.ParseStandard(schedule.Schedule)
	if err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}

	id := schedule.ID
	entryID := s.cron.Schedule(spec, cron.FuncJob(func() {
		if _, err := s.Trigger(id); err != nil {
			s.logger.Error("Scheduled retrain failed to enqueue", zap.String("schedule_id", id), zap.Error(err))
		}
	}))
	s.entries[id] = entryID

	next := spec.Next(s.now())
	schedule.NextRun = &next

	s.logger.Info("Scheduled retrain",
		zap.String("schedule_id", id),
		zap.String("name", schedule.Name),
		zap.String("schedule", schedule.Schedule))
	return nil
}

// Trigger enqueues a training task for the schedule immediately and returns it
func (s *Service) Trigger(id string) (*models.WorkTask, error) {
	s.mu.Lock()
	schedule, ok := s.schedules[id]
	if !ok {
		s.mu.Unlock()
		return nil, fmt.Errorf("schedule not found: %s", id)
	}

	now := s.now()
	task := &models.WorkTask{
		ID:          uuid.New().String(),
		Type:        models.WorkTaskTypeMLTraining,
		Status:      models.WorkTaskStatusQueued,
		Priority:    schedule.Priority,
		SubmittedAt: now,
		Spec:        schedule.Spec,
		Source:      "schedule:" + schedule.Name,
	}
	task.Spec.ModelIDs = append([]string(nil), schedule.Spec.ModelIDs...)

	schedule.LastRun = &now
	schedule.LastTask = task.ID
	if spec, err := cron.ParseStandard(schedule.Schedule); err == nil {
		next := spec.Next(now)
		schedule.NextRun = &next
	}
	name := schedule.Name
	s.mu.Unlock()

	if err := s.queue.Enqueue(task); err != nil {
		return nil, fmt.Errorf("failed to enqueue retrain task: %w", err)
	}
	s.logger.Info("Retrain task enqueued", zap.String("schedule", name), zap.String("task_id", task.ID))
	return task, nil
}

// validateCreateRequest validates a schedule creation request
func validateCreateRequest(req *models.RetrainScheduleCreateRequest) error {
	if req.Name == "" {
		return fmt.Errorf("schedule name is required")
	}
	if err := req.Spec.Validate(); err != nil {
		return err
	}
	if _, err := cron.ParseStandard(req.Schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
