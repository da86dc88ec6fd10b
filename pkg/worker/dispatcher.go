// Package worker drains the training queue, running each task in-process or
// as a Kubernetes Job.
package worker

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/config"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel"
	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/queue"
	"github.com/mimir-aip/sentiment-go/pkg/storage"
)

// DefaultInterval is how often the queue is polled
const DefaultInterval = 5 * time.Second

// Trainer runs a training pipeline in-process
type Trainer interface {
	Run(ctx context.Context, req mlmodel.RunRequest) (*mlmodel.RunResult, error)
}

// JobLauncher creates and tracks training Jobs on a cluster
type JobLauncher interface {
	CreateTrainingJob(ctx context.Context, task *models.WorkTask) (string, error)
	GetJobStatus(ctx context.Context, jobName string) (models.WorkTaskStatus, error)
}

// Reloader is the served model, reloaded when its artifact is retrained
type Reloader interface {
	Path() string
	Reload() error
}

// Options configures a Dispatcher
type Options struct {
	Backend  string // config.BackendLocal or config.BackendKubernetes
	Trainer  Trainer
	Launcher JobLauncher
	Reloader Reloader
	Logger   *zap.Logger
	Interval time.Duration
}

// Dispatcher polls the queue and executes one task at a time
type Dispatcher struct {
	queue   *queue.Queue
	opts    Options
	logger  *zap.Logger
	mu      sync.Mutex
	spawned map[string]string // task ID -> Kubernetes Job name
}

// NewDispatcher creates a dispatcher for the configured backend
func NewDispatcher(q *queue.Queue, opts Options) (*Dispatcher, error) {
	switch opts.Backend {
	case "", config.BackendLocal:
		opts.Backend = config.BackendLocal
		if opts.Trainer == nil {
			return nil, fmt.Errorf("local backend requires a trainer")
		}
	case config.BackendKubernetes:
		if opts.Launcher == nil {
			return nil, fmt.Errorf("kubernetes backend requires a job launcher")
		}
	default:
		return nil, fmt.Errorf("unknown training backend %q", opts.Backend)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Dispatcher{
		queue:   q,
		opts:    opts,
		logger:  opts.Logger,
		spawned: make(map[string]string),
	}, nil
}

// Run polls the queue until ctx is cancelled
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.opts.Interval)
	defer ticker.Stop()

	d.logger.Info("Dispatcher started", zap.String("backend", d.opts.Backend), zap.Duration("interval", d.opts.Interval))
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopped")
			return
		case <-ticker.C:
			d.Tick(ctx)
		}
	}
}

// Tick refreshes spawned Jobs and processes at most one queued task
func (d *Dispatcher) Tick(ctx context.Context) {
	if d.opts.Backend == config.BackendKubernetes {
		d.syncJobs(ctx)
	}
	if _, err := d.ProcessNext(ctx); err != nil {
		d.logger.Error("Error processing work task", zap.Error(err))
	}
}

// ProcessNext dequeues one task and executes it. It reports whether a task was found.
func (d *Dispatcher) ProcessNext(ctx context.Context) (bool, error) {
	task, err := d.queue.Dequeue()
	if err != nil {
		return false, fmt.Errorf("failed to dequeue work task: %w", err)
	}
	if task == nil {
		return false, nil
	}

	if task.RunID == "" {
		task.RunID = uuid.New().String()
		runID := task.RunID
		if err := d.queue.UpdateWorkTask(task.ID, func(t *models.WorkTask) { t.RunID = runID }); err != nil {
			return true, err
		}
	}

	logger := d.logger.With(zap.String("task_id", task.ID), zap.String("run_id", task.RunID))
	if err := task.Spec.Validate(); err != nil {
		logger.Warn("Rejecting invalid work task", zap.Error(err))
		return true, d.queue.UpdateWorkTaskStatus(task.ID, models.WorkTaskStatusFailed, err.Error())
	}

	if d.opts.Backend == config.BackendKubernetes {
		return true, d.spawn(ctx, logger, task)
	}
	return true, d.runLocal(ctx, logger, task)
}

func (d *Dispatcher) runLocal(ctx context.Context, logger *zap.Logger, task *models.WorkTask) error {
	if err := d.queue.UpdateWorkTaskStatus(task.ID, models.WorkTaskStatusExecuting, ""); err != nil {
		return err
	}
	logger.Info("Executing training task", zap.Strings("models", task.Spec.ModelIDs))

	res, err := d.opts.Trainer.Run(ctx, mlmodel.RunRequest{
		RunID:       task.RunID,
		DatasetPath: task.Spec.DatasetPath,
		OutputDir:   task.Spec.OutputDir,
		ModelIDs:    task.Spec.ModelIDs,
		Seed:        task.Spec.Seed,
	})
	if err != nil {
		logger.Error("Training task failed", zap.Error(err))
		return d.queue.UpdateWorkTaskStatus(task.ID, models.WorkTaskStatusFailed, err.Error())
	}

	status := models.WorkTaskStatusCompleted
	if len(res.Reports) == 0 {
		status = models.WorkTaskStatusFailed
	}
	if err := d.queue.UpdateWorkTaskStatus(task.ID, status, summarizeFailures(res.Failures)); err != nil {
		return err
	}
	logger.Info("Training task finished", zap.String("status", string(status)), zap.Int("models", len(res.Reports)))

	d.maybeReload(logger, task, res)
	return nil
}

// maybeReload reloads the served model when this run rewrote its artifact
func (d *Dispatcher) maybeReload(logger *zap.Logger, task *models.WorkTask, res *mlmodel.RunResult) {
	if d.opts.Reloader == nil {
		return
	}
	served := filepath.Clean(d.opts.Reloader.Path())
	for id := range res.Reports {
		if filepath.Clean(filepath.Join(task.Spec.OutputDir, id+storage.ModelSuffix)) != served {
			continue
		}
		if err := d.opts.Reloader.Reload(); err != nil {
			logger.Error("Failed to reload served model", zap.String("model_id", id), zap.Error(err))
			return
		}
		logger.Info("Served model reloaded", zap.String("model_id", id))
		return
	}
}

func (d *Dispatcher) spawn(ctx context.Context, logger *zap.Logger, task *models.WorkTask) error {
	jobName, err := d.opts.Launcher.CreateTrainingJob(ctx, task)
	if err != nil {
		logger.Error("Error creating training job", zap.Error(err))
		return d.queue.UpdateWorkTaskStatus(task.ID, models.WorkTaskStatusFailed, err.Error())
	}

	if err := d.queue.UpdateWorkTask(task.ID, func(t *models.WorkTask) { t.KubernetesJobName = jobName }); err != nil {
		return err
	}
	if err := d.queue.UpdateWorkTaskStatus(task.ID, models.WorkTaskStatusSpawned, ""); err != nil {
		return err
	}

	d.mu.Lock()
	d.spawned[task.ID] = jobName
	d.mu.Unlock()

	logger.Info("Spawned training job", zap.String("job", jobName))
	return nil
}

// syncJobs copies Kubernetes Job states onto their work tasks
func (d *Dispatcher) syncJobs(ctx context.Context) {
	d.mu.Lock()
	jobs := make(map[string]string, len(d.spawned))
	for taskID, jobName := range d.spawned {
		jobs[taskID] = jobName
	}
	d.mu.Unlock()

	for taskID, jobName := range jobs {
		status, err := d.opts.Launcher.GetJobStatus(ctx, jobName)
		if err != nil {
			d.logger.Warn("Error getting job status", zap.String("job", jobName), zap.Error(err))
			continue
		}

		task, err := d.queue.GetWorkTask(taskID)
		if err != nil {
			d.forget(taskID)
			continue
		}
		if task.Status == status {
			continue
		}

		errorMsg := ""
		if status == models.WorkTaskStatusFailed {
			errorMsg = "kubernetes job " + jobName + " failed"
		}
		if err := d.queue.UpdateWorkTaskStatus(taskID, status, errorMsg); err != nil {
			d.logger.Warn("Error updating work task status", zap.String("task_id", taskID), zap.Error(err))
			continue
		}
		d.logger.Info("Training job status changed", zap.String("task_id", taskID), zap.String("status", string(status)))

		if status.Terminal() {
			d.forget(taskID)
		}
	}
}

func (d *Dispatcher) forget(taskID string) {
	d.mu.Lock()
	delete(d.spawned, taskID)
	d.mu.Unlock()
}

// summarizeFailures renders per-model failures as "id (stage): error; ..."
func summarizeFailures(failures map[string]*mlmodel.ModelFailure) string {
	if len(failures) == 0 {
		return ""
	}
	ids := make([]string, 0, len(failures))
	for id := range failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	parts := make([]string, len(ids))
	for i, id := range ids {
		f := failures[id]
		parts[i] = fmt.Sprintf("%s (%s): %v", id, f.Stage, f.Err)
	}
	return strings.Join(parts, "; ")
}
