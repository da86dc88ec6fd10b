package mlmodel

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/dataset"
	"github.com/mimir-aip/sentiment-go/pkg/metadatastore"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/evaluation"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/selection"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/training"
	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/storage"
)

// CompareModelID is the id under which a previously persisted model is evaluated
const CompareModelID = "old_model"

// TrainFraction is the share of rows used for training; the rest is held out
const TrainFraction = 0.8

// Catalog resolves model ids to model configs
type Catalog interface {
	Get(id string) (models.ModelConfig, error)
}

// Plotter renders a confusion matrix image
type Plotter interface {
	Plot(yTrue, yPred []int, labels []string, path string) error
}

// Runtime carries the dependencies of the training pipeline. It is built once
// at process start and passed explicitly.
type Runtime struct {
	Logger   *zap.Logger
	Catalog  Catalog
	Plotter  Plotter
	Registry metadatastore.MetadataStore // optional
	Workers  int                         // grid-search pool size, 0 = NumCPU
}

// RunRequest describes one training run
type RunRequest struct {
	RunID       string // generated when empty
	DatasetPath string
	OutputDir   string
	ModelIDs    []string
	Seed        int64
	ComparePath string // optional previously persisted model to evaluate as old_model
}

// ModelFailure records the stage at which a model family failed
type ModelFailure struct {
	Stage models.Stage
	Err   error
}

func (f *ModelFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Stage, f.Err)
}

func (f *ModelFailure) Unwrap() error {
	return f.Err
}

// RunResult is the outcome of a training run. Every requested id ends up in
// exactly one of Reports or Failures.
type RunResult struct {
	RunID    string
	Labels   []string
	Reports  map[string]*models.EvaluationReport
	Failures map[string]*ModelFailure
	Duration time.Duration
}

// Service trains, evaluates and persists model families
type Service struct {
	rt Runtime
}

// NewService creates a new training service
func NewService(rt Runtime) *Service {
	if rt.Logger == nil {
		rt.Logger = zap.NewNop()
	}
	return &Service{rt: rt}
}

type split struct {
	labels []string
	trainX []string
	trainY []int
	testX  []string
	testY  []int
}

// Run executes the training pipeline for every requested model id, in order.
// A failure of one model is recorded in the result and does not stop the
// others. Dataset errors, output directory errors and cancellation abort the
// run and are returned.
func (s *Service) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	if req.RunID == "" {
		req.RunID = uuid.New().String()
	}
	logger := s.rt.Logger.With(zap.String("run_id", req.RunID))

	run := &models.TrainingRun{
		ID:          req.RunID,
		DatasetPath: req.DatasetPath,
		OutputDir:   req.OutputDir,
		ModelIDs:    slices.Clone(req.ModelIDs),
		Seed:        req.Seed,
		Status:      models.RunStatusRunning,
		StartedAt:   start.UTC(),
		Results:     make(map[string]models.ModelOutcome),
	}
	s.saveRun(logger, run)

	result, err := s.run(ctx, logger, req, run)
	if err != nil {
		run.Error = err.Error()
	}
	run.Finish(time.Now().UTC())
	s.saveRun(logger, run)

	if err != nil {
		logger.Error("Training run aborted", zap.Error(err))
		return nil, err
	}
	result.Duration = time.Since(start)
	logger.Info("Training run finished",
		zap.String("status", string(run.Status)),
		zap.Int("succeeded", len(result.Reports)),
		zap.Int("failed", len(result.Failures)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (s *Service) run(ctx context.Context, logger *zap.Logger, req RunRequest, run *models.TrainingRun) (*RunResult, error) {
	logger.Info("Begin training", zap.String("dataset", req.DatasetPath), zap.Strings("models", req.ModelIDs))

	data, err := s.prepare(logger, req)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewArtifactStore(req.OutputDir)
	if err != nil {
		return nil, err
	}

	result := &RunResult{
		RunID:    req.RunID,
		Labels:   data.labels,
		Reports:  make(map[string]*models.EvaluationReport),
		Failures: make(map[string]*ModelFailure),
	}

	ids := slices.Clone(req.ModelIDs)
	if req.ComparePath != "" {
		ids = append(ids, CompareModelID)
	}

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mlog := logger.With(zap.String("model_id", id))
		report, outcome, failure := s.trainOne(ctx, mlog, req, id, data, store)
		if failure != nil {
			if errors.Is(failure.Err, context.Canceled) || errors.Is(failure.Err, context.DeadlineExceeded) {
				return nil, failure.Err
			}
			mlog.Error("Model failed", zap.String("stage", string(failure.Stage)), zap.Error(failure.Err))
			result.Failures[id] = failure
			outcome.Status = models.OutcomeFailed
			outcome.Stage = failure.Stage
			outcome.Error = failure.Err.Error()
		} else {
			result.Reports[id] = report
			outcome.Status = models.OutcomeSucceeded
		}
		run.Results[id] = outcome
	}

	return result, nil
}

// prepare loads the dataset, computes the label space and splits it
func (s *Service) prepare(logger *zap.Logger, req RunRequest) (*split, error) {
	ds, err := dataset.Load(req.DatasetPath)
	if err != nil {
		return nil, err
	}

	space := dataset.NewLabelSpace(ds.Labels)
	y, err := space.Encode(ds.Labels)
	if err != nil {
		return nil, err
	}

	counts := space.Counts(y)
	proportions := make([]string, len(counts))
	for i, n := range counts {
		proportions[i] = fmt.Sprintf("%.2f", 100*float64(n)/float64(len(y)))
	}
	logger.Info("Dataset loaded",
		zap.Int("rows", ds.Len()),
		zap.Int("classes", space.Len()),
		zap.Strings("labels", space.Labels()),
		zap.String("class_proportion", strings.Join(proportions, " / ")))

	if space.Len() < 2 {
		return nil, models.DataFormatError("need at least 2 distinct labels, got %d", space.Len())
	}

	trainIdx, testIdx, err := dataset.StratifiedSplit(y, TrainFraction, req.Seed)
	if err != nil {
		return nil, err
	}
	logger.Info("Split dataset (80/20)", zap.Int("train", len(trainIdx)), zap.Int("test", len(testIdx)))

	pick := func(idx []int) ([]string, []int) {
		texts := make([]string, len(idx))
		labels := make([]int, len(idx))
		for i, j := range idx {
			texts[i] = ds.Texts[j]
			labels[i] = y[j]
		}
		return texts, labels
	}

	out := &split{labels: space.Labels()}
	out.trainX, out.trainY = pick(trainIdx)
	out.testX, out.testY = pick(testIdx)
	return out, nil
}

// trainOne runs resolve → select → persist → evaluate → report → plot for one id
func (s *Service) trainOne(ctx context.Context, logger *zap.Logger, req RunRequest, id string, data *split, store *storage.ArtifactStore) (*models.EvaluationReport, models.ModelOutcome, *ModelFailure) {
	var outcome models.ModelOutcome
	fail := func(stage models.Stage, err error) (*models.EvaluationReport, models.ModelOutcome, *ModelFailure) {
		return nil, outcome, &ModelFailure{Stage: stage, Err: err}
	}

	var (
		model      *training.FittedModel
		cvScore    float64
		bestParams models.Params
	)

	if id == CompareModelID {
		old, err := storage.LoadModel(req.ComparePath)
		if err != nil {
			return fail(models.StageResolve, err)
		}
		if !slices.Equal(old.Labels, data.labels) {
			return fail(models.StageResolve, fmt.Errorf("model at %s has labels %v, dataset has %v", req.ComparePath, old.Labels, data.labels))
		}
		logger.Info("Retrieved old model", zap.String("path", req.ComparePath))
		model = old
		bestParams = old.Params
	} else {
		cfg, err := s.rt.Catalog.Get(id)
		if err != nil {
			return fail(models.StageResolve, err)
		}
		logger.Info("Beginning estimation", zap.String("name", cfg.Name), zap.Int("combinations", cfg.SearchSpace.Size()))

		selector := selection.New(selection.Options{
			Seed:    req.Seed,
			Workers: s.rt.Workers,
			Logger:  logger,
		})
		res, err := selector.SelectBest(ctx, cfg, data.trainX, data.trainY, data.labels)
		if err != nil {
			return fail(models.StageSelect, err)
		}
		model, cvScore, bestParams = res.Model, res.Score, res.BestParams
		model.ModelID = id
		outcome.CVScore = cvScore
		logger.Info("Generated model", zap.Float64("cv_score", cvScore), zap.String("best_params", bestParams.Key()))

		path, err := store.SaveModel(model)
		if err != nil {
			return fail(models.StagePersist, err)
		}
		outcome.ModelPath = path
		logger.Info("Model saved", zap.String("path", path))
		defer func() { s.recordModel(logger, req, id, model, outcome) }()
	}

	preds, err := model.PredictBatch(data.testX)
	if err != nil {
		return fail(models.StageEvaluate, err)
	}
	report, err := evaluation.Report(id, data.labels, data.testY, preds)
	if err != nil {
		return fail(models.StageEvaluate, err)
	}
	report.CVScore = cvScore
	report.BestParams = bestParams
	outcome.Accuracy = report.Accuracy
	s.logReport(logger, report)

	reportPath, err := store.SaveReport(report)
	if err != nil {
		return fail(models.StageReport, err)
	}
	outcome.ReportPath = reportPath

	if s.rt.Plotter != nil {
		imagePath := store.ImagePath(id)
		if err := s.rt.Plotter.Plot(data.testY, preds, data.labels, imagePath); err != nil {
			return fail(models.StagePlot, err)
		}
		outcome.ImagePath = imagePath
		logger.Info("Confusion matrix plotted", zap.String("path", imagePath))
	}

	return report, outcome, nil
}

func (s *Service) logReport(logger *zap.Logger, report *models.EvaluationReport) {
	logger.Info("Model evaluated", zap.Float64("accuracy", report.Accuracy))
	for _, label := range report.Labels {
		m := report.PerLabel[label]
		logger.Info("Class metrics",
			zap.String("class", strings.ToUpper(label)),
			zap.Float64("precision", m.Precision),
			zap.Float64("recall", m.Recall),
			zap.Float64("f1-score", m.F1Score),
			zap.Int("support", m.Support))
	}
}

// recordModel registers a persisted artifact. The comparison model is not
// persisted by the run and gets no record.
func (s *Service) recordModel(logger *zap.Logger, req RunRequest, id string, model *training.FittedModel, outcome models.ModelOutcome) {
	if s.rt.Registry == nil || outcome.ModelPath == "" {
		return
	}
	record := &models.ModelRecord{
		ModelID:      id,
		RunID:        req.RunID,
		ArtifactPath: outcome.ModelPath,
		ReportPath:   outcome.ReportPath,
		Classifier:   string(model.Classifier.Kind()),
		Labels:       model.Labels,
		Params:       model.Params,
		CVScore:      outcome.CVScore,
		Accuracy:     outcome.Accuracy,
		TrainedAt:    time.Now().UTC(),
	}
	if err := s.rt.Registry.SaveModelRecord(record); err != nil {
		logger.Warn("Failed to record model", zap.Error(err))
	}
}

func (s *Service) saveRun(logger *zap.Logger, run *models.TrainingRun) {
	if s.rt.Registry == nil {
		return
	}
	if err := s.rt.Registry.SaveTrainingRun(run); err != nil {
		logger.Warn("Failed to record training run", zap.Error(err))
	}
}
