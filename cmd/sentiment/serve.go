package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mimir-aip/sentiment-go/pkg/api"
	"github.com/mimir-aip/sentiment-go/pkg/config"
	"github.com/mimir-aip/sentiment-go/pkg/k8s"
	"github.com/mimir-aip/sentiment-go/pkg/metadatastore"
	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/predict"
	"github.com/mimir-aip/sentiment-go/pkg/queue"
	"github.com/mimir-aip/sentiment-go/pkg/scheduler"
	"github.com/mimir-aip/sentiment-go/pkg/textnorm"
	"github.com/mimir-aip/sentiment-go/pkg/worker"
)

// DefaultScheduleName names the schedule created from RETRAIN_SCHEDULE
const DefaultScheduleName = "default"

const shutdownTimeout = 15 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the prediction API, training queue and retrain scheduler",
	Long: `Serve the model at MODEL_PATH on /sentiment and expose the training API
under /api. Training tasks run in-process or as Kubernetes Jobs depending on
TRAINING_BACKEND. A served model is reloaded after a local retrain rewrites it.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting sentiment service",
		zap.String("environment", cfg.Environment),
		zap.String("backend", cfg.TrainingBackend))
	if cfg.Token == "" {
		log.Warn("TOKEN is not set, every authenticated request will be rejected")
	}

	// Served model. A missing artifact is not fatal: /ready reports it and a
	// retrain can produce it later.
	var normalizer predict.Normalizer
	if cfg.NormalizeInput {
		normalizer = textnorm.Basic()
	}
	predictor := predict.NewPredictor(cfg.ModelPath, normalizer, log)
	if err := predictor.Reload(); err != nil {
		log.Warn("Serving without a model until one is trained", zap.String("path", cfg.ModelPath))
	}

	registry, err := openRegistry()
	if err != nil {
		return err
	}
	defer registry.Close()

	c, err := newCatalog()
	if err != nil {
		return err
	}

	q := queue.NewQueue()
	log.Info("Initialized in-memory training queue")

	dispatcher, err := newDispatcher(q, registry, predictor)
	if err != nil {
		return withExitCode(ExitConfigError, err)
	}

	schedulerService := scheduler.NewService(q, log)
	if cfg.RetrainSchedule != "" {
		schedule, err := schedulerService.Create(&models.RetrainScheduleCreateRequest{
			Name:     DefaultScheduleName,
			Schedule: cfg.RetrainSchedule,
			Spec:     defaultSpec(),
			Enabled:  true,
		})
		if err != nil {
			return withExitCode(ExitConfigError, err)
		}
		log.Info("Registered retrain schedule",
			zap.String("schedule_id", schedule.ID),
			zap.String("cron", schedule.Schedule))
	}
	schedulerService.Start()
	defer schedulerService.Stop()

	server := api.NewServer(cfg.Port, cfg.Token, log)
	api.NewSentimentHandler(server, predictor)
	api.NewTrainingHandler(server, q, registry, c, defaultSpec())
	api.NewScheduleHandler(server, schedulerService)
	log.Info("Registered API handlers")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("Sentiment service stopped")
	return nil
}

// defaultSpec fills training requests that omit fields
func defaultSpec() models.TrainingSpec {
	return models.TrainingSpec{
		DatasetPath: cfg.DatasetPath,
		OutputDir:   cfg.ModelDir,
		ModelIDs:    cfg.TrainModels,
		Seed:        cfg.RandomSeed,
	}
}

func newDispatcher(q *queue.Queue, registry metadatastore.MetadataStore, predictor *predict.Predictor) (*worker.Dispatcher, error) {
	opts := worker.Options{
		Backend:  cfg.TrainingBackend,
		Reloader: predictor,
		Logger:   log,
	}

	switch cfg.TrainingBackend {
	case config.BackendKubernetes:
		client, err := k8s.NewClient(cfg.K8sNamespace, k8s.JobOptions{Image: cfg.TrainerImage})
		if err != nil {
			return nil, err
		}
		log.Info("Connected to Kubernetes cluster", zap.String("namespace", cfg.K8sNamespace))
		opts.Launcher = client
	default:
		svc, err := newTrainingService(cfg.Workers, registry)
		if err != nil {
			return nil, err
		}
		opts.Trainer = svc
	}

	return worker.NewDispatcher(q, opts)
}
