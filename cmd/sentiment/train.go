package main

import (
	"fmt"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mimir-aip/sentiment-go/pkg/metadatastore"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel"
	"github.com/mimir-aip/sentiment-go/pkg/models"
	"github.com/mimir-aip/sentiment-go/pkg/plot"
)

var (
	trainModels        []string
	trainSeed          int64
	trainCompareModels string
	trainWorkers       int
	trainRunID         string
	trainNoRegistry    bool
)

func init() {
	trainCmd.Flags().StringSliceVar(&trainModels, "models", nil, "Model ids to train (default from TRAIN_MODELS)")
	trainCmd.Flags().Int64Var(&trainSeed, "random-seed", 0, "Seed for the split and cross-validation (default from RANDOM_SEED)")
	trainCmd.Flags().StringVar(&trainCompareModels, "compare-models", "", "Previously persisted model to evaluate as old_model")
	trainCmd.Flags().IntVar(&trainWorkers, "workers", 0, "Grid-search worker pool size (default from WORKERS, 0 = all CPUs)")
	trainCmd.Flags().StringVar(&trainRunID, "run-id", "", "Run identifier recorded in the registry (generated when empty)")
	trainCmd.Flags().BoolVar(&trainNoRegistry, "no-registry", false, "Do not record the run in the SQLite registry")
	rootCmd.AddCommand(trainCmd)
}

var trainCmd = &cobra.Command{
	Use:   "train <clean.csv> <model-dir>",
	Short: "Train, evaluate and persist the requested models",
	Long: `Split the cleaned dataset 80/20 (stratified), grid-search each requested model
family with 5-fold cross-validation, and write <id>_pipe.json, <id>_results.json
and <id>_cm.png to <model-dir>.

A model that fails is reported and the remaining ones still run. The command
exits non-zero when no model could be trained.`,
	Args: cobra.ExactArgs(2),
	RunE: runTrain,
}

// ModelSummary is the per-model part of the train output
type ModelSummary struct {
	Accuracy   float64       `json:"accuracy"`
	CVScore    float64       `json:"cv_score"`
	BestParams models.Params `json:"best_params,omitempty"`
}

// TrainSummary is the response for the train command
type TrainSummary struct {
	RunID    string                  `json:"run_id"`
	Labels   []string                `json:"labels"`
	Models   map[string]ModelSummary `json:"models"`
	Failures map[string]string       `json:"failures,omitempty"`
	Duration string                  `json:"duration"`
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if !cmd.Flags().Changed("models") {
		trainModels = cfg.TrainModels
	}
	if !cmd.Flags().Changed("random-seed") {
		trainSeed = cfg.RandomSeed
	}
	if !cmd.Flags().Changed("workers") {
		trainWorkers = cfg.Workers
	}

	var registry metadatastore.MetadataStore
	if !trainNoRegistry {
		store, err := openRegistry()
		if err != nil {
			log.Warn("Run registry unavailable, continuing without it", zap.Error(err))
		} else {
			defer store.Close()
			registry = store
		}
	}

	svc, err := newTrainingService(trainWorkers, registry)
	if err != nil {
		return err
	}

	result, err := svc.Run(ctx, mlmodel.RunRequest{
		RunID:       trainRunID,
		DatasetPath: args[0],
		OutputDir:   args[1],
		ModelIDs:    trainModels,
		Seed:        trainSeed,
		ComparePath: trainCompareModels,
	})
	if err != nil {
		return err
	}

	summary := summarize(result)
	if err := outputJSON(summary); err != nil {
		return err
	}
	if trainedCount(result) == 0 {
		return withExitCode(ExitTrainingError, fmt.Errorf("no model could be trained"))
	}
	return nil
}

// trainedCount counts the requested models that succeeded. The comparison
// model is evaluated, not trained, and does not count.
func trainedCount(result *mlmodel.RunResult) int {
	n := 0
	for id := range result.Reports {
		if id != mlmodel.CompareModelID {
			n++
		}
	}
	return n
}

// newTrainingService wires the training pipeline from the loaded config.
// registry may be nil.
func newTrainingService(workers int, registry metadatastore.MetadataStore) (*mlmodel.Service, error) {
	c, err := newCatalog()
	if err != nil {
		return nil, err
	}
	return mlmodel.NewService(mlmodel.Runtime{
		Logger:   log,
		Catalog:  c,
		Plotter:  plot.NewConfusionMatrixPlotter(),
		Registry: registry,
		Workers:  workers,
	}), nil
}

func summarize(result *mlmodel.RunResult) TrainSummary {
	summary := TrainSummary{
		RunID:    result.RunID,
		Labels:   result.Labels,
		Models:   make(map[string]ModelSummary, len(result.Reports)),
		Duration: result.Duration.String(),
	}
	for id, report := range result.Reports {
		summary.Models[id] = ModelSummary{
			Accuracy:   report.Accuracy,
			CVScore:    report.CVScore,
			BestParams: report.BestParams,
		}
	}
	if len(result.Failures) > 0 {
		summary.Failures = make(map[string]string, len(result.Failures))
		ids := make([]string, 0, len(result.Failures))
		for id := range result.Failures {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			summary.Failures[id] = result.Failures[id].Error()
		}
	}
	return summary
}
