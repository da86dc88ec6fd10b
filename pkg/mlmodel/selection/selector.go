// Package selection fits a model family by exhaustive grid search with
// stratified k-fold cross-validation.
package selection

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/mimir-aip/sentiment-go/pkg/dataset"
	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/training"
	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// DefaultFolds is the number of cross-validation folds
const DefaultFolds = 5

// Options configures a Selector
type Options struct {
	Folds   int   // defaults to DefaultFolds
	Workers int   // defaults to runtime.NumCPU()
	Seed    int64 // seeds fold shuffling and stochastic estimators
	Logger  *zap.Logger
}

// Selector runs grid searches
type Selector struct {
	folds   int
	workers int
	seed    int64
	logger  *zap.Logger
	factory *training.ClassifierFactory
}

// Result is the outcome of a grid search
type Result struct {
	Model      *training.FittedModel
	Score      float64 // mean cross-validated accuracy of BestParams
	BestParams models.Params
	Trials     []Trial
}

// Trial is the cross-validation score of one grid point
type Trial struct {
	Params     models.Params `json:"params"`
	FoldScores []float64     `json:"fold_scores"`
	Mean       float64       `json:"mean"`
}

// New creates a selector
func New(opts Options) *Selector {
	if opts.Folds == 0 {
		opts.Folds = DefaultFolds
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Selector{
		folds:   opts.Folds,
		workers: opts.Workers,
		seed:    opts.Seed,
		logger:  opts.Logger,
		factory: training.NewClassifierFactory(),
	}
}

type foldData struct {
	train   []training.SparseVector
	trainY  []int
	test    []training.SparseVector
	testY   []int
	numFeat int
}

// SelectBest evaluates every point of cfg's search space, picks the one with
// the highest mean fold accuracy (the earliest wins a tie) and refits it on
// all of X.
func (s *Selector) SelectBest(ctx context.Context, cfg models.ModelConfig, X []string, y []int, labels []string) (*Result, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("got %d texts and %d labels", len(X), len(y))
	}
	grid := cfg.SearchSpace.Grid()
	if len(grid) == 0 {
		return nil, fmt.Errorf("model %q has an empty search space", cfg.ID)
	}

	splits, err := dataset.StratifiedKFold(y, labels, s.folds, s.seed)
	if err != nil {
		return nil, err
	}

	// the vectorizer has no hyperparameters, so each fold is vectorized once
	folds := make([]foldData, len(splits))
	for i, split := range splits {
		fd, err := vectorizeFold(X, y, split)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", i, err)
		}
		folds[i] = fd
	}

	s.logger.Info("Starting grid search",
		zap.String("model_id", cfg.ID),
		zap.Int("combinations", len(grid)),
		zap.Int("folds", len(folds)),
		zap.Int("workers", s.workers))

	trials := make([]Trial, len(grid))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for t, params := range grid {
		t, params := t, params
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			scores := make([]float64, len(folds))
			for f, fd := range folds {
				score, err := s.scoreFold(cfg.Pipeline.Classifier, params, fd, len(labels))
				if err != nil {
					return fmt.Errorf("trial %s fold %d: %w", params.Key(), f, err)
				}
				scores[f] = score
			}
			trials[t] = Trial{Params: params, FoldScores: scores, Mean: stat.Mean(scores, nil)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := 0
	for t := range trials {
		if trials[t].Mean > trials[best].Mean {
			best = t
		}
	}
	bestParams := trials[best].Params

	s.logger.Info("Grid search finished",
		zap.String("model_id", cfg.ID),
		zap.String("best_params", bestParams.Key()),
		zap.Float64("cv_score", trials[best].Mean))

	clf, err := s.factory.New(cfg.Pipeline.Classifier, bestParams, s.seed)
	if err != nil {
		return nil, err
	}
	model, err := training.Fit(cfg.ID, labels, bestParams, X, y, clf)
	if err != nil {
		return nil, fmt.Errorf("failed to refit best model: %w", err)
	}

	return &Result{
		Model:      model,
		Score:      trials[best].Mean,
		BestParams: bestParams.Clone(),
		Trials:     trials,
	}, nil
}

func vectorizeFold(X []string, y []int, split dataset.Fold) (foldData, error) {
	pick := func(idx []int) ([]string, []int) {
		texts := make([]string, len(idx))
		labels := make([]int, len(idx))
		for i, j := range idx {
			texts[i] = X[j]
			labels[i] = y[j]
		}
		return texts, labels
	}

	trainX, trainY := pick(split.Train)
	testX, testY := pick(split.Test)

	vec := training.NewTfidfVectorizer()
	train, err := vec.FitTransform(trainX)
	if err != nil {
		return foldData{}, err
	}
	return foldData{
		train:   train,
		trainY:  trainY,
		test:    vec.Transform(testX),
		testY:   testY,
		numFeat: vec.NumFeatures(),
	}, nil
}

func (s *Selector) scoreFold(kind models.ClassifierKind, params models.Params, fd foldData, numClasses int) (float64, error) {
	clf, err := s.factory.New(kind, params, s.seed)
	if err != nil {
		return 0, err
	}
	if err := clf.Fit(fd.train, fd.trainY, numClasses, fd.numFeat); err != nil {
		return 0, err
	}

	correct := 0
	for i, x := range fd.test {
		if training.PredictIndex(clf, x) == fd.testY[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(fd.test)), nil
}
