package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/sentiment-go/pkg/mlmodel/catalog"
	"github.com/mimir-aip/sentiment-go/pkg/models"
)

func corpus(n int) ([]string, []int) {
	pos := []string{"super", "excellent", "delicieux", "parfait", "genial"}
	neg := []string{"horrible", "froid", "lent", "decevant", "nul"}
	filler := []string{"restaurant", "plat", "serveur", "menu"}

	texts := make([]string, n)
	y := make([]int, n)
	for i := range texts {
		words := neg
		if i%2 == 1 {
			words = pos
			y[i] = 1
		}
		texts[i] = fmt.Sprintf("%s %s %s", words[i%5], filler[(i/2)%4], words[(i/3)%5])
	}
	return texts, y
}

func TestSelectBest_NaiveBayes(t *testing.T) {
	cfg, err := catalog.Default().Get("naive_bayes")
	require.NoError(t, err)
	X, y := corpus(50)

	res, err := New(Options{Seed: 1, Workers: 2}).SelectBest(context.Background(), cfg, X, y, []string{"0", "1"})
	require.NoError(t, err)

	assert.Len(t, res.Trials, 10)
	for _, trial := range res.Trials {
		assert.Len(t, trial.FoldScores, DefaultFolds)
		assert.GreaterOrEqual(t, res.Score, trial.Mean)
	}
	assert.GreaterOrEqual(t, res.Score, 0.9)
	assert.Equal(t, "naive_bayes", res.Model.ModelID)
	assert.Equal(t, res.BestParams, res.Model.Params)

	label, err := res.Model.Predict("excellent parfait")
	require.NoError(t, err)
	assert.Equal(t, "1", label)
}

func TestSelectBest_FirstMaximumWins(t *testing.T) {
	// every alpha separates this corpus perfectly, so the first grid point wins
	cfg, err := catalog.Default().Get("naive_bayes")
	require.NoError(t, err)
	X, y := corpus(40)

	res, err := New(Options{Seed: 3}).SelectBest(context.Background(), cfg, X, y, []string{"0", "1"})
	require.NoError(t, err)

	for _, trial := range res.Trials {
		if trial.Mean == res.Score {
			assert.Equal(t, trial.Params, res.BestParams)
			break
		}
	}
}

func TestSelectBest_Deterministic(t *testing.T) {
	cfg := models.ModelConfig{
		ID:       "small_svm",
		Pipeline: models.PipelineShape{Vectorizer: models.VectorizerTfidf, Classifier: models.ClassifierSVM},
		SearchSpace: models.SearchSpace{
			{Name: "C", Values: []any{0.1, 10.0}},
			{Name: "gamma", Values: []any{0.5}},
			{Name: "kernel", Values: []any{"linear", "rbf"}},
		},
	}
	X, y := corpus(40)
	labels := []string{"negatif", "positif"}

	run := func(workers int) *Result {
		res, err := New(Options{Seed: 99, Workers: workers}).SelectBest(context.Background(), cfg, X, y, labels)
		require.NoError(t, err)
		return res
	}

	a, b := run(1), run(4)
	assert.Equal(t, a.Score, b.Score)
	assert.Equal(t, a.BestParams, b.BestParams)
	assert.Equal(t, a.Trials, b.Trials)

	probe := []string{"super menu", "froid lent", "restaurant"}
	predA, err := a.Model.PredictBatch(probe)
	require.NoError(t, err)
	predB, err := b.Model.PredictBatch(probe)
	require.NoError(t, err)
	assert.Equal(t, predA, predB)
}

func TestSelectBest_InsufficientData(t *testing.T) {
	cfg, err := catalog.Default().Get("naive_bayes")
	require.NoError(t, err)

	X := []string{"bon repas", "bon plat", "bon vin", "bon pain", "bon dessert", "bon cafe", "nul repas", "nul plat"}
	y := []int{1, 1, 1, 1, 1, 1, 0, 0}

	_, err = New(Options{Seed: 1}).SelectBest(context.Background(), cfg, X, y, []string{"negatif", "positif"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInsufficientData))

	var insufficient *models.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "negatif", insufficient.Label)
}

func TestSelectBest_Cancelled(t *testing.T) {
	cfg, err := catalog.Default().Get("naive_bayes")
	require.NoError(t, err)
	X, y := corpus(30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = New(Options{Seed: 1, Workers: 1}).SelectBest(ctx, cfg, X, y, []string{"0", "1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSelectBest_InvalidParamsFail(t *testing.T) {
	cfg := models.ModelConfig{
		ID:          "broken",
		Pipeline:    models.PipelineShape{Classifier: models.ClassifierNaiveBayes},
		SearchSpace: models.SearchSpace{{Name: "alpha", Values: []any{-1.0}}},
	}
	X, y := corpus(20)

	_, err := New(Options{}).SelectBest(context.Background(), cfg, X, y, []string{"0", "1"})
	assert.Error(t, err)

	_, err = New(Options{}).SelectBest(context.Background(), models.ModelConfig{ID: "empty"}, X, y, []string{"0", "1"})
	assert.Error(t, err)
}
