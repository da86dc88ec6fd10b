package training

import (
	"fmt"
	"math"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

const (
	// minAlpha replaces a zero smoothing parameter
	minAlpha = 1e-10
	// logZero stands in for log(0) so fitted models stay JSON-encodable
	logZero = -1e100
)

// MultinomialNB is a multinomial naive Bayes classifier over TF-IDF weights
type MultinomialNB struct {
	Alpha          float64     `json:"alpha"`
	ClassLogPrior  []float64   `json:"class_log_prior"`
	FeatureLogProb [][]float64 `json:"feature_log_prob"`
}

func newNaiveBayes(params models.Params, _ int64) (Classifier, error) {
	alpha, err := params.Float("alpha")
	if err != nil {
		return nil, err
	}
	if alpha < 0 {
		return nil, fmt.Errorf("alpha must be non-negative, got %v", alpha)
	}
	return &MultinomialNB{Alpha: alpha}, nil
}

// Fit implements Classifier
func (nb *MultinomialNB) Fit(X []SparseVector, y []int, numClasses, numFeatures int) error {
	if err := validateFitInput(X, y, numClasses); err != nil {
		return err
	}
	alpha := math.Max(nb.Alpha, minAlpha)

	classCount := make([]float64, numClasses)
	featureCount := make([][]float64, numClasses)
	for c := range featureCount {
		featureCount[c] = make([]float64, numFeatures)
	}
	for i, x := range X {
		classCount[y[i]]++
		x.AddScaledTo(featureCount[y[i]], 1)
	}

	n := float64(len(X))
	nb.ClassLogPrior = make([]float64, numClasses)
	nb.FeatureLogProb = make([][]float64, numClasses)
	for c := 0; c < numClasses; c++ {
		if classCount[c] > 0 {
			nb.ClassLogPrior[c] = math.Log(classCount[c] / n)
		} else {
			nb.ClassLogPrior[c] = logZero
		}

		total := 0.0
		for _, v := range featureCount[c] {
			total += v + alpha
		}
		logTotal := math.Log(total)
		probs := make([]float64, numFeatures)
		for j, v := range featureCount[c] {
			probs[j] = math.Log(v+alpha) - logTotal
		}
		nb.FeatureLogProb[c] = probs
	}
	return nil
}

// Decision implements Classifier: the joint log-likelihood of each class
func (nb *MultinomialNB) Decision(x SparseVector) []float64 {
	scores := make([]float64, len(nb.ClassLogPrior))
	for c := range scores {
		scores[c] = nb.ClassLogPrior[c] + x.Dot(nb.FeatureLogProb[c])
	}
	return scores
}

// Validate implements Classifier
func (nb *MultinomialNB) Validate(numClasses, numFeatures int) error {
	if err := checkVector("class_log_prior", nb.ClassLogPrior, numClasses); err != nil {
		return err
	}
	return checkMatrix("feature_log_prob", nb.FeatureLogProb, numClasses, numFeatures)
}

// Kind implements Classifier
func (nb *MultinomialNB) Kind() models.ClassifierKind {
	return models.ClassifierNaiveBayes
}
