package training

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Penalty names accepted by LogisticRegression
const (
	PenaltyL1 = "l1"
	PenaltyL2 = "l2"
)

const (
	logisticIterations = 300
	logisticStep       = 1.0
)

// LogisticRegression is a one-vs-rest logistic regression fitted by proximal
// gradient descent on 1/n·Σ logloss + λ·R(w), λ = 1/(C·n). R is ½||w||² for
// l2 and ||w||₁ for l1. The bias is not penalised.
type LogisticRegression struct {
	C          float64     `json:"C"`
	Penalty    string      `json:"penalty"`
	NumClasses int         `json:"num_classes"`
	Weights    [][]float64 `json:"weights"`
	Bias       []float64   `json:"bias"`
}

func newLogisticRegression(params models.Params, _ int64) (Classifier, error) {
	c, err := params.Float("C")
	if err != nil {
		return nil, err
	}
	if c <= 0 {
		return nil, fmt.Errorf("C must be positive, got %v", c)
	}
	penalty := PenaltyL2
	if _, ok := params["penalty"]; ok {
		if penalty, err = params.Choice("penalty"); err != nil {
			return nil, err
		}
	}
	if penalty != PenaltyL1 && penalty != PenaltyL2 {
		return nil, fmt.Errorf("unsupported penalty %q", penalty)
	}
	return &LogisticRegression{C: c, Penalty: penalty}, nil
}

// Fit implements Classifier
func (lr *LogisticRegression) Fit(X []SparseVector, y []int, numClasses, numFeatures int) error {
	if err := validateFitInput(X, y, numClasses); err != nil {
		return err
	}
	lr.NumClasses = numClasses
	lambda := 1 / (lr.C * float64(len(X)))

	classes := oneVsRest(numClasses)
	lr.Weights = make([][]float64, len(classes))
	lr.Bias = make([]float64, len(classes))
	for m, c := range classes {
		lr.Weights[m], lr.Bias[m] = lr.fitBinary(X, binaryTargets(y, c), numFeatures, lambda)
	}
	return nil
}

func (lr *LogisticRegression) fitBinary(X []SparseVector, t []float64, numFeatures int, lambda float64) ([]float64, float64) {
	w := make([]float64, numFeatures)
	grad := make([]float64, numFeatures)
	b := 0.0
	n := float64(len(X))

	for iter := 0; iter < logisticIterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		gradB := 0.0
		for i, x := range X {
			m := t[i] * (x.Dot(w) + b)
			// d/dm log(1+exp(-m)) = -σ(-m)
			coef := -t[i] * sigmoid(-m) / n
			x.AddScaledTo(grad, coef)
			gradB += coef
		}

		floats.AddScaled(w, -logisticStep, grad)
		b -= logisticStep * gradB

		switch lr.Penalty {
		case PenaltyL1:
			softThreshold(w, logisticStep*lambda)
		default:
			floats.Scale(1/(1+logisticStep*lambda), w)
		}
	}
	return w, b
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}

func softThreshold(w []float64, k float64) {
	for j, v := range w {
		switch {
		case v > k:
			w[j] = v - k
		case v < -k:
			w[j] = v + k
		default:
			w[j] = 0
		}
	}
}

// Decision implements Classifier
func (lr *LogisticRegression) Decision(x SparseVector) []float64 {
	margins := make([]float64, len(lr.Weights))
	for m, w := range lr.Weights {
		margins[m] = x.Dot(w) + lr.Bias[m]
	}
	return ovrScores(lr.NumClasses, margins)
}

// Validate implements Classifier
func (lr *LogisticRegression) Validate(numClasses, numFeatures int) error {
	return checkLinear(lr.NumClasses, numClasses, numFeatures, lr.Weights, lr.Bias)
}

// Kind implements Classifier
func (lr *LogisticRegression) Kind() models.ClassifierKind {
	return models.ClassifierLogisticRegression
}
