package training

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

const mlpEpochs = 20

// MLP is a perceptron with one ReLU hidden layer and a softmax output,
// trained by plain stochastic gradient descent on cross-entropy.
type MLP struct {
	HiddenUnits  int         `json:"hidden_units"`
	LearningRate float64     `json:"learning_rate"`
	Epochs       int         `json:"epochs"`
	Seed         int64       `json:"seed"`
	W1           [][]float64 `json:"w1"` // numFeatures x hidden
	B1           []float64   `json:"b1"`
	W2           [][]float64 `json:"w2"` // hidden x numClasses
	B2           []float64   `json:"b2"`
}

func newMLP(params models.Params, seed int64) (Classifier, error) {
	hidden, err := params.Float("hidden_units")
	if err != nil {
		return nil, err
	}
	lr, err := params.Float("learning_rate")
	if err != nil {
		return nil, err
	}
	if hidden < 1 || hidden != math.Trunc(hidden) {
		return nil, fmt.Errorf("hidden_units must be a positive integer, got %v", hidden)
	}
	if lr <= 0 {
		return nil, fmt.Errorf("learning_rate must be positive, got %v", lr)
	}
	return &MLP{HiddenUnits: int(hidden), LearningRate: lr, Epochs: mlpEpochs, Seed: seed}, nil
}

// Fit implements Classifier
func (m *MLP) Fit(X []SparseVector, y []int, numClasses, numFeatures int) error {
	if err := validateFitInput(X, y, numClasses); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(m.Seed))
	h := m.HiddenUnits

	// He initialisation for the ReLU layer, Glorot for the output layer
	std1 := math.Sqrt(2 / float64(numFeatures))
	m.W1 = make([][]float64, numFeatures)
	for j := range m.W1 {
		m.W1[j] = make([]float64, h)
		for u := range m.W1[j] {
			m.W1[j][u] = rng.NormFloat64() * std1
		}
	}
	std2 := math.Sqrt(2 / float64(h+numClasses))
	m.W2 = make([][]float64, h)
	for u := range m.W2 {
		m.W2[u] = make([]float64, numClasses)
		for c := range m.W2[u] {
			m.W2[u][c] = rng.NormFloat64() * std2
		}
	}
	m.B1 = make([]float64, h)
	m.B2 = make([]float64, numClasses)

	order := make([]int, len(X))
	for i := range order {
		order[i] = i
	}
	hidden := make([]float64, h)
	dHidden := make([]float64, h)
	probs := make([]float64, numClasses)

	for epoch := 0; epoch < m.Epochs; epoch++ {
		rng.Shuffle(len(order), func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
		for _, i := range order {
			m.forward(X[i], hidden, probs)

			// output gradient of softmax + cross-entropy
			probs[y[i]] -= 1

			for u := range dHidden {
				if hidden[u] > 0 {
					dHidden[u] = floats.Dot(m.W2[u], probs)
				} else {
					dHidden[u] = 0
				}
			}
			for u := range m.W2 {
				floats.AddScaled(m.W2[u], -m.LearningRate*hidden[u], probs)
			}
			floats.AddScaled(m.B2, -m.LearningRate, probs)
			for k, j := range X[i].Indices {
				floats.AddScaled(m.W1[j], -m.LearningRate*X[i].Values[k], dHidden)
			}
			floats.AddScaled(m.B1, -m.LearningRate, dHidden)
		}
	}
	return nil
}

// forward fills hidden with ReLU activations and probs with class probabilities
func (m *MLP) forward(x SparseVector, hidden, probs []float64) {
	copy(hidden, m.B1)
	for k, j := range x.Indices {
		floats.AddScaled(hidden, x.Values[k], m.W1[j])
	}
	for u, v := range hidden {
		if v < 0 {
			hidden[u] = 0
		}
	}

	copy(probs, m.B2)
	for u, a := range hidden {
		if a != 0 {
			floats.AddScaled(probs, a, m.W2[u])
		}
	}
	softmax(probs)
}

func softmax(z []float64) {
	maxZ := floats.Max(z)
	sum := 0.0
	for c, v := range z {
		z[c] = math.Exp(v - maxZ)
		sum += z[c]
	}
	floats.Scale(1/sum, z)
}

// Decision implements Classifier: class probabilities
func (m *MLP) Decision(x SparseVector) []float64 {
	hidden := make([]float64, len(m.B1))
	probs := make([]float64, len(m.B2))
	m.forward(x, hidden, probs)
	return probs
}

// Validate implements Classifier
func (m *MLP) Validate(numClasses, numFeatures int) error {
	hidden := len(m.B1)
	if hidden == 0 {
		return fmt.Errorf("b1 is empty")
	}
	if err := checkMatrix("w1", m.W1, numFeatures, hidden); err != nil {
		return err
	}
	if err := checkMatrix("w2", m.W2, hidden, numClasses); err != nil {
		return err
	}
	return checkVector("b2", m.B2, numClasses)
}

// Kind implements Classifier
func (m *MLP) Kind() models.ClassifierKind {
	return models.ClassifierNeuralNetwork
}
