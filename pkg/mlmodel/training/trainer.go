package training

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// Classifier is the contract every estimator stage implements
type Classifier interface {
	// Fit trains on TF-IDF rows X with class indices y in [0, numClasses)
	Fit(X []SparseVector, y []int, numClasses, numFeatures int) error

	// Decision returns one score per class; the highest wins
	Decision(x SparseVector) []float64

	// Kind returns the classifier tag used for persistence
	Kind() models.ClassifierKind

	// Validate checks that decoded state fits numClasses and numFeatures
	Validate(numClasses, numFeatures int) error
}

// Builder constructs an unfitted classifier from one point of a search space
type Builder func(params models.Params, seed int64) (Classifier, error)

// ClassifierFactory creates classifiers for the different classifier kinds
type ClassifierFactory struct {
	builders map[models.ClassifierKind]Builder
	empty    map[models.ClassifierKind]func() Classifier
}

// NewClassifierFactory creates a factory with every built-in classifier registered
func NewClassifierFactory() *ClassifierFactory {
	f := &ClassifierFactory{
		builders: make(map[models.ClassifierKind]Builder),
		empty:    make(map[models.ClassifierKind]func() Classifier),
	}

	f.Register(models.ClassifierNaiveBayes, newNaiveBayes, func() Classifier { return &MultinomialNB{} })
	f.Register(models.ClassifierSVM, newSVM, func() Classifier { return &SVC{} })
	f.Register(models.ClassifierLogisticRegression, newLogisticRegression, func() Classifier { return &LogisticRegression{} })
	f.Register(models.ClassifierNeuralNetwork, newMLP, func() Classifier { return &MLP{} })

	return f
}

// Register adds a classifier kind. empty returns a zero value to decode a
// persisted classifier into.
func (f *ClassifierFactory) Register(kind models.ClassifierKind, build Builder, empty func() Classifier) {
	f.builders[kind] = build
	f.empty[kind] = empty
}

// New returns an unfitted classifier of the given kind
func (f *ClassifierFactory) New(kind models.ClassifierKind, params models.Params, seed int64) (Classifier, error) {
	build, ok := f.builders[kind]
	if !ok {
		return nil, fmt.Errorf("no classifier available for kind: %s", kind)
	}
	clf, err := build(params, seed)
	if err != nil {
		return nil, fmt.Errorf("invalid parameters for %s (%s): %w", kind, params.Key(), err)
	}
	return clf, nil
}

func (f *ClassifierFactory) zero(kind models.ClassifierKind) (Classifier, error) {
	empty, ok := f.empty[kind]
	if !ok {
		return nil, fmt.Errorf("no classifier available for kind: %s", kind)
	}
	return empty(), nil
}

var defaultFactory = NewClassifierFactory()

// NewClassifier builds a classifier with the default factory
func NewClassifier(kind models.ClassifierKind, params models.Params, seed int64) (Classifier, error) {
	return defaultFactory.New(kind, params, seed)
}

// PredictIndex returns the class with the highest decision score; ties go to
// the lower index
func PredictIndex(clf Classifier, x SparseVector) int {
	return floats.MaxIdx(clf.Decision(x))
}

// binaryTargets maps class indices to +1 for class c and -1 otherwise
func binaryTargets(y []int, c int) []float64 {
	t := make([]float64, len(y))
	for i, v := range y {
		if v == c {
			t[i] = 1
		} else {
			t[i] = -1
		}
	}
	return t
}

// oneVsRest returns the classes that need their own binary model. A two-class
// problem is solved once, for class 1, and mirrored.
func oneVsRest(numClasses int) []int {
	if numClasses == 2 {
		return []int{1}
	}
	classes := make([]int, numClasses)
	for i := range classes {
		classes[i] = i
	}
	return classes
}

// ovrScores expands per-model margins into per-class scores
func ovrScores(numClasses int, margins []float64) []float64 {
	if numClasses == 2 {
		return []float64{-margins[0], margins[0]}
	}
	out := make([]float64, len(margins))
	copy(out, margins)
	return out
}

func validateFitInput(X []SparseVector, y []int, numClasses int) error {
	if len(X) == 0 {
		return fmt.Errorf("no training data provided")
	}
	if len(X) != len(y) {
		return fmt.Errorf("got %d rows and %d labels", len(X), len(y))
	}
	if numClasses < 2 {
		return fmt.Errorf("need at least 2 classes, got %d", numClasses)
	}
	for _, c := range y {
		if c < 0 || c >= numClasses {
			return fmt.Errorf("label index %d out of range [0, %d)", c, numClasses)
		}
	}
	return nil
}

// checkVector fails unless v has exactly n entries
func checkVector(name string, v []float64, n int) error {
	if len(v) != n {
		return fmt.Errorf("%s has %d entries, expected %d", name, len(v), n)
	}
	return nil
}

// checkMatrix fails unless m is rows x cols
func checkMatrix(name string, m [][]float64, rows, cols int) error {
	if len(m) != rows {
		return fmt.Errorf("%s has %d rows, expected %d", name, len(m), rows)
	}
	for i, row := range m {
		if len(row) != cols {
			return fmt.Errorf("%s row %d has %d entries, expected %d", name, i, len(row), cols)
		}
	}
	return nil
}

// checkLinear validates a one-vs-rest linear model
func checkLinear(stored, numClasses, numFeatures int, weights [][]float64, bias []float64) error {
	if stored != numClasses {
		return fmt.Errorf("state has %d classes, model has %d labels", stored, numClasses)
	}
	m := len(oneVsRest(numClasses))
	if err := checkMatrix("weights", weights, m, numFeatures); err != nil {
		return err
	}
	return checkVector("bias", bias, m)
}
