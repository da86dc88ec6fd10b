package dataset

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// DefaultSeed is the seed used by the training CLI when none is given
const DefaultSeed int64 = 32451365

// Fold is one cross-validation partition, as row indices
type Fold struct {
	Train []int
	Test  []int
}

// groupByClass returns the row indices of each class, in row order
func groupByClass(y []int, numClasses int) [][]int {
	groups := make([][]int, numClasses)
	for i, c := range y {
		groups[c] = append(groups[c], i)
	}
	return groups
}

func numClassesOf(y []int) int {
	n := 0
	for _, c := range y {
		if c+1 > n {
			n = c + 1
		}
	}
	return n
}

// StratifiedSplit partitions row indices into train and test sets, keeping the
// class proportions of y in both. Each class with at least two rows contributes
// at least one row to each side.
func StratifiedSplit(y []int, trainFraction float64, seed int64) ([]int, []int, error) {
	if len(y) < 2 {
		return nil, nil, models.DataFormatError("need at least 2 rows to split, got %d", len(y))
	}
	if trainFraction <= 0 || trainFraction >= 1 {
		return nil, nil, fmt.Errorf("train fraction must be in (0, 1), got %v", trainFraction)
	}

	rng := rand.New(rand.NewSource(seed))
	var train, test []int
	for _, samples := range groupByClass(y, numClassesOf(y)) {
		rng.Shuffle(len(samples), func(i, j int) {
			samples[i], samples[j] = samples[j], samples[i]
		})

		nTest := int(math.Round(float64(len(samples)) * (1 - trainFraction)))
		if len(samples) >= 2 {
			nTest = min(max(nTest, 1), len(samples)-1)
		} else {
			nTest = 0
		}
		test = append(test, samples[:nTest]...)
		train = append(train, samples[nTest:]...)
	}

	rng.Shuffle(len(train), func(i, j int) {
		train[i], train[j] = train[j], train[i]
	})
	rng.Shuffle(len(test), func(i, j int) {
		test[i], test[j] = test[j], test[i]
	})
	return train, test, nil
}

// StratifiedKFold assigns rows to k folds so that each fold has roughly the
// class proportions of y. Rows of a class are shuffled with the seed, then
// dealt round-robin across folds. Every label needs at least k rows.
func StratifiedKFold(y []int, labels []string, k int, seed int64) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("k must be at least 2, got %d", k)
	}

	groups := groupByClass(y, max(len(labels), numClassesOf(y)))
	for c, samples := range groups {
		if len(samples) < k {
			label := fmt.Sprint(c)
			if c < len(labels) {
				label = labels[c]
			}
			return nil, &models.InsufficientDataError{Label: label, Count: len(samples), Folds: k}
		}
	}

	rng := rand.New(rand.NewSource(seed))
	assignment := make([]int, len(y))
	next := 0
	for _, samples := range groups {
		rng.Shuffle(len(samples), func(i, j int) {
			samples[i], samples[j] = samples[j], samples[i]
		})
		for _, idx := range samples {
			assignment[idx] = next % k
			next++
		}
	}

	// indices are visited in ascending order, so each fold is sorted
	folds := make([]Fold, k)
	for idx, f := range assignment {
		for i := range folds {
			if i == f {
				folds[i].Test = append(folds[i].Test, idx)
			} else {
				folds[i].Train = append(folds[i].Train, idx)
			}
		}
	}
	return folds, nil
}
