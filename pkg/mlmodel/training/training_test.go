package training

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

var (
	positiveWords = []string{"super", "excellent", "delicieux", "parfait", "genial", "bravo"}
	negativeWords = []string{"horrible", "froid", "lent", "decevant", "sale", "nul"}
	neutralWords  = []string{"restaurant", "plat", "serveur", "table", "menu", "soir"}
)

// sentimentCorpus builds n documents alternating between label 0 (negative)
// and label 1 (positive), each mixing sentiment words with neutral filler
func sentimentCorpus(n int) ([]string, []int) {
	texts := make([]string, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		words := negativeWords
		if i%2 == 1 {
			words = positiveWords
			y[i] = 1
		}
		texts[i] = fmt.Sprintf("%s %s %s %s",
			words[i%len(words)], neutralWords[i%len(neutralWords)],
			words[(i/2+1)%len(words)], neutralWords[(i+3)%len(neutralWords)])
	}
	return texts, y
}

func TestTfidfVectorizer(t *testing.T) {
	vec := NewTfidfVectorizer()
	X, err := vec.FitTransform([]string{"bon bon repas", "repas froid", "a b"})
	require.NoError(t, err)

	assert.Equal(t, []string{"bon", "froid", "repas"}, vec.Terms)
	assert.InDelta(t, math.Log(4.0/2.0)+1, vec.IDF[0], 1e-12)
	assert.InDelta(t, math.Log(4.0/3.0)+1, vec.IDF[2], 1e-12)

	require.Len(t, X, 3)
	assert.Equal(t, []int{0, 2}, X[0].Indices)
	assert.InDelta(t, 1.0, X[0].SquaredNorm(), 1e-12)
	assert.Empty(t, X[2].Indices, "single-letter tokens are ignored")

	unseen := vec.Transform([]string{"inconnu"})
	assert.Empty(t, unseen[0].Indices)

	_, err = NewTfidfVectorizer().FitTransform([]string{"a", "b c"})
	assert.Error(t, err)
}

func TestSparseVectorOps(t *testing.T) {
	a := SparseVector{Indices: []int{0, 2, 5}, Values: []float64{1, 2, 3}}
	b := SparseVector{Indices: []int{2, 3, 5}, Values: []float64{4, 5, 6}}

	assert.Equal(t, 2*4.0+3*6.0, a.DotSparse(b))
	assert.Equal(t, 1+4+9.0, a.SquaredNorm())
	assert.Equal(t, 1*1+3*2.0, a.Dot([]float64{1, 0, 3, 0, 0, 0}))

	dst := make([]float64, 6)
	a.AddScaledTo(dst, 2)
	assert.Equal(t, []float64{2, 0, 4, 0, 0, 6}, dst)
}

func classifierCases() map[string]struct {
	kind   models.ClassifierKind
	params models.Params
} {
	return map[string]struct {
		kind   models.ClassifierKind
		params models.Params
	}{
		"naive bayes":         {models.ClassifierNaiveBayes, models.Params{"alpha": 0.5}},
		"naive bayes alpha 0": {models.ClassifierNaiveBayes, models.Params{"alpha": 0.0}},
		"linear svm":          {models.ClassifierSVM, models.Params{"C": 10.0, "gamma": 0.1, "kernel": "linear"}},
		"rbf svm":             {models.ClassifierSVM, models.Params{"C": 10.0, "gamma": 1.0, "kernel": "rbf"}},
		"logistic l2":         {models.ClassifierLogisticRegression, models.Params{"C": 100.0, "penalty": "l2"}},
		"logistic l1":         {models.ClassifierLogisticRegression, models.Params{"C": 100.0, "penalty": "l1"}},
		"mlp":                 {models.ClassifierNeuralNetwork, models.Params{"hidden_units": 16.0, "learning_rate": 0.1}},
	}
}

func TestClassifiersLearnSeparableCorpus(t *testing.T) {
	texts, y := sentimentCorpus(60)
	labels := []string{"0", "1"}

	for name, tc := range classifierCases() {
		t.Run(name, func(t *testing.T) {
			clf, err := NewClassifier(tc.kind, tc.params, 42)
			require.NoError(t, err)

			model, err := Fit(name, labels, tc.params, texts, y, clf)
			require.NoError(t, err)

			pred, err := model.PredictBatch(texts)
			require.NoError(t, err)
			correct := 0
			for i := range pred {
				if pred[i] == y[i] {
					correct++
				}
			}
			assert.GreaterOrEqual(t, float64(correct)/float64(len(y)), 0.9)

			label, err := model.Predict("excellent parfait")
			require.NoError(t, err)
			assert.Equal(t, "1", label)
		})
	}
}

func TestClassifierMultiClass(t *testing.T) {
	texts := []string{}
	y := []int{}
	groups := [][]string{negativeWords, neutralWords, positiveWords}
	for i := 0; i < 45; i++ {
		c := i % 3
		w := groups[c]
		texts = append(texts, w[i%6]+" "+w[(i+2)%6])
		y = append(y, c)
	}

	for _, kind := range []models.ClassifierKind{models.ClassifierSVM, models.ClassifierLogisticRegression, models.ClassifierNaiveBayes} {
		params := models.Params{"C": 100.0, "kernel": "linear", "penalty": "l2", "alpha": 0.1}
		clf, err := NewClassifier(kind, params, 1)
		require.NoError(t, err)
		model, err := Fit("multi", []string{"neg", "neu", "pos"}, params, texts, y, clf)
		require.NoError(t, err)

		label, err := model.Predict("restaurant plat")
		require.NoError(t, err)
		assert.Equal(t, "neu", label, string(kind))
		assert.Len(t, model.Classifier.Decision(SparseVector{}), 3)
	}
}

func TestNewClassifierRejectsBadParams(t *testing.T) {
	tests := []struct {
		kind   models.ClassifierKind
		params models.Params
	}{
		{models.ClassifierNaiveBayes, models.Params{}},
		{models.ClassifierNaiveBayes, models.Params{"alpha": -1.0}},
		{models.ClassifierSVM, models.Params{"C": 1.0, "kernel": "poly"}},
		{models.ClassifierSVM, models.Params{"C": 0.0, "kernel": "linear"}},
		{models.ClassifierSVM, models.Params{"C": 1.0, "kernel": "rbf"}},
		{models.ClassifierLogisticRegression, models.Params{"C": 1.0, "penalty": "elasticnet"}},
		{models.ClassifierNeuralNetwork, models.Params{"hidden_units": 1.5, "learning_rate": 0.1}},
		{"random_forest", models.Params{}},
	}

	for _, tt := range tests {
		_, err := NewClassifier(tt.kind, tt.params, 1)
		assert.Error(t, err, "%s %v", tt.kind, tt.params)
	}
}

func TestFitRejectsBadInput(t *testing.T) {
	clf, err := NewClassifier(models.ClassifierNaiveBayes, models.Params{"alpha": 1.0}, 1)
	require.NoError(t, err)

	assert.Error(t, clf.Fit(nil, nil, 2, 3))
	assert.Error(t, clf.Fit([]SparseVector{{}}, []int{0, 1}, 2, 3))
	assert.Error(t, clf.Fit([]SparseVector{{}}, []int{2}, 2, 3))
	assert.Error(t, clf.Fit([]SparseVector{{}}, []int{0}, 1, 3))
}

func TestFittedModelJSONIsDeterministic(t *testing.T) {
	texts, y := sentimentCorpus(40)
	labels := []string{"negatif", "positif"}

	for name, tc := range classifierCases() {
		t.Run(name, func(t *testing.T) {
			fit := func() []byte {
				clf, err := NewClassifier(tc.kind, tc.params, 7)
				require.NoError(t, err)
				model, err := Fit(name, labels, tc.params, texts, y, clf)
				require.NoError(t, err)
				data, err := json.Marshal(model)
				require.NoError(t, err)
				return data
			}

			first := fit()
			assert.Equal(t, first, fit(), "refitting with the same seed gives identical bytes")

			var loaded FittedModel
			require.NoError(t, json.Unmarshal(first, &loaded))
			again, err := json.Marshal(&loaded)
			require.NoError(t, err)
			assert.Equal(t, first, again, "decode then encode is lossless")

			label, err := loaded.Predict("super excellent")
			require.NoError(t, err)
			assert.Equal(t, "positif", label)
		})
	}
}

func TestFittedModelUnmarshalErrors(t *testing.T) {
	var m FittedModel
	assert.Error(t, json.Unmarshal([]byte(`{"format_version": 99}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"format_version": 1, "labels": ["a","b"]}`), &m))
	assert.Error(t, json.Unmarshal([]byte(`{"format_version": 1, "labels": ["a","b"], "vectorizer": {"terms": ["x"], "idf": [1]}, "classifier": "tree", "state": {}}`), &m))

	_, err := (&FittedModel{ModelID: "empty"}).Predict("x")
	assert.Error(t, err)
}

func TestFittedModelRejectsTruncatedState(t *testing.T) {
	texts, y := sentimentCorpus(40)
	labels := []string{"negatif", "positif"}

	truncate := map[string]struct {
		field string
		value any
	}{
		"naive bayes":         {"feature_log_prob", [][]float64{{}, {}}},
		"naive bayes alpha 0": {"class_log_prior", []float64{0}},
		"linear svm":          {"weights", [][]float64{{}}},
		"rbf svm":             {"dual_coef", [][]float64{{}}},
		"logistic l2":         {"bias", []float64{}},
		"logistic l1":         {"num_classes", 3},
		"mlp":                 {"w2", [][]float64{{0.1}}},
	}

	for name, tc := range classifierCases() {
		t.Run(name, func(t *testing.T) {
			clf, err := NewClassifier(tc.kind, tc.params, 7)
			require.NoError(t, err)
			model, err := Fit(name, labels, tc.params, texts, y, clf)
			require.NoError(t, err)
			data, err := json.Marshal(model)
			require.NoError(t, err)

			var doc map[string]any
			require.NoError(t, json.Unmarshal(data, &doc))
			state := doc["state"].(map[string]any)
			edit, ok := truncate[name]
			require.True(t, ok, "no truncation for %s", name)
			state[edit.field] = edit.value
			broken, err := json.Marshal(doc)
			require.NoError(t, err)

			var loaded FittedModel
			err = json.Unmarshal(broken, &loaded)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid "+string(tc.kind)+" state")
		})
	}
}
