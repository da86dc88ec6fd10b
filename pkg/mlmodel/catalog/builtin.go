package catalog

import "github.com/mimir-aip/sentiment-go/pkg/models"

func builtin() []models.ModelConfig {
	return []models.ModelConfig{
		{
			ID:       "svm",
			Name:     "SVC",
			Pipeline: models.PipelineShape{Vectorizer: models.VectorizerTfidf, Classifier: models.ClassifierSVM},
			SearchSpace: models.SearchSpace{
				{Name: "C", Values: Logspace(0, 5, 10)},
				{Name: "gamma", Values: Logspace(-6, 0, 10)},
				{Name: "kernel", Values: []any{"linear", "rbf"}},
			},
		},
		{
			ID:       "naive_bayes",
			Name:     "MultinomialNB",
			Pipeline: models.PipelineShape{Vectorizer: models.VectorizerTfidf, Classifier: models.ClassifierNaiveBayes},
			SearchSpace: models.SearchSpace{
				{Name: "alpha", Values: Linspace(0, 1, 10)},
			},
		},
		{
			ID:       "logistic_regression",
			Name:     "LogisticRegression",
			Pipeline: models.PipelineShape{Vectorizer: models.VectorizerTfidf, Classifier: models.ClassifierLogisticRegression},
			SearchSpace: models.SearchSpace{
				{Name: "C", Values: Logspace(-4, 5, 20)},
				{Name: "penalty", Values: []any{"l1", "l2"}},
			},
		},
		{
			ID:       "neural_network",
			Name:     "MLPClassifier",
			Pipeline: models.PipelineShape{Vectorizer: models.VectorizerTfidf, Classifier: models.ClassifierNeuralNetwork},
			SearchSpace: models.SearchSpace{
				{Name: "hidden_units", Values: []any{16.0, 64.0}},
				{Name: "learning_rate", Values: []any{0.01, 0.1}},
			},
		},
	}
}
