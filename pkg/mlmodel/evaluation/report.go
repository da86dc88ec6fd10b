// Package evaluation scores a fitted model on held-out data.
package evaluation

import (
	"fmt"

	"github.com/sjwhitworth/golearn/evaluation"

	"github.com/mimir-aip/sentiment-go/pkg/models"
)

// ConfusionMatrix counts predictions: out[i][j] is the number of rows of label
// i predicted as label j
func ConfusionMatrix(numLabels int, yTrue, yPred []int) [][]int {
	out := make([][]int, numLabels)
	for i := range out {
		out[i] = make([]int, numLabels)
	}
	for k := range yTrue {
		out[yTrue[k]][yPred[k]]++
	}
	return out
}

// toGolearn converts an index matrix into golearn's label-keyed form. Every
// label gets a row so per-class false positives see all of them.
func toGolearn(labels []string, cm [][]int) evaluation.ConfusionMatrix {
	out := make(evaluation.ConfusionMatrix, len(labels))
	for i, actual := range labels {
		row := make(map[string]int, len(labels))
		for j, predicted := range labels {
			row[predicted] = cm[i][j]
		}
		out[actual] = row
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Report builds the classification report of yPred against yTrue. Undefined
// ratios (zero denominators) are reported as 0.
func Report(modelID string, labels []string, yTrue, yPred []int) (*models.EvaluationReport, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("got %d true labels and %d predictions", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("no rows to evaluate")
	}
	for k := range yTrue {
		if yTrue[k] < 0 || yTrue[k] >= len(labels) || yPred[k] < 0 || yPred[k] >= len(labels) {
			return nil, fmt.Errorf("row %d: label index out of range [0, %d)", k, len(labels))
		}
	}

	cm := ConfusionMatrix(len(labels), yTrue, yPred)
	gcm := toGolearn(labels, cm)

	report := &models.EvaluationReport{
		ModelID:         modelID,
		Labels:          append([]string(nil), labels...),
		PerLabel:        make(map[string]models.LabelMetrics, len(labels)),
		ConfusionMatrix: cm,
	}

	total := float64(len(yTrue))
	correct := 0.0
	for i, label := range labels {
		tp := evaluation.GetTruePositives(label, gcm)
		fp := evaluation.GetFalsePositives(label, gcm)
		fn := evaluation.GetFalseNegatives(label, gcm)

		precision := ratio(tp, tp+fp)
		recall := ratio(tp, tp+fn)
		support := 0
		for _, n := range cm[i] {
			support += n
		}
		m := models.LabelMetrics{
			Precision: precision,
			Recall:    recall,
			F1Score:   ratio(2*precision*recall, precision+recall),
			Support:   support,
		}
		report.PerLabel[label] = m
		correct += tp

		w := float64(support) / total
		report.MacroAvg.Precision += m.Precision / float64(len(labels))
		report.MacroAvg.Recall += m.Recall / float64(len(labels))
		report.MacroAvg.F1Score += m.F1Score / float64(len(labels))
		report.WeightedAvg.Precision += m.Precision * w
		report.WeightedAvg.Recall += m.Recall * w
		report.WeightedAvg.F1Score += m.F1Score * w
	}
	report.MacroAvg.Support = len(yTrue)
	report.WeightedAvg.Support = len(yTrue)
	report.Accuracy = correct / total

	return report, nil
}

// Summary renders the golearn text summary of a report's confusion matrix
func Summary(report *models.EvaluationReport) string {
	return evaluation.GetSummary(toGolearn(report.Labels, report.ConfusionMatrix))
}
