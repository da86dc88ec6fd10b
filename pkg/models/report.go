package models

import (
	"encoding/json"
	"fmt"
)

// Reserved keys of the report layout; per-label entries use the label itself.
const (
	ReportKeyAccuracy    = "accuracy"
	ReportKeyMacroAvg    = "macro avg"
	ReportKeyWeightedAvg = "weighted avg"
)

// LabelMetrics holds precision/recall/F1 for one label or an average
type LabelMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1-score"`
	Support   int     `json:"support"`
}

// EvaluationReport is the held-out evaluation of one fitted model.
//
// It serialises to the classification_report dictionary layout: one object per
// label plus "accuracy", "macro avg" and "weighted avg", followed by the
// bookkeeping fields below.
type EvaluationReport struct {
	ModelID         string
	Labels          []string
	PerLabel        map[string]LabelMetrics
	Accuracy        float64
	MacroAvg        LabelMetrics
	WeightedAvg     LabelMetrics
	ConfusionMatrix [][]int
	CVScore         float64
	BestParams      Params
}

type reportMeta struct {
	ModelID         string   `json:"model_id"`
	Labels          []string `json:"labels"`
	ConfusionMatrix [][]int  `json:"confusion_matrix"`
	CVScore         float64  `json:"cv_score"`
	BestParams      Params   `json:"best_params,omitempty"`
}

var reportMetaKeys = []string{"model_id", "labels", "confusion_matrix", "cv_score", "best_params"}

// MarshalJSON implements json.Marshaler
func (r *EvaluationReport) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.PerLabel)+8)
	for _, label := range r.Labels {
		out[label] = r.PerLabel[label]
	}
	out[ReportKeyAccuracy] = r.Accuracy
	out[ReportKeyMacroAvg] = r.MacroAvg
	out[ReportKeyWeightedAvg] = r.WeightedAvg

	out["model_id"] = r.ModelID
	out["labels"] = r.Labels
	out["confusion_matrix"] = r.ConfusionMatrix
	out["cv_score"] = r.CVScore
	if len(r.BestParams) > 0 {
		out["best_params"] = r.BestParams
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler
func (r *EvaluationReport) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var meta reportMeta
	metaFields := make(map[string]json.RawMessage, len(reportMetaKeys))
	for _, k := range reportMetaKeys {
		if v, ok := raw[k]; ok {
			metaFields[k] = v
		}
	}
	metaJSON, err := json.Marshal(metaFields)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return fmt.Errorf("report metadata: %w", err)
	}

	report := EvaluationReport{
		ModelID:         meta.ModelID,
		Labels:          meta.Labels,
		ConfusionMatrix: meta.ConfusionMatrix,
		CVScore:         meta.CVScore,
		BestParams:      meta.BestParams,
		PerLabel:        make(map[string]LabelMetrics, len(meta.Labels)),
	}

	if v, ok := raw[ReportKeyAccuracy]; ok {
		if err := json.Unmarshal(v, &report.Accuracy); err != nil {
			return fmt.Errorf("report accuracy: %w", err)
		}
	}
	for key, dst := range map[string]*LabelMetrics{
		ReportKeyMacroAvg:    &report.MacroAvg,
		ReportKeyWeightedAvg: &report.WeightedAvg,
	} {
		if v, ok := raw[key]; ok {
			if err := json.Unmarshal(v, dst); err != nil {
				return fmt.Errorf("report %s: %w", key, err)
			}
		}
	}
	for _, label := range meta.Labels {
		v, ok := raw[label]
		if !ok {
			return fmt.Errorf("report is missing label %q", label)
		}
		var m LabelMetrics
		if err := json.Unmarshal(v, &m); err != nil {
			return fmt.Errorf("report label %q: %w", label, err)
		}
		report.PerLabel[label] = m
	}

	*r = report
	return nil
}
