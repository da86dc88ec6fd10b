package models

import "time"

// RunStatus represents the lifecycle state of a training run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusPartial   RunStatus = "partial" // at least one model failed
	RunStatusFailed    RunStatus = "failed"
)

// OutcomeStatus is the result of training a single model family
type OutcomeStatus string

const (
	OutcomeSucceeded OutcomeStatus = "succeeded"
	OutcomeFailed    OutcomeStatus = "failed"
)

// Stage names the step of a per-model run where a failure happened
type Stage string

const (
	StageResolve  Stage = "resolve"
	StageSelect   Stage = "select"
	StagePersist  Stage = "persist"
	StageEvaluate Stage = "evaluate"
	StageReport   Stage = "report"
	StagePlot     Stage = "plot"
)

// ModelOutcome summarises one model family within a training run
type ModelOutcome struct {
	Status     OutcomeStatus `json:"status"`
	Stage      Stage         `json:"stage,omitempty"`
	Error      string        `json:"error,omitempty"`
	Accuracy   float64       `json:"accuracy,omitempty"`
	CVScore    float64       `json:"cv_score,omitempty"`
	ModelPath  string        `json:"model_path,omitempty"`
	ReportPath string        `json:"report_path,omitempty"`
	ImagePath  string        `json:"image_path,omitempty"`
}

// TrainingRun is the registry record of one orchestrator invocation
type TrainingRun struct {
	ID          string                  `json:"id"`
	DatasetPath string                  `json:"dataset_path"`
	OutputDir   string                  `json:"output_dir"`
	ModelIDs    []string                `json:"model_ids"`
	Seed        int64                   `json:"seed"`
	Status      RunStatus               `json:"status"`
	Error       string                  `json:"error,omitempty"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
	Results     map[string]ModelOutcome `json:"results"`
}

// Finish sets the completion time and derives the final status from the outcomes
func (r *TrainingRun) Finish(at time.Time) {
	r.CompletedAt = &at
	if r.Error != "" {
		r.Status = RunStatusFailed
		return
	}

	failed := 0
	for _, o := range r.Results {
		if o.Status == OutcomeFailed {
			failed++
		}
	}
	switch {
	case failed == 0:
		r.Status = RunStatusCompleted
	case failed == len(r.Results):
		r.Status = RunStatusFailed
	default:
		r.Status = RunStatusPartial
	}
}
