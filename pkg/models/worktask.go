package models

import (
	"fmt"
	"time"
)

// WorkTaskType represents the type of work task to be executed by the dispatcher
type WorkTaskType string

const (
	WorkTaskTypeMLTraining WorkTaskType = "ml_training"
)

// WorkTaskStatus represents the current status of a work task
type WorkTaskStatus string

const (
	WorkTaskStatusQueued    WorkTaskStatus = "queued"
	WorkTaskStatusSpawned   WorkTaskStatus = "spawned"
	WorkTaskStatusExecuting WorkTaskStatus = "executing"
	WorkTaskStatusCompleted WorkTaskStatus = "completed"
	WorkTaskStatusFailed    WorkTaskStatus = "failed"
	WorkTaskStatusCancelled WorkTaskStatus = "cancelled"
)

// Terminal reports whether no further transitions are expected
func (s WorkTaskStatus) Terminal() bool {
	switch s {
	case WorkTaskStatusCompleted, WorkTaskStatusFailed, WorkTaskStatusCancelled:
		return true
	}
	return false
}

// TrainingSpec contains the parameters of a training work task
type TrainingSpec struct {
	DatasetPath string   `json:"dataset_path" yaml:"dataset_path"`
	OutputDir   string   `json:"output_dir" yaml:"output_dir"`
	ModelIDs    []string `json:"model_ids" yaml:"model_ids"`
	Seed        int64    `json:"seed" yaml:"seed"`
}

// Validate checks that the spec names a dataset, an output dir and at least one model
func (s TrainingSpec) Validate() error {
	switch {
	case s.DatasetPath == "":
		return fmt.Errorf("dataset_path is required")
	case s.OutputDir == "":
		return fmt.Errorf("output_dir is required")
	case len(s.ModelIDs) == 0:
		return fmt.Errorf("model_ids must not be empty")
	}
	return nil
}

// WorkTask represents a queued training request
type WorkTask struct {
	ID                string         `json:"worktask_id"`
	Type              WorkTaskType   `json:"type"`
	Status            WorkTaskStatus `json:"status"`
	Priority          int            `json:"priority"`
	SubmittedAt       time.Time      `json:"submitted_at"`
	StartedAt         *time.Time     `json:"started_at,omitempty"`
	CompletedAt       *time.Time     `json:"completed_at,omitempty"`
	Spec              TrainingSpec   `json:"spec"`
	Source            string         `json:"source,omitempty"` // api, schedule:<name>, cli
	ErrorMessage      string         `json:"error_message,omitempty"`
	KubernetesJobName string         `json:"kubernetes_job_name,omitempty"`
	RunID             string         `json:"run_id,omitempty"`
}

// WorkTaskSubmissionRequest represents a request to submit a new training task
type WorkTaskSubmissionRequest struct {
	Priority    int      `json:"priority"`
	DatasetPath string   `json:"dataset_path"`
	OutputDir   string   `json:"output_dir"`
	ModelIDs    []string `json:"model_ids"`
	Seed        *int64   `json:"seed,omitempty"`
}
