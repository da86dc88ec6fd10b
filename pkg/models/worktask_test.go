package models

import (
	"testing"
	"time"
)

// TestWorkTaskCreation tests basic training task creation
func TestWorkTaskCreation(t *testing.T) {
	task := &WorkTask{
		ID:          "test-123",
		Type:        WorkTaskTypeMLTraining,
		Status:      WorkTaskStatusQueued,
		Priority:    1,
		SubmittedAt: time.Now(),
		Spec: TrainingSpec{
			DatasetPath: "data/comments_clean.csv",
			OutputDir:   "models",
			ModelIDs:    []string{"naive_bayes"},
			Seed:        32451365,
		},
	}

	if task.Type != WorkTaskTypeMLTraining {
		t.Errorf("Expected type %s, got %s", WorkTaskTypeMLTraining, task.Type)
	}

	if err := task.Spec.Validate(); err != nil {
		t.Errorf("Expected valid spec, got %v", err)
	}
}

// TestTrainingSpecValidate tests that incomplete specs are rejected
func TestTrainingSpecValidate(t *testing.T) {
	tests := []struct {
		name string
		spec TrainingSpec
	}{
		{"missing dataset", TrainingSpec{OutputDir: "out", ModelIDs: []string{"svm"}}},
		{"missing output", TrainingSpec{DatasetPath: "d.csv", ModelIDs: []string{"svm"}}},
		{"no models", TrainingSpec{DatasetPath: "d.csv", OutputDir: "out"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.spec.Validate(); err == nil {
				t.Errorf("Expected validation error for %s", tt.name)
			}
		})
	}
}

// TestWorkTaskStatusTerminal tests terminal status detection
func TestWorkTaskStatusTerminal(t *testing.T) {
	terminal := map[WorkTaskStatus]bool{
		WorkTaskStatusQueued:    false,
		WorkTaskStatusSpawned:   false,
		WorkTaskStatusExecuting: false,
		WorkTaskStatusCompleted: true,
		WorkTaskStatusFailed:    true,
		WorkTaskStatusCancelled: true,
	}

	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", status, got, want)
		}
	}
}
