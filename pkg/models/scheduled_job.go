package models

import "time"

// RetrainSchedule represents a recurring training run (cron-based)
type RetrainSchedule struct {
	ID        string       `json:"id" yaml:"-"`
	Name      string       `json:"name" yaml:"name"`
	Schedule  string       `json:"schedule" yaml:"schedule"` // Cron expression
	Spec      TrainingSpec `json:"spec" yaml:"spec"`
	Priority  int          `json:"priority" yaml:"priority"`
	Enabled   bool         `json:"enabled" yaml:"enabled"`
	CreatedAt time.Time    `json:"created_at" yaml:"-"`
	LastRun   *time.Time   `json:"last_run,omitempty" yaml:"-"`
	NextRun   *time.Time   `json:"next_run,omitempty" yaml:"-"`
	LastTask  string       `json:"last_task,omitempty" yaml:"-"`
}

// RetrainScheduleCreateRequest represents a request to create a new retrain schedule
type RetrainScheduleCreateRequest struct {
	Name     string       `json:"name" yaml:"name"`
	Schedule string       `json:"schedule" yaml:"schedule"`
	Spec     TrainingSpec `json:"spec" yaml:"spec"`
	Priority int          `json:"priority" yaml:"priority"`
	Enabled  bool         `json:"enabled" yaml:"enabled"`
}
