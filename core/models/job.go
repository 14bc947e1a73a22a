package models

import "time"

// Job represents a simulated training run launched for a project
type Job struct {
	ID          string
	ProjectID   string
	ModelID     *string
	Type        JobType
	Status      JobStatus
	Progress    int
	Metrics     []MetricSample
	Config      map[string]interface{}
	Error       string
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// JobType represents the type of job
type JobType string

const (
	JobTypeTraining JobType = "training"
)

// JobStatus represents the current status of a job
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCanceled  JobStatus = "canceled"
)

// Terminal reports whether s permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCanceled
}

// MetricSample is one simulated training step measurement. Samples are
// appended in strictly increasing step order and never discarded.
type MetricSample struct {
	Step      int     `json:"step"`
	Loss      float64 `json:"loss"`
	Accuracy  float64 `json:"accuracy"`
	ElapsedMs int64   `json:"elapsedMs"`
}
