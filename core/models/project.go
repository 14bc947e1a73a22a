package models

import "time"

// Project groups datasets, model configs and training jobs
type Project struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Dataset represents an uploaded data file belonging to a project
type Dataset struct {
	ID          string
	ProjectID   string
	Name        string
	Filename    string
	SizeBytes   int64
	ContentType string
	CreatedAt   time.Time
}

// ModelConfig is a named set of training hyperparameters for a project
type ModelConfig struct {
	ID          string
	ProjectID   string
	Name        string
	Hyperparams map[string]interface{}
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
