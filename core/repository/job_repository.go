package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mlstudio/core/models"

	"github.com/google/uuid"
)

// JobRepository handles database operations for jobs
type JobRepository struct {
	db *DB
}

// NewJobRepository creates a new job repository
func NewJobRepository(db *DB) *JobRepository {
	return &JobRepository{db: db}
}

// CreateQueuedJob inserts a new job in the queued state and assigns
// its id. The config map is stored verbatim as JSON.
func (r *JobRepository) CreateQueuedJob(job *models.Job) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Type == "" {
		job.Type = models.JobTypeTraining
	}
	job.Status = models.JobStatusQueued
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	configJSON, err := json.Marshal(configOrEmpty(job.Config))
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	query := `
		INSERT INTO jobs (
			id, project_id, model_id, job_type, status, progress,
			metrics, config, error, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		job.ID,
		job.ProjectID,
		job.ModelID,
		job.Type,
		job.Status,
		0,
		"[]",
		string(configJSON),
		"",
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// SetRunning transitions a job to running and records its start time.
func (r *JobRepository) SetRunning(jobID string) error {
	query := `UPDATE jobs SET status = ?, started_at = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.Exec(query, models.JobStatusRunning, time.Now(), time.Now(), jobID)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// UpdateProgress persists the current progress and the full metrics
// buffer for a running job. Metrics are append-only: the stored array
// is always replaced by a superset of the previous one.
func (r *JobRepository) UpdateProgress(jobID string, progress int, metrics []models.MetricSample) error {
	metricsJSON, err := json.Marshal(metricsOrEmpty(metrics))
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	query := `UPDATE jobs SET progress = ?, metrics = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.Exec(query, progress, string(metricsJSON), time.Now(), jobID)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// SetTerminal moves a job into a terminal state with its final
// progress and metrics. errMsg is only meaningful for failed jobs.
func (r *JobRepository) SetTerminal(jobID string, status models.JobStatus, progress int, metrics []models.MetricSample, errMsg string) error {
	metricsJSON, err := json.Marshal(metricsOrEmpty(metrics))
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	query := `
		UPDATE jobs
		SET status = ?, progress = ?, metrics = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.Exec(query, status, progress, string(metricsJSON), errMsg, time.Now(), time.Now(), jobID)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// GetJob retrieves a job by ID
func (r *JobRepository) GetJob(id string) (*models.Job, error) {
	query := `
		SELECT id, project_id, model_id, job_type, status, progress,
			metrics, config, error, created_at, started_at, completed_at, updated_at
		FROM jobs
		WHERE id = ?
	`
	return r.scanJob(r.db.QueryRow(query, id))
}

// ListJobsByProject lists a project's jobs, newest first.
func (r *JobRepository) ListJobsByProject(projectID string) ([]*models.Job, error) {
	query := `
		SELECT id, project_id, model_id, job_type, status, progress,
			metrics, config, error, created_at, started_at, completed_at, updated_at
		FROM jobs
		WHERE project_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		job, err := r.scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// FailStale marks jobs left queued or running by a previous process as
// failed. Their simulations died with that process and can never
// progress again.
func (r *JobRepository) FailStale(reason string) (int64, error) {
	query := `
		UPDATE jobs
		SET status = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE status IN (?, ?)
	`
	res, err := r.db.Exec(query,
		models.JobStatusFailed, reason, time.Now(), time.Now(),
		models.JobStatusQueued, models.JobStatusRunning,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *JobRepository) scanJob(row rowScanner) (*models.Job, error) {
	var job models.Job
	var modelID sql.NullString
	var metricsJSON, configJSON string
	var startedAt, completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.ProjectID,
		&modelID,
		&job.Type,
		&job.Status,
		&job.Progress,
		&metricsJSON,
		&configJSON,
		&job.Error,
		&job.CreatedAt,
		&startedAt,
		&completedAt,
		&job.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if modelID.Valid {
		job.ModelID = &modelID.String
	}
	if startedAt.Valid {
		job.StartedAt = &startedAt.Time
	}
	if completedAt.Valid {
		job.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(metricsJSON), &job.Metrics); err != nil {
		return nil, fmt.Errorf("unmarshal metrics: %w", err)
	}
	if err := json.Unmarshal([]byte(configJSON), &job.Config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &job, nil
}

func checkFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func configOrEmpty(config map[string]interface{}) map[string]interface{} {
	if config == nil {
		return map[string]interface{}{}
	}
	return config
}

func metricsOrEmpty(metrics []models.MetricSample) []models.MetricSample {
	if metrics == nil {
		return []models.MetricSample{}
	}
	return metrics
}
