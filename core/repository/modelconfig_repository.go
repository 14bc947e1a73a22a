package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"mlstudio/core/models"

	"github.com/google/uuid"
)

// ModelConfigRepository handles database operations for model configs
type ModelConfigRepository struct {
	db *DB
}

// NewModelConfigRepository creates a new model config repository
func NewModelConfigRepository(db *DB) *ModelConfigRepository {
	return &ModelConfigRepository{db: db}
}

// CreateModelConfig inserts a new model config and assigns its id.
func (r *ModelConfigRepository) CreateModelConfig(m *models.ModelConfig) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	m.CreatedAt = time.Now()
	m.UpdatedAt = m.CreatedAt

	paramsJSON, err := json.Marshal(configOrEmpty(m.Hyperparams))
	if err != nil {
		return fmt.Errorf("marshal hyperparams: %w", err)
	}

	query := `
		INSERT INTO model_configs (id, project_id, name, hyperparams, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query, m.ID, m.ProjectID, m.Name, string(paramsJSON), m.CreatedAt, m.UpdatedAt)
	return err
}

// GetModelConfig retrieves a model config by ID
func (r *ModelConfigRepository) GetModelConfig(id string) (*models.ModelConfig, error) {
	query := `
		SELECT id, project_id, name, hyperparams, created_at, updated_at
		FROM model_configs
		WHERE id = ?
	`
	return r.scanModelConfig(r.db.QueryRow(query, id))
}

// ListModelConfigsByProject lists a project's model configs, newest first.
func (r *ModelConfigRepository) ListModelConfigsByProject(projectID string) ([]*models.ModelConfig, error) {
	query := `
		SELECT id, project_id, name, hyperparams, created_at, updated_at
		FROM model_configs
		WHERE project_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*models.ModelConfig
	for rows.Next() {
		m, err := r.scanModelConfig(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, m)
	}
	return configs, rows.Err()
}

// UpdateModelConfig replaces a config's name and hyperparameters.
func (r *ModelConfigRepository) UpdateModelConfig(m *models.ModelConfig) error {
	paramsJSON, err := json.Marshal(configOrEmpty(m.Hyperparams))
	if err != nil {
		return fmt.Errorf("marshal hyperparams: %w", err)
	}
	query := `UPDATE model_configs SET name = ?, hyperparams = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.Exec(query, m.Name, string(paramsJSON), time.Now(), m.ID)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// DeleteModelConfig removes a model config row.
func (r *ModelConfigRepository) DeleteModelConfig(id string) error {
	res, err := r.db.Exec(`DELETE FROM model_configs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkFound(res)
}

func (r *ModelConfigRepository) scanModelConfig(row rowScanner) (*models.ModelConfig, error) {
	var m models.ModelConfig
	var paramsJSON string
	err := row.Scan(&m.ID, &m.ProjectID, &m.Name, &paramsJSON, &m.CreatedAt, &m.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(paramsJSON), &m.Hyperparams); err != nil {
		return nil, fmt.Errorf("unmarshal hyperparams: %w", err)
	}
	return &m, nil
}
