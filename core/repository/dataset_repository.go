package repository

import (
	"database/sql"
	"time"

	"mlstudio/core/models"
)

// DatasetRepository handles database operations for datasets
type DatasetRepository struct {
	db *DB
}

// NewDatasetRepository creates a new dataset repository
func NewDatasetRepository(db *DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// CreateDataset inserts a dataset row. The caller assigns the id, as
// it also names the stored file.
func (r *DatasetRepository) CreateDataset(d *models.Dataset) error {
	d.CreatedAt = time.Now()
	query := `
		INSERT INTO datasets (id, project_id, name, filename, size_bytes, content_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, d.ID, d.ProjectID, d.Name, d.Filename, d.SizeBytes, d.ContentType, d.CreatedAt)
	return err
}

// GetDataset retrieves a dataset by ID
func (r *DatasetRepository) GetDataset(id string) (*models.Dataset, error) {
	query := `
		SELECT id, project_id, name, filename, size_bytes, content_type, created_at
		FROM datasets
		WHERE id = ?
	`
	var d models.Dataset
	err := r.db.QueryRow(query, id).Scan(&d.ID, &d.ProjectID, &d.Name, &d.Filename, &d.SizeBytes, &d.ContentType, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDatasetsByProject lists a project's datasets, newest first.
func (r *DatasetRepository) ListDatasetsByProject(projectID string) ([]*models.Dataset, error) {
	query := `
		SELECT id, project_id, name, filename, size_bytes, content_type, created_at
		FROM datasets
		WHERE project_id = ?
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var datasets []*models.Dataset
	for rows.Next() {
		var d models.Dataset
		if err := rows.Scan(&d.ID, &d.ProjectID, &d.Name, &d.Filename, &d.SizeBytes, &d.ContentType, &d.CreatedAt); err != nil {
			return nil, err
		}
		datasets = append(datasets, &d)
	}
	return datasets, rows.Err()
}

// DeleteDataset removes a dataset row.
func (r *DatasetRepository) DeleteDataset(id string) error {
	res, err := r.db.Exec(`DELETE FROM datasets WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return checkFound(res)
}
