package repository

import (
	"database/sql"
	"time"

	"mlstudio/core/models"

	"github.com/google/uuid"
)

// ProjectRepository handles database operations for projects
type ProjectRepository struct {
	db *DB
}

// NewProjectRepository creates a new project repository
func NewProjectRepository(db *DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// CreateProject inserts a new project and assigns its id.
func (r *ProjectRepository) CreateProject(p *models.Project) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	query := `
		INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query, p.ID, p.Name, p.Description, p.CreatedAt, p.UpdatedAt)
	return err
}

// GetProject retrieves a project by ID
func (r *ProjectRepository) GetProject(id string) (*models.Project, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		WHERE id = ?
	`
	var p models.Project
	err := r.db.QueryRow(query, id).Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects lists all projects, newest first.
func (r *ProjectRepository) ListProjects() ([]*models.Project, error) {
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []*models.Project
	for rows.Next() {
		var p models.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, &p)
	}
	return projects, rows.Err()
}

// UpdateProject updates a project's name and description.
func (r *ProjectRepository) UpdateProject(p *models.Project) error {
	query := `UPDATE projects SET name = ?, description = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.Exec(query, p.Name, p.Description, time.Now(), p.ID)
	if err != nil {
		return err
	}
	return checkFound(res)
}

// DeleteProject deletes a project together with its datasets, model
// configs and job records.
func (r *ProjectRepository) DeleteProject(id string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, query := range []string{
		`DELETE FROM datasets WHERE project_id = ?`,
		`DELETE FROM model_configs WHERE project_id = ?`,
		`DELETE FROM jobs WHERE project_id = ?`,
	} {
		if _, err := tx.Exec(r.db.rebind(query), id); err != nil {
			return err
		}
	}

	res, err := tx.Exec(r.db.rebind(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
