package repository

import (
	"testing"

	"mlstudio/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectCRUD(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectRepository(db)

	p := &models.Project{Name: "mnist", Description: "digit classification"}
	require.NoError(t, repo.CreateProject(p))
	require.NotEmpty(t, p.ID)

	got, err := repo.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "mnist", got.Name)
	assert.Equal(t, "digit classification", got.Description)

	got.Name = "mnist-v2"
	require.NoError(t, repo.UpdateProject(got))
	got, err = repo.GetProject(p.ID)
	require.NoError(t, err)
	assert.Equal(t, "mnist-v2", got.Name)

	all, err := repo.ListProjects()
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteProject(p.ID))
	_, err = repo.GetProject(p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProjectNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewProjectRepository(db)

	_, err := repo.GetProject("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteProject("missing"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProject(&models.Project{ID: "missing", Name: "x"}), ErrNotFound)
}

func TestDeleteProjectCascades(t *testing.T) {
	db := newTestDB(t)
	projectRepo := NewProjectRepository(db)
	datasetRepo := NewDatasetRepository(db)
	modelRepo := NewModelConfigRepository(db)
	jobRepo := NewJobRepository(db)

	p := seedProject(t, db)
	require.NoError(t, datasetRepo.CreateDataset(&models.Dataset{ID: "ds-1", ProjectID: p.ID, Name: "train", Filename: "train.csv"}))
	require.NoError(t, modelRepo.CreateModelConfig(&models.ModelConfig{ProjectID: p.ID, Name: "baseline"}))
	require.NoError(t, jobRepo.CreateQueuedJob(&models.Job{ProjectID: p.ID}))

	require.NoError(t, projectRepo.DeleteProject(p.ID))

	datasets, err := datasetRepo.ListDatasetsByProject(p.ID)
	require.NoError(t, err)
	assert.Empty(t, datasets)

	configs, err := modelRepo.ListModelConfigsByProject(p.ID)
	require.NoError(t, err)
	assert.Empty(t, configs)

	jobs, err := jobRepo.ListJobsByProject(p.ID)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}
