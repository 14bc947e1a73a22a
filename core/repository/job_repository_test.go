package repository

import (
	"path/filepath"
	"testing"

	"mlstudio/core/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "mlstudio_test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedProject(t *testing.T, db *DB) *models.Project {
	t.Helper()
	p := &models.Project{Name: "iris"}
	require.NoError(t, NewProjectRepository(db).CreateProject(p))
	return p
}

func TestJobLifecycleRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)
	project := seedProject(t, db)

	job := &models.Job{
		ProjectID: project.ID,
		Config:    map[string]interface{}{"epochs": float64(3), "stepsPerEpoch": float64(10)},
	}
	require.NoError(t, repo.CreateQueuedJob(job))
	require.NotEmpty(t, job.ID)

	got, err := repo.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusQueued, got.Status)
	assert.Equal(t, models.JobTypeTraining, got.Type)
	assert.Equal(t, 0, got.Progress)
	assert.Empty(t, got.Metrics)
	assert.Equal(t, float64(3), got.Config["epochs"])
	assert.Nil(t, got.StartedAt)

	require.NoError(t, repo.SetRunning(job.ID))
	got, err = repo.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)

	metrics := []models.MetricSample{
		{Step: 1, Loss: 1.45, Accuracy: 0.52, ElapsedMs: 500},
		{Step: 2, Loss: 1.31, Accuracy: 0.55, ElapsedMs: 1000},
	}
	require.NoError(t, repo.UpdateProgress(job.ID, 6, metrics))
	got, err = repo.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Progress)
	require.Len(t, got.Metrics, 2)
	assert.Equal(t, metrics, got.Metrics)

	require.NoError(t, repo.SetTerminal(job.ID, models.JobStatusCompleted, 100, metrics, ""))
	got, err = repo.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)
	assert.Empty(t, got.Error)
}

func TestSetTerminalFailedStoresError(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)
	project := seedProject(t, db)

	job := &models.Job{ProjectID: project.ID}
	require.NoError(t, repo.CreateQueuedJob(job))
	require.NoError(t, repo.SetRunning(job.ID))
	require.NoError(t, repo.SetTerminal(job.ID, models.JobStatusFailed, 40, nil, "disk full"))

	got, err := repo.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, got.Status)
	assert.Equal(t, 40, got.Progress)
	assert.Equal(t, "disk full", got.Error)
}

func TestGetJobNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)

	_, err := repo.GetJob("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.SetRunning("missing"), ErrNotFound)
	assert.ErrorIs(t, repo.UpdateProgress("missing", 10, nil), ErrNotFound)
}

func TestListJobsByProject(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)
	project := seedProject(t, db)
	other := seedProject(t, db)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateQueuedJob(&models.Job{ProjectID: project.ID}))
	}
	require.NoError(t, repo.CreateQueuedJob(&models.Job{ProjectID: other.ID}))

	jobs, err := repo.ListJobsByProject(project.ID)
	require.NoError(t, err)
	assert.Len(t, jobs, 3)
	for _, job := range jobs {
		assert.Equal(t, project.ID, job.ProjectID)
	}
}

func TestFailStale(t *testing.T) {
	db := newTestDB(t)
	repo := NewJobRepository(db)
	project := seedProject(t, db)

	queued := &models.Job{ProjectID: project.ID}
	require.NoError(t, repo.CreateQueuedJob(queued))

	running := &models.Job{ProjectID: project.ID}
	require.NoError(t, repo.CreateQueuedJob(running))
	require.NoError(t, repo.SetRunning(running.ID))

	done := &models.Job{ProjectID: project.ID}
	require.NoError(t, repo.CreateQueuedJob(done))
	require.NoError(t, repo.SetTerminal(done.ID, models.JobStatusCompleted, 100, nil, ""))

	n, err := repo.FailStale("server restarted")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	for _, id := range []string{queued.ID, running.ID} {
		got, err := repo.GetJob(id)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, got.Status)
		assert.Equal(t, "server restarted", got.Error)
	}

	got, err := repo.GetJob(done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, got.Status)
	assert.Empty(t, got.Error)
}
