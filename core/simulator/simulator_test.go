package simulator

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"mlstudio/core/models"
	"mlstudio/core/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubStore is an in-memory JobStore with write history and failure
// injection for a single test job.
type stubStore struct {
	mu      sync.Mutex
	jobs    map[string]*models.Job
	writes  int
	history []writeRecord

	// failAtStep makes UpdateProgress fail when the flushed buffer's
	// last step equals this value. 0 disables injection.
	failAtStep int
}

type writeRecord struct {
	progress   int
	metricsLen int
}

func newStubStore() *stubStore {
	return &stubStore{jobs: make(map[string]*models.Job)}
}

func (s *stubStore) seed(jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[jobID] = &models.Job{ID: jobID, Status: models.JobStatusQueued}
}

func (s *stubStore) SetRunning(jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	s.writes++
	job.Status = models.JobStatusRunning
	return nil
}

func (s *stubStore) UpdateProgress(jobID string, progress int, metrics []models.MetricSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	if s.failAtStep > 0 && len(metrics) > 0 && metrics[len(metrics)-1].Step == s.failAtStep {
		return fmt.Errorf("disk full")
	}
	s.writes++
	job.Progress = progress
	job.Metrics = append([]models.MetricSample(nil), metrics...)
	s.history = append(s.history, writeRecord{progress: progress, metricsLen: len(metrics)})
	return nil
}

func (s *stubStore) SetTerminal(jobID string, status models.JobStatus, progress int, metrics []models.MetricSample, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	s.writes++
	job.Status = status
	job.Progress = progress
	job.Metrics = append([]models.MetricSample(nil), metrics...)
	job.Error = errMsg
	s.history = append(s.history, writeRecord{progress: progress, metricsLen: len(metrics)})
	return nil
}

func (s *stubStore) GetJob(jobID string) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	dup := *job
	dup.Metrics = append([]models.MetricSample(nil), job.Metrics...)
	return &dup, nil
}

func (s *stubStore) writeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func (s *stubStore) snapshotHistory() []writeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]writeRecord(nil), s.history...)
}

func fastSimulator(store *stubStore) (*Simulator, *Registry) {
	registry := NewRegistry()
	return New(store, registry, WithTickInterval(time.Millisecond)), registry
}

func waitTerminal(t *testing.T, store *stubStore, jobID string) *models.Job {
	t.Helper()
	require.Eventually(t, func() bool {
		job, err := store.GetJob(jobID)
		return err == nil && job.Status.Terminal()
	}, 5*time.Second, 5*time.Millisecond)
	job, err := store.GetJob(jobID)
	require.NoError(t, err)
	return job
}

func TestRunToCompletion(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	sim, registry := fastSimulator(store)

	// Default config: 5 epochs x 20 steps.
	sim.Start("job-1", nil)

	job := waitTerminal(t, store, "job-1")
	require.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 100, job.Progress)
	require.Len(t, job.Metrics, 100)

	for i, sample := range job.Metrics {
		require.Equal(t, i+1, sample.Step, "steps must be contiguous and 1-based")
		assert.GreaterOrEqual(t, sample.Loss, 0.0)
	}
	assert.Less(t, job.Metrics[99].Loss, job.Metrics[0].Loss)
	assert.Equal(t, 0, registry.Running())
}

func TestPersistedHistoryIsMonotonic(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	sim, _ := fastSimulator(store)

	sim.Start("job-1", map[string]interface{}{"epochs": 2, "stepsPerEpoch": 15})
	waitTerminal(t, store, "job-1")

	history := store.snapshotHistory()
	require.NotEmpty(t, history)
	for i := 1; i < len(history); i++ {
		assert.GreaterOrEqual(t, history[i].progress, history[i-1].progress)
		assert.GreaterOrEqual(t, history[i].metricsLen, history[i-1].metricsLen,
			"stored metrics must never shrink")
	}
	assert.Equal(t, 100, history[len(history)-1].progress)
}

func TestCancelBeforeFirstTick(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	registry := NewRegistry()
	sim := New(store, registry, WithTickInterval(time.Hour))

	// epochs*stepsPerEpoch below the floor still yields 20 steps.
	sim.Start("job-1", map[string]interface{}{"epochs": 1, "stepsPerEpoch": 1})

	running, err := store.GetJob("job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusRunning, running.Status)
	require.Equal(t, 1, registry.Running())

	job, err := sim.Cancel("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCanceled, job.Status)
	assert.Equal(t, 0, job.Progress)
	assert.Empty(t, job.Metrics)
	assert.Equal(t, 0, registry.Running())
}

func TestCancelIsIdempotent(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	registry := NewRegistry()
	sim := New(store, registry, WithTickInterval(time.Hour))

	sim.Start("job-1", nil)

	first, err := sim.Cancel("job-1")
	require.NoError(t, err)
	writesAfterFirst := store.writeCount()

	second, err := sim.Cancel("job-1")
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.Equal(t, first.Progress, second.Progress)
	assert.Equal(t, len(first.Metrics), len(second.Metrics))
	assert.Equal(t, writesAfterFirst, store.writeCount(), "second cancel must not write")
}

func TestCancelAfterCompletionIsNoOp(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	sim, _ := fastSimulator(store)

	sim.Start("job-1", nil)
	completed := waitTerminal(t, store, "job-1")
	require.Equal(t, models.JobStatusCompleted, completed.Status)

	job, err := sim.Cancel("job-1")
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Len(t, job.Metrics, len(completed.Metrics))
}

func TestCancelUnknownJob(t *testing.T) {
	store := newStubStore()
	sim, _ := fastSimulator(store)

	_, err := sim.Cancel("no-such-job")
	require.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestCancelPreservesLastPersistedState(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	registry := NewRegistry()
	sim := New(store, registry, WithTickInterval(5*time.Millisecond))

	// A long run so cancellation always lands mid-flight.
	sim.Start("job-1", map[string]interface{}{"epochs": 10, "stepsPerEpoch": 100})

	// Wait for at least one flush, then cancel mid-run.
	require.Eventually(t, func() bool {
		job, err := store.GetJob("job-1")
		return err == nil && len(job.Metrics) > 0
	}, 5*time.Second, time.Millisecond)

	before, err := store.GetJob("job-1")
	require.NoError(t, err)

	job, err := sim.Cancel("job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobStatusCanceled, job.Status)

	// Cancellation freezes at the last persisted state; an in-flight
	// tick may add one more flush, never less.
	assert.GreaterOrEqual(t, len(job.Metrics), len(before.Metrics))
	assert.GreaterOrEqual(t, job.Progress, before.Progress)
	assert.Less(t, job.Progress, 100)
	assert.Equal(t, 0, registry.Running())
}

func TestPersistenceFailureMarksJobFailed(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	store.failAtStep = 4
	sim, registry := fastSimulator(store)

	sim.Start("job-1", nil)

	job := waitTerminal(t, store, "job-1")
	require.Equal(t, models.JobStatusFailed, job.Status)
	assert.Contains(t, job.Error, "disk full")
	assert.Equal(t, 0, registry.Running())

	// No tick after the failure: write count stays put.
	writes := store.writeCount()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, writes, store.writeCount())
}

func TestStartFailureNeverLeavesJobQueued(t *testing.T) {
	store := newStubStore()
	// Job unknown to the store: SetRunning fails immediately. The
	// failed terminal write also fails, but Start must not panic or
	// register a timer.
	sim, registry := fastSimulator(store)
	sim.Start("ghost", nil)
	assert.Equal(t, 0, registry.Running())
}

func TestTerminalStateIsImmutable(t *testing.T) {
	store := newStubStore()
	store.seed("job-1")
	sim, _ := fastSimulator(store)

	sim.Start("job-1", map[string]interface{}{"epochs": 1, "stepsPerEpoch": 1})
	job := waitTerminal(t, store, "job-1")
	require.Equal(t, models.JobStatusCompleted, job.Status)

	writes := store.writeCount()
	time.Sleep(20 * time.Millisecond)

	after, err := store.GetJob("job-1")
	require.NoError(t, err)
	assert.Equal(t, job.Status, after.Status)
	assert.Equal(t, job.Progress, after.Progress)
	assert.Len(t, after.Metrics, len(job.Metrics))
	assert.Equal(t, writes, store.writeCount())
}

func TestConcurrentJobsAreIsolated(t *testing.T) {
	store := newStubStore()
	sim, registry := fastSimulator(store)

	ids := []string{"job-a", "job-b", "job-c"}
	for _, id := range ids {
		store.seed(id)
		sim.Start(id, map[string]interface{}{"epochs": 1, "stepsPerEpoch": 1})
	}

	for _, id := range ids {
		job := waitTerminal(t, store, id)
		assert.Equal(t, models.JobStatusCompleted, job.Status)
		assert.Len(t, job.Metrics, 20)
	}
	assert.Equal(t, 0, registry.Running())
}

func TestTotalSteps(t *testing.T) {
	tests := []struct {
		name   string
		config map[string]interface{}
		want   int
	}{
		{"nil config uses defaults", nil, 100},
		{"explicit values", map[string]interface{}{"epochs": 3, "stepsPerEpoch": 10}, 30},
		{"json numbers", map[string]interface{}{"epochs": float64(2), "stepsPerEpoch": float64(25)}, 50},
		{"numeric strings", map[string]interface{}{"epochs": "4", "stepsPerEpoch": "10"}, 40},
		{"floored to minimum", map[string]interface{}{"epochs": 1, "stepsPerEpoch": 1}, 20},
		{"non-numeric falls back", map[string]interface{}{"epochs": "lots", "stepsPerEpoch": true}, 100},
		{"zero falls back", map[string]interface{}{"epochs": 0, "stepsPerEpoch": 0}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, totalSteps(tt.config))
		})
	}
}
