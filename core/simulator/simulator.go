package simulator

import (
	"log"
	"math"
	"math/rand"
	"strconv"
	"time"

	"mlstudio/core/models"
)

const (
	defaultEpochs        = 5
	defaultStepsPerEpoch = 20
	minTotalSteps        = 20

	defaultTickInterval = 500 * time.Millisecond
	defaultFlushEvery   = 2
)

// JobStore is the persistence surface the simulator drives. It is
// implemented by repository.JobRepository.
type JobStore interface {
	SetRunning(jobID string) error
	UpdateProgress(jobID string, progress int, metrics []models.MetricSample) error
	SetTerminal(jobID string, status models.JobStatus, progress int, metrics []models.MetricSample, errMsg string) error
	GetJob(jobID string) (*models.Job, error)
}

// Recorder receives job lifecycle events for monitoring. It is
// implemented by monitoring.Collector.
type Recorder interface {
	JobStarted()
	JobCompleted()
	JobCanceled()
	JobFailed()
	TickObserved(d time.Duration)
}

// Simulator drives fake training runs. Each started job gets its own
// ticker goroutine that appends one metric sample per tick and
// periodically flushes progress to the store until the job reaches a
// terminal state.
type Simulator struct {
	store      JobStore
	registry   *Registry
	recorder   Recorder
	tick       time.Duration
	flushEvery int
}

// Option configures a Simulator
type Option func(*Simulator)

// WithTickInterval overrides the step cadence.
func WithTickInterval(d time.Duration) Option {
	return func(s *Simulator) {
		if d > 0 {
			s.tick = d
		}
	}
}

// WithFlushEvery overrides how many ticks elapse between store writes.
// The final tick always flushes regardless of cadence.
func WithFlushEvery(n int) Option {
	return func(s *Simulator) {
		if n > 0 {
			s.flushEvery = n
		}
	}
}

// WithRecorder attaches a lifecycle event recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Simulator) { s.recorder = r }
}

// New creates a simulator writing through store and tracking live jobs
// in registry.
func New(store JobStore, registry *Registry, opts ...Option) *Simulator {
	s := &Simulator{
		store:      store,
		registry:   registry,
		tick:       defaultTickInterval,
		flushEvery: defaultFlushEvery,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the simulated training loop for jobID. The running
// transition is persisted before Start returns, so any subsequent read
// observes it; everything after that happens on the job's own
// goroutine. A job that cannot reach running is marked failed rather
// than left queued.
func (s *Simulator) Start(jobID string, config map[string]interface{}) {
	if err := s.store.SetRunning(jobID); err != nil {
		log.Printf("simulator: job %s failed to start: %v", jobID, err)
		if terr := s.store.SetTerminal(jobID, models.JobStatusFailed, 0, nil, err.Error()); terr != nil {
			log.Printf("simulator: job %s terminal write failed: %v", jobID, terr)
		}
		s.recordStarted()
		s.recordFailed()
		return
	}

	total := totalSteps(config)
	h := newHandle(s.tick)
	s.registry.add(jobID, h)
	s.recordStarted()

	go s.run(jobID, h, total)
}

// Cancel stops jobID's simulation if one is live and persists the
// canceled state, preserving whatever progress and metrics had already
// been flushed. Canceling a job that is already terminal is an
// idempotent no-op; an unknown id surfaces the store's not-found error.
func (s *Simulator) Cancel(jobID string) (*models.Job, error) {
	if h, ok := s.registry.get(jobID); ok {
		// Holding h.mu across the store writes below serializes the
		// cancel write after any tick write already in flight.
		h.mu.Lock()
		defer h.mu.Unlock()
		if !h.stopped {
			h.stop()
			s.registry.remove(jobID)
		}
	}

	job, err := s.store.GetJob(jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return job, nil
	}

	if err := s.store.SetTerminal(jobID, models.JobStatusCanceled, job.Progress, job.Metrics, ""); err != nil {
		return nil, err
	}
	s.recordCanceled()
	return s.store.GetJob(jobID)
}

func (s *Simulator) run(jobID string, h *handle, total int) {
	start := time.Now()
	step := 0
	buf := make([]models.MetricSample, 0, total)

	for {
		select {
		case <-h.done:
			return
		case <-h.ticker.C:
		}

		h.mu.Lock()
		if h.stopped {
			h.mu.Unlock()
			return
		}

		began := time.Now()
		step++
		t := float64(step) / float64(total)
		buf = append(buf, models.MetricSample{
			Step:      step,
			Loss:      round4(1.5*math.Exp(-3*t) + rand.Float64()*0.05),
			Accuracy:  round4(0.5 + 0.5*t + (rand.Float64()-0.5)*0.05),
			ElapsedMs: time.Since(start).Milliseconds(),
		})
		progress := step * 100 / total
		if progress > 100 {
			progress = 100
		}
		done := step >= total

		var err error
		if done {
			err = s.store.SetTerminal(jobID, models.JobStatusCompleted, 100, buf, "")
		} else if step%s.flushEvery == 0 {
			err = s.store.UpdateProgress(jobID, progress, buf)
		}
		if err != nil {
			// A tick must not keep running against a possibly-divergent
			// stored state. Stop here and mark the job failed.
			log.Printf("simulator: job %s persistence failure at step %d: %v", jobID, step, err)
			h.stop()
			s.registry.remove(jobID)
			if terr := s.store.SetTerminal(jobID, models.JobStatusFailed, progress, buf, err.Error()); terr != nil {
				log.Printf("simulator: job %s terminal write failed: %v", jobID, terr)
			}
			s.recordFailed()
			h.mu.Unlock()
			return
		}

		s.observeTick(time.Since(began))

		if done {
			h.stop()
			s.registry.remove(jobID)
			s.recordCompleted()
			h.mu.Unlock()
			return
		}
		h.mu.Unlock()
	}
}

// totalSteps computes the bounded step count for a run. Missing or
// non-numeric config fields fall back to defaults, and the floor
// guarantees every job runs a non-trivial number of ticks.
func totalSteps(config map[string]interface{}) int {
	epochs := intField(config, "epochs", defaultEpochs)
	steps := intField(config, "stepsPerEpoch", defaultStepsPerEpoch)
	total := epochs * steps
	if total < minTotalSteps {
		total = minTotalSteps
	}
	return total
}

func intField(m map[string]interface{}, key string, def int) int {
	if m == nil {
		return def
	}
	switch v := m[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case int64:
		if v > 0 {
			return int(v)
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	case string:
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func (s *Simulator) recordStarted() {
	if s.recorder != nil {
		s.recorder.JobStarted()
	}
}

func (s *Simulator) recordCompleted() {
	if s.recorder != nil {
		s.recorder.JobCompleted()
	}
}

func (s *Simulator) recordCanceled() {
	if s.recorder != nil {
		s.recorder.JobCanceled()
	}
}

func (s *Simulator) recordFailed() {
	if s.recorder != nil {
		s.recorder.JobFailed()
	}
}

func (s *Simulator) observeTick(d time.Duration) {
	if s.recorder != nil {
		s.recorder.TickObserved(d)
	}
}
