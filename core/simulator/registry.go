package simulator

import (
	"sync"
	"time"
)

// handle is the live state for one running job. mu serializes tick
// writes against the cancel write, so the terminal row persisted on
// cancellation always lands after any tick already in flight.
type handle struct {
	mu      sync.Mutex
	ticker  *time.Ticker
	done    chan struct{}
	stopped bool
}

func newHandle(interval time.Duration) *handle {
	return &handle{
		ticker: time.NewTicker(interval),
		done:   make(chan struct{}),
	}
}

// stop halts the ticker and wakes the run loop. Callers must hold mu.
func (h *handle) stop() {
	if h.stopped {
		return
	}
	h.stopped = true
	h.ticker.Stop()
	close(h.done)
}

// Registry maps job ids to the live handle driving their simulation.
// An entry exists exactly while the job is running; it is removed as
// part of every terminal transition. The registry is owned by the
// service instance so tests can create isolated ones.
type Registry struct {
	mu      sync.Mutex
	handles map[string]*handle
}

// NewRegistry creates an empty job registry
func NewRegistry() *Registry {
	return &Registry{handles: make(map[string]*handle)}
}

func (r *Registry) add(jobID string, h *handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles[jobID] = h
}

func (r *Registry) get(jobID string) (*handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[jobID]
	return h, ok
}

func (r *Registry) remove(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, jobID)
}

// Running returns the number of jobs with a live simulation.
func (r *Registry) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}
