package ingest

import "sync"

// History keeps the most recent run result for the ops server.
type History struct {
	mu   sync.RWMutex
	last *Result
	runs int
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Record stores r as the latest run.
func (h *History) Record(r Result) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last = &r
	h.runs++
}

// Last returns the latest run, if any.
func (h *History) Last() (Result, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return Result{}, false
	}
	return *h.last, true
}

// Runs returns the number of recorded runs.
func (h *History) Runs() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.runs
}
