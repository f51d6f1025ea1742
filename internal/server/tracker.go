package server

import (
	"sync"

	"github.com/sells-group/territory-cli/internal/model"
	"github.com/sells-group/territory-cli/internal/scanner"
)

// ScanStatus is the API view of a region's scan state.
type ScanStatus struct {
	Region   string            `json:"region"`
	Running  bool              `json:"running"`
	Progress *scanner.Progress `json:"progress,omitempty"`
	Summary  *scanner.Summary  `json:"summary,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// scanTracker retains the latest progress and final summary per region so the
// API can answer status polls. It implements scanner.Sink.
type scanTracker struct {
	mu     sync.Mutex
	states map[string]*ScanStatus
}

func newScanTracker() *scanTracker {
	return &scanTracker{states: make(map[string]*ScanStatus)}
}

func (t *scanTracker) started(region string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[region] = &ScanStatus{Region: region, Running: true}
}

func (t *scanTracker) failed(region string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(region)
	st.Running = false
	st.Error = err.Error()
}

func (t *scanTracker) status(region string) (ScanStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.states[region]
	if !ok {
		return ScanStatus{}, false
	}
	out := *st
	return out, true
}

func (t *scanTracker) state(region string) *ScanStatus {
	if st, ok := t.states[region]; ok {
		return st
	}
	st := &ScanStatus{Region: region}
	t.states[region] = st
	return st
}

// Progress implements scanner.Sink.
func (t *scanTracker) Progress(p scanner.Progress) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(p.Region)
	st.Running = true
	st.Progress = &p
}

// RequestFailed implements scanner.Sink. Failure counts already flow through
// Progress; nothing extra to retain.
func (t *scanTracker) RequestFailed(string, model.SearchPoint, string, error) {}

// Done implements scanner.Sink.
func (t *scanTracker) Done(s scanner.Summary) {
	t.mu.Lock()
	defer t.mu.Unlock()
	st := t.state(s.Region)
	st.Running = false
	st.Summary = &s
}
