// Package testutil provides test utilities for progress tracking.
package testutil

import (
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/s3upload/s3types"
)

// ProgressEvent is a single observer invocation.
type ProgressEvent struct {
	File    s3types.FileIdentity
	Percent float64
	Result  *s3types.Result
}

// MockObserver records every progress event it receives.
// It is safe for concurrent use.
type MockObserver struct {
	mu     sync.Mutex
	events []ProgressEvent
}

// OnProgress records an event.
func (m *MockObserver) OnProgress(file s3types.FileIdentity, percent float64, result *s3types.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ProgressEvent{File: file, Percent: percent, Result: result})
}

// Events returns a copy of all recorded events.
func (m *MockObserver) Events() []ProgressEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ProgressEvent, len(m.events))
	copy(out, m.events)
	return out
}

// EventsFor returns the events recorded for one file name.
func (m *MockObserver) EventsFor(name string) []ProgressEvent {
	var out []ProgressEvent
	for _, e := range m.Events() {
		if e.File.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Percents returns the percent values recorded for one file name.
func (m *MockObserver) Percents(name string) []float64 {
	var out []float64
	for _, e := range m.EventsFor(name) {
		out = append(out, e.Percent)
	}
	return out
}

// Last returns the last event recorded for one file name.
func (m *MockObserver) Last(name string) (ProgressEvent, bool) {
	events := m.EventsFor(name)
	if len(events) == 0 {
		return ProgressEvent{}, false
	}
	return events[len(events)-1], true
}

// Reset clears the recorded events.
func (m *MockObserver) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

var _ s3types.Observer = (*MockObserver)(nil)
