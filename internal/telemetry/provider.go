package telemetry

import (
	"sync"
	"time"
)

// Provider gives access to the most recently applied frame
type Provider interface {
	Current() (Frame, bool)
}

// State keeps the latest applied frame. It holds no history: every Replace
// overwrites the previous frame wholesale. State is safe for concurrent use.
type State struct {
	mu        sync.RWMutex
	frame     Frame
	hasFrame  bool
	updatedAt time.Time
}

// NewState creates an empty State which reports no data until the first Replace
func NewState() *State {
	return &State{}
}

// Replace stores f as the latest frame
func (s *State) Replace(f Frame) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = f
	s.hasFrame = true
	s.updatedAt = time.Now()
}

// Current returns the latest frame. The second value is false if no frame
// was applied yet, in which case the returned Frame is the zero value.
func (s *State) Current() (Frame, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.frame, s.hasFrame
}

// UpdatedAt returns the time of the last Replace, or the zero time
func (s *State) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.updatedAt
}

// Reset returns the State to its "no data" condition
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.frame = Frame{}
	s.hasFrame = false
	s.updatedAt = time.Time{}
}
