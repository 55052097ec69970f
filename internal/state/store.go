// Package state holds the process-wide signal and job state behind a single
// mutex so many pollers can read while one writer (the active job, or a
// simulate/reset call) mutates.
package state

import (
	"sync"
	"time"

	"github.com/Amrutha-adapa/Ai-project-STMS/internal/traffic"
)

// JobStatus is the lifecycle phase of a video-processing job.
type JobStatus string

const (
	StatusIdle       JobStatus = "idle"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusError      JobStatus = "error"
)

// Job is a point-in-time snapshot of the active (or most recent) job.
type Job struct {
	ID       string    `json:"job_id,omitempty"`
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// Store is the shared holder of the current signal state and job status.
// Signal publishes replace the whole state value under the lock, so a
// reader can never observe some lanes updated and others stale.
type Store struct {
	mu      sync.RWMutex
	signals traffic.SignalState
	updated time.Time
	job     Job
}

// NewStore returns a store holding the canonical initial state: all lanes
// Red at the base duration with zero counts, and no job.
func NewStore() *Store {
	return &Store{
		signals: traffic.DefaultState(),
		updated: time.Now(),
		job:     Job{Status: StatusIdle},
	}
}

// SignalState returns the latest committed assignment and its publish time.
func (s *Store) SignalState() (traffic.SignalState, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signals, s.updated
}

// Publish atomically replaces the current signal state.
func (s *Store) Publish(state traffic.SignalState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = state
	s.updated = time.Now()
}

// Simulate overwrites one lane's count in the current snapshot, recomputes
// the full assignment and republishes it. It is a synchronous bypass of the
// pipeline for testing and demos.
func (s *Store) Simulate(lane traffic.LaneID, count int) traffic.SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := s.signals.Counts()
	counts[lane] = count
	s.signals = traffic.ComputeTiming(counts)
	s.updated = time.Now()
	return s.signals
}

// Reset republishes the canonical initial state. Idempotent.
func (s *Store) Reset() traffic.SignalState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signals = traffic.DefaultState()
	s.updated = time.Now()
	return s.signals
}

// Job returns the current job snapshot. Never blocks on pipeline work.
func (s *Store) Job() Job {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.job
}

// StartJob records a new job entering the Processing state.
func (s *Store) StartJob(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = Job{ID: id, Status: StatusProcessing, Progress: 0}
}

// UpdateProgress raises the active job's progress. Progress is clamped to
// [0,100] and never moves backwards.
func (s *Store) UpdateProgress(percent int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if percent > 100 {
		percent = 100
	}
	if percent > s.job.Progress {
		s.job.Progress = percent
	}
}

// CompleteJob marks the active job terminal at Completed with full progress.
func (s *Store) CompleteJob() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.Status = StatusCompleted
	s.job.Progress = 100
	s.job.Error = ""
}

// FailJob marks the active job terminal at Error with a message. The signal
// state is deliberately untouched: the prior assignment stays authoritative.
func (s *Store) FailJob(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job.Status = StatusError
	s.job.Error = msg
}
