package state

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/five82/jobtail/internal/batchapi"
)

// Snapshot represents the latest job header data available to the UI.
type Snapshot struct {
	Job                 batchapi.Job
	HasJob              bool
	Missing             bool // server reported the job as not found
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple polls.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Finished reports whether the job reached a terminal status.
func (s Snapshot) Finished() bool {
	return s.HasJob && s.Job.Status.Terminal()
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored job. When err is non-nil the previous data is
// kept but the error is recorded for visibility.
func (s *Store) Update(job *batchapi.Job, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshot.LastUpdated = time.Now()
	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.Missing = errors.Is(err, batchapi.ErrNotFound)
		s.snapshot.ConsecutiveFailures++
		return
	}

	if job != nil {
		s.snapshot.Job = *job
		s.snapshot.HasJob = true
	} else {
		s.snapshot.HasJob = false
	}
	s.snapshot.Missing = false
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
