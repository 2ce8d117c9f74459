// Package inmem provides an in-memory implementation of runcache.Store.
// The store holds run snapshots in a map keyed by run ID, with no
// persistence across process restarts. It is the default store wired into
// clients and is suitable for tests and local tooling.
package inmem

import (
	"context"
	"sync"

	"github.com/ugmurthy/asyncAgent/runcache"
	"github.com/ugmurthy/asyncAgent/types"
)

// Store implements runcache.Store in memory with no durability. All
// operations are thread-safe via sync.RWMutex. Snapshots are defensively
// copied on read and write to prevent accidental mutation of stored data.
type Store struct {
	mu   sync.RWMutex
	runs map[string]*types.Run
}

var _ runcache.Store = (*Store)(nil)

// New constructs an empty Store with no recorded runs.
func New() *Store {
	return &Store{runs: make(map[string]*types.Run)}
}

// Upsert inserts or updates the snapshot keyed by run.ID. A stored snapshot
// is only replaced when the incoming one is at least as recent, so
// out-of-order observations (a slow poll racing a stream event) never roll
// the cached state backwards.
//
// This method will never return an error (the error return exists only to
// satisfy the runcache.Store interface).
func (s *Store) Upsert(_ context.Context, run *types.Run) error {
	if run == nil || run.ID == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.runs[run.ID]; ok {
		if run.UpdatedAt.Before(existing.UpdatedAt.Time) {
			return nil
		}
	}
	s.runs[run.ID] = clone(run)
	return nil
}

// Load retrieves the last observed snapshot for runID, or nil when the run
// has not been observed. The returned snapshot is a defensive copy.
func (s *Store) Load(_ context.Context, runID string) (*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[runID]
	if !ok {
		return nil, nil
	}
	return clone(run), nil
}

// List returns a copy of every tracked snapshot in unspecified order.
func (s *Store) List(_ context.Context) ([]*types.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Run, 0, len(s.runs))
	for _, run := range s.runs {
		out = append(out, clone(run))
	}
	return out, nil
}

// Reset clears all stored snapshots. Useful in tests to ensure isolation
// between cases; not part of the runcache.Store interface.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = make(map[string]*types.Run)
}

func clone(r *types.Run) *types.Run {
	copied := *r
	copied.Labels = cloneLabels(r.Labels)
	copied.Metadata = cloneMetadata(r.Metadata)
	if r.Artifacts != nil {
		copied.Artifacts = append([]*types.Artifact(nil), r.Artifacts...)
	}
	return &copied
}

func cloneLabels(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func cloneMetadata(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
