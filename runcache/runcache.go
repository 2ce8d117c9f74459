// Package runcache tracks the run snapshots a client has observed. The
// facade upserts every run it decodes (from lookups, listings, and stream
// events) so local tooling can consult the latest known state of a run
// without a round trip.
package runcache

import (
	"context"

	"github.com/ugmurthy/asyncAgent/types"
)

// Store persists observed run snapshots for lookup. Implementations must be
// safe for concurrent use.
type Store interface {
	// Upsert records the snapshot, replacing any previous snapshot for the
	// same run whose UpdatedAt is not newer.
	Upsert(ctx context.Context, run *types.Run) error
	// Load retrieves the last observed snapshot for the run, or nil when
	// the run has not been observed.
	Load(ctx context.Context, runID string) (*types.Run, error)
	// List returns the last observed snapshot of every tracked run.
	List(ctx context.Context) ([]*types.Run, error)
}
