// Package state persists per-interface move-confirmation state. Counters
// and alert timestamps must survive restarts: the confirmation protocol is
// only correct if accumulated evidence is not silently reset.
package state

import (
	"context"

	"github.com/oobwatch-network/oobwatch/pkg/model"
)

// Store is durable key-value persistence keyed by interface identity.
// Each read-modify-write of a single record is atomic; no partial update
// is ever visible.
type Store interface {
	// Get returns the state for an identity, or (nil, nil) if absent.
	Get(ctx context.Context, id string) (*model.MoveState, error)

	// Put inserts or replaces the state for its identity.
	Put(ctx context.Context, s *model.MoveState) error

	// Delete removes an identity's state. Deleting a missing key is not
	// an error (interfaces retire concurrently with their last record).
	Delete(ctx context.Context, id string) error

	// List returns all persisted states, ordered by identity.
	List(ctx context.Context) ([]*model.MoveState, error)

	Close() error
}
