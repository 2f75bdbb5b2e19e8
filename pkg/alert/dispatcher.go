// Package alert raises and clears move alerts against the inventory:
// a tag on the affected device plus an optional journal entry.
package alert

import (
	"context"

	"github.com/oobwatch-network/oobwatch/pkg/model"
)

// Raise carries everything the dispatcher needs to describe a confirmed
// move.
type Raise struct {
	Interface model.ManagedInterface
	Observed  model.Endpoint
	VLAN      int
	Counter   int  // consecutive MOVED cycles at Observed
	Reminder  bool // re-raise of a still-unresolved alert
}

// Dispatcher delivers alert decisions. Both calls must be idempotent:
// the engine re-issues the same logical call on reminders and after
// dispatch failures.
type Dispatcher interface {
	Raise(ctx context.Context, r Raise) error
	Clear(ctx context.Context, iface model.ManagedInterface) error
}

// NopDispatcher logs nothing and always succeeds. Used by the one-shot
// cycle command when alerting is not wired up.
type NopDispatcher struct{}

// Raise does nothing
func (NopDispatcher) Raise(context.Context, Raise) error { return nil }

// Clear does nothing
func (NopDispatcher) Clear(context.Context, model.ManagedInterface) error { return nil }
