// Package testutil provides deterministic in-memory fakes for the
// provider, store, and dispatcher interfaces.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/oobwatch-network/oobwatch/pkg/alert"
	"github.com/oobwatch-network/oobwatch/pkg/model"
)

// MemoryStore is an in-memory state.Store with error injection.
type MemoryStore struct {
	mu     sync.Mutex
	states map[string]model.MoveState

	GetErr    error
	PutErr    error
	DeleteErr error
	ListErr   error
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]model.MoveState)}
}

// Get returns a copy of the stored state, or (nil, nil) if absent.
func (m *MemoryStore) Get(ctx context.Context, id string) (*model.MoveState, error) {
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[id]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

// Put stores a copy of the state.
func (m *MemoryStore) Put(ctx context.Context, s *model.MoveState) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[s.ID] = *s
	return nil
}

// Delete removes an identity; missing keys are not an error.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.states, id)
	return nil
}

// List returns all states ordered by identity.
func (m *MemoryStore) List(ctx context.Context) ([]*model.MoveState, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.MoveState, 0, len(m.states))
	for _, st := range m.states {
		copied := st
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close is a no-op
func (m *MemoryStore) Close() error { return nil }

// Len returns the number of stored states.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.states)
}

// RecordingDispatcher records raise/clear calls and can fail on demand.
type RecordingDispatcher struct {
	mu     sync.Mutex
	Raises []alert.Raise
	Clears []model.ManagedInterface

	RaiseErr error
	ClearErr error
}

// Raise records the call.
func (d *RecordingDispatcher) Raise(ctx context.Context, r alert.Raise) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.RaiseErr != nil {
		return d.RaiseErr
	}
	d.Raises = append(d.Raises, r)
	return nil
}

// Clear records the call.
func (d *RecordingDispatcher) Clear(ctx context.Context, iface model.ManagedInterface) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ClearErr != nil {
		return d.ClearErr
	}
	d.Clears = append(d.Clears, iface)
	return nil
}

// RaiseCount returns the number of successful raise calls.
func (d *RecordingDispatcher) RaiseCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Raises)
}

// ClearCount returns the number of successful clear calls.
func (d *RecordingDispatcher) ClearCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Clears)
}

// FakeInventory serves fixed interfaces and switches.
type FakeInventory struct {
	Interfaces []model.ManagedInterface
	Switches   []model.Switch
	Err        error
}

// FetchInterfaces returns the fixture interfaces.
func (f *FakeInventory) FetchInterfaces(ctx context.Context) ([]model.ManagedInterface, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Interfaces, nil
}

// FetchSwitches returns the fixture switches.
func (f *FakeInventory) FetchSwitches(ctx context.Context) ([]model.Switch, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Switches, nil
}
