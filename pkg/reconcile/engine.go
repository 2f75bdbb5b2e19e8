package reconcile

import (
	"context"
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/alert"
	"github.com/oobwatch-network/oobwatch/pkg/audit"
	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/state"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// Engine drives the per-interface state machine: it loads state, applies
// the transition, makes the dispatcher call the decision demands, and
// persists the result. Interfaces are independent; a failure on one
// never stops the pass.
type Engine struct {
	store      state.Store
	dispatcher alert.Dispatcher
	audit      audit.Logger
	params     Params
}

// NewEngine wires the engine's dependencies.
func NewEngine(store state.Store, dispatcher alert.Dispatcher, auditLog audit.Logger, params Params) *Engine {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
		audit:      auditLog,
		params:     params,
	}
}

// CycleStats summarizes one reconcile pass.
type CycleStats struct {
	Interfaces int
	Raised     int
	Reminded   int
	Cleared    int
	Retired    int
	Errors     int
}

// Reconcile applies one cycle's observations to every managed interface,
// then retires state for interfaces that left the topology.
func (e *Engine) Reconcile(ctx context.Context, ifaces []model.ManagedInterface,
	resolved map[string]model.ResolvedObservation, now time.Time) CycleStats {

	var stats CycleStats
	live := make(map[string]bool, len(ifaces))

	for i := range ifaces {
		iface := &ifaces[i]
		id := iface.ID()
		live[id] = true
		stats.Interfaces++

		obs, ok := resolved[id]
		if !ok {
			obs = model.ResolvedObservation{Status: model.ObservationNotFound}
		}

		e.reconcileOne(ctx, iface, obs, now, &stats)
	}

	stats.Retired = e.retire(ctx, live, &stats)
	return stats
}

func (e *Engine) reconcileOne(ctx context.Context, iface *model.ManagedInterface,
	obs model.ResolvedObservation, now time.Time, stats *CycleStats) {

	id := iface.ID()
	log := util.WithInterface(id)

	cur, err := e.store.Get(ctx, id)
	if err != nil {
		log.Errorf("loading state: %v", err)
		stats.Errors++
		return
	}
	if cur == nil {
		cur = model.NewMoveState(id)
	}

	decision := Transition(cur, obs, now, e.params)
	next := decision.Next

	switch decision.Action {
	case ActionRaise, ActionReminder:
		reminder := decision.Action == ActionReminder
		err := e.dispatcher.Raise(ctx, alert.Raise{
			Interface: *iface,
			Observed:  next.LastObserved,
			VLAN:      obs.VLAN,
			Counter:   next.Counter,
			Reminder:  reminder,
		})
		e.auditRaise(iface, &next, reminder, err)
		if err != nil {
			log.Warnf("raise failed, will retry next cycle: %v", err)
			// Record the transition but keep the old alert timestamp so
			// the raise is re-attempted next cycle.
			next.LastAlertAt = cur.LastAlertAt
			stats.Errors++
		} else if reminder {
			stats.Reminded++
		} else {
			stats.Raised++
		}

	case ActionClear:
		err := e.dispatcher.Clear(ctx, *iface)
		e.auditClear(iface, cur, err)
		if err != nil {
			// Leave the state untouched: OK evidence persists, so the
			// clear is retried as long as it is needed.
			log.Warnf("clear failed, will retry next cycle: %v", err)
			stats.Errors++
			return
		}
		stats.Cleared++
	}

	if cur.Status != next.Status {
		log.Infof("state %s -> %s (counter=%d, observed=%s)",
			cur.Status, next.Status, next.Counter, next.LastObserved)
	}

	if err := e.store.Put(ctx, &next); err != nil {
		// Uncommitted decision; evidence re-accumulates next cycle.
		log.Errorf("persisting state: %v", err)
		stats.Errors++
	}
}

// retire deletes state for interfaces no longer in the topology snapshot.
func (e *Engine) retire(ctx context.Context, live map[string]bool, stats *CycleStats) int {
	states, err := e.store.List(ctx)
	if err != nil {
		util.Errorf("listing state for retirement: %v", err)
		stats.Errors++
		return 0
	}

	retired := 0
	for _, st := range states {
		if live[st.ID] {
			continue
		}
		if err := e.store.Delete(ctx, st.ID); err != nil {
			util.WithInterface(st.ID).Errorf("retiring state: %v", err)
			stats.Errors++
			continue
		}
		util.WithInterface(st.ID).Infof("retired (left topology snapshot)")
		device, name := splitID(st.ID)
		if err := e.audit.Log(audit.NewEvent(audit.EventTypeRetired, device, name).WithSuccess()); err != nil {
			util.Warnf("audit log: %v", err)
		}
		retired++
	}
	return retired
}

func (e *Engine) auditRaise(iface *model.ManagedInterface, next *model.MoveState, reminder bool, dispatchErr error) {
	typ := audit.EventTypeConfirmed
	if reminder {
		typ = audit.EventTypeReminder
	}
	ev := audit.NewEvent(typ, iface.Device, iface.Name).
		WithMAC(iface.MAC).
		WithLocations(iface.Expected, next.LastObserved).
		WithCounter(next.Counter)
	if dispatchErr != nil {
		ev.WithError(dispatchErr)
	} else {
		ev.WithSuccess()
	}
	if err := e.audit.Log(ev); err != nil {
		util.Warnf("audit log: %v", err)
	}
}

func (e *Engine) auditClear(iface *model.ManagedInterface, cur *model.MoveState, dispatchErr error) {
	ev := audit.NewEvent(audit.EventTypeCleared, iface.Device, iface.Name).
		WithMAC(iface.MAC).
		WithLocations(iface.Expected, cur.LastObserved)
	if dispatchErr != nil {
		ev.WithError(dispatchErr)
	} else {
		ev.WithSuccess()
	}
	if err := e.audit.Log(ev); err != nil {
		util.Warnf("audit log: %v", err)
	}
}

func splitID(id string) (device, iface string) {
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return id[:i], id[i+1:]
		}
	}
	return id, ""
}
