// Package reconcile turns resolved observations into durable state
// transitions and alert decisions. The transition logic is a pure
// function; all I/O lives in the engine.
package reconcile

import (
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/model"
)

// Action is the dispatcher call a transition demands.
type Action int

const (
	ActionNone Action = iota
	ActionRaise
	ActionReminder
	ActionClear
)

func (a Action) String() string {
	switch a {
	case ActionRaise:
		return "raise"
	case ActionReminder:
		return "reminder"
	case ActionClear:
		return "clear"
	default:
		return "none"
	}
}

// Params are the confirmation policy knobs.
type Params struct {
	ConfirmRuns int           // consecutive MOVED cycles before confirming
	RemindAfter time.Duration // reminder window for confirmed moves
}

// Decision is the outcome of one transition: the successor state
// (assuming any dispatcher call succeeds) and the call to make.
type Decision struct {
	Next   model.MoveState
	Action Action
}

// Transition applies one observation to one interface's state.
//
// OK resets the counter from any state; a confirmed move (or a still
// active alert) additionally clears. SUSPECT_UPLINK and NOT_FOUND carry
// no evidence either way: they change the status but leave the counter
// and last observed location untouched, so confirmation progress
// survives FDB gaps and uplink excursions. MOVED increments the counter
// while the observed location holds steady and restarts it at 1 when the
// candidate location changes. While an alert is active, re-confirmation
// stays on the reminder schedule instead of raising again.
func Transition(cur *model.MoveState, obs model.ResolvedObservation, now time.Time, p Params) Decision {
	next := *cur
	next.UpdatedAt = now

	switch obs.Status {
	case model.ObservationOK, model.ObservationOKMLAGPeer:
		action := ActionNone
		if cur.Status == model.MoveStatusConfirmed || cur.AlertActive() {
			action = ActionClear
			next.LastAlertAt = time.Time{}
		}
		next.Status = model.MoveStatusOK
		next.Counter = 0
		return Decision{Next: next, Action: action}

	case model.ObservationSuspectUplink:
		next.Status = model.MoveStatusSuspectUplink
		return Decision{Next: next}

	case model.ObservationNotFound:
		next.Status = model.MoveStatusNotFound
		return Decision{Next: next}

	case model.ObservationMoved:
		return transitionMoved(cur, next, obs, now, p)

	default:
		return Decision{Next: next}
	}
}

func transitionMoved(cur *model.MoveState, next model.MoveState, obs model.ResolvedObservation, now time.Time, p Params) Decision {
	if cur.Status == model.MoveStatusConfirmed {
		if obs.Observed == cur.LastObserved {
			// Still at the confirmed location. Re-raise when the initial
			// raise never went through, or when the reminder window has
			// elapsed.
			if !cur.AlertActive() {
				next.LastAlertAt = now
				return Decision{Next: next, Action: ActionRaise}
			}
			if now.Sub(cur.LastAlertAt) >= p.RemindAfter {
				next.LastAlertAt = now
				return Decision{Next: next, Action: ActionReminder}
			}
			return Decision{Next: next}
		}
		// Seen at yet another location: restart confirmation for the new
		// candidate while the raised alert stays active.
		next.Status = model.MoveStatusPending
		next.Counter = 1
		next.LastObserved = obs.Observed
		return Decision{Next: next}
	}

	if obs.Observed == cur.LastObserved {
		next.Counter = cur.Counter + 1
	} else {
		next.Counter = 1
		next.LastObserved = obs.Observed
	}

	if next.Counter >= p.ConfirmRuns {
		next.Status = model.MoveStatusConfirmed
		if cur.AlertActive() {
			// An alert is already out, e.g. after an uplink or FDB-gap
			// excursion from MOVE_CONFIRMED. Rejoin the reminder schedule
			// instead of re-raising inside the window.
			if now.Sub(cur.LastAlertAt) >= p.RemindAfter {
				next.LastAlertAt = now
				return Decision{Next: next, Action: ActionReminder}
			}
			return Decision{Next: next}
		}
		next.LastAlertAt = now
		return Decision{Next: next, Action: ActionRaise}
	}
	next.Status = model.MoveStatusPending
	return Decision{Next: next}
}
