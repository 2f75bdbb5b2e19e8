package model

import "time"

// MoveStateSchemaVersion is stored with every record so a future release
// can migrate old rows.
const MoveStateSchemaVersion = 1

// MoveStatus is the per-interface confirmation state.
type MoveStatus string

const (
	MoveStatusInit          MoveStatus = "init"           // never observed yet
	MoveStatusOK            MoveStatus = "ok"             // at expected location
	MoveStatusPending       MoveStatus = "move_pending"   // mismatch seen, below confirmation threshold
	MoveStatusConfirmed     MoveStatus = "move_confirmed" // threshold reached, alert raised
	MoveStatusSuspectUplink MoveStatus = "suspect_uplink" // only seen on uplink ports
	MoveStatusNotFound      MoveStatus = "not_found"      // absent from every FDB
)

// MoveState is the durable confirmation state for one managed interface.
// Exactly one exists per live interface; only the reconciliation engine
// mutates it, and never concurrently for the same identity.
type MoveState struct {
	ID            string     `json:"id"` // ManagedInterface.ID()
	Status        MoveStatus `json:"status"`
	Counter       int        `json:"counter"`                  // consecutive MOVED cycles at LastObserved
	LastObserved  Endpoint   `json:"last_observed,omitempty"`  // location of the most recent MOVED
	LastAlertAt   time.Time  `json:"last_alert_at,omitempty"`  // zero when no alert is active
	UpdatedAt     time.Time  `json:"updated_at"`
	SchemaVersion int        `json:"schema_version"`
}

// NewMoveState returns the lazily-created initial state for an interface.
func NewMoveState(id string) *MoveState {
	return &MoveState{
		ID:            id,
		Status:        MoveStatusInit,
		SchemaVersion: MoveStateSchemaVersion,
	}
}

// AlertActive reports whether a raised alert has not yet been cleared.
// Survives excursions through SUSPECT_UPLINK/NOT_FOUND after confirmation.
func (s *MoveState) AlertActive() bool {
	return !s.LastAlertAt.IsZero()
}
