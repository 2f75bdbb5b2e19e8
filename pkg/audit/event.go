// Package audit records every alert decision the reconciliation engine
// makes, as a durable JSON-lines trail separate from process logs.
package audit

import (
	"fmt"
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/model"
)

// EventType categorizes audit events
type EventType string

const (
	EventTypeConfirmed EventType = "move_confirmed" // threshold reached, alert raised
	EventTypeReminder  EventType = "reminder"       // alert re-raised after the reminder window
	EventTypeCleared   EventType = "cleared"        // interface back at expected location
	EventTypeRetired   EventType = "retired"        // interface left the topology snapshot
)

// Event represents one engine decision for one interface
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Device    string    `json:"device"`
	Interface string    `json:"interface"`
	MAC       string    `json:"mac,omitempty"`

	Expected model.Endpoint `json:"expected,omitempty"`
	Observed model.Endpoint `json:"observed,omitempty"`
	Counter  int            `json:"counter,omitempty"`

	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"` // dispatcher failure, retried next cycle
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device    string
	Interface string
	Type      EventType
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}

// NewEvent creates an event for an interface decision
func NewEvent(typ EventType, device, iface string) *Event {
	return &Event{
		ID:        generateID(),
		Timestamp: time.Now(),
		Type:      typ,
		Device:    device,
		Interface: iface,
	}
}

// WithMAC sets the interface MAC
func (e *Event) WithMAC(mac string) *Event {
	e.MAC = mac
	return e
}

// WithLocations sets the expected and observed endpoints
func (e *Event) WithLocations(expected, observed model.Endpoint) *Event {
	e.Expected = expected
	e.Observed = observed
	return e
}

// WithCounter sets the consecutive-move counter
func (e *Event) WithCounter(counter int) *Event {
	e.Counter = counter
	return e
}

// WithSuccess marks the decision as dispatched
func (e *Event) WithSuccess() *Event {
	e.Success = true
	return e
}

// WithError marks the decision as failed at the dispatcher
func (e *Event) WithError(err error) *Event {
	e.Success = false
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

func generateID() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}
