package model

import "time"

// PortRole is a collector-supplied hint about what a port is.
type PortRole string

const (
	PortRoleUnknown PortRole = ""
	PortRoleAccess  PortRole = "access"
	PortRoleUplink  PortRole = "uplink"
)

// FDBEntry is one learned MAC observation from a switch's forwarding database.
type FDBEntry struct {
	Switch     string    `json:"switch"`
	MAC        string    `json:"mac"` // canonical lowercase-colon form
	Port       string    `json:"port"`
	VLAN       int       `json:"vlan,omitempty"`
	Role       PortRole  `json:"role,omitempty"`
	ObservedAt time.Time `json:"observed_at"`
}

// Endpoint returns the entry's location as an Endpoint.
func (e *FDBEntry) Endpoint() Endpoint {
	return Endpoint{Switch: e.Switch, Port: e.Port}
}

// FDBSnapshot is the merged per-cycle view of all switches' FDB tables,
// indexed by MAC. A switch that failed collection simply contributes
// no entries.
type FDBSnapshot struct {
	Entries  map[string][]FDBEntry `json:"entries"`
	Switches []string              `json:"switches"` // switches that reported successfully
	Failed   []string              `json:"failed"`   // switches whose collection failed
	TakenAt  time.Time             `json:"taken_at"`
}

// NewFDBSnapshot creates an empty snapshot.
func NewFDBSnapshot() *FDBSnapshot {
	return &FDBSnapshot{Entries: make(map[string][]FDBEntry), TakenAt: time.Now().UTC()}
}

// Add indexes an entry by MAC.
func (s *FDBSnapshot) Add(e FDBEntry) {
	s.Entries[e.MAC] = append(s.Entries[e.MAC], e)
}

// Lookup returns all observations of a MAC across switches.
func (s *FDBSnapshot) Lookup(mac string) []FDBEntry {
	return s.Entries[mac]
}

// Len returns the total number of entries.
func (s *FDBSnapshot) Len() int {
	n := 0
	for _, entries := range s.Entries {
		n += len(entries)
	}
	return n
}
