package model

// ObservationStatus classifies where a MAC was seen relative to where the
// inventory expects it.
type ObservationStatus string

const (
	ObservationOK            ObservationStatus = "ok"             // on the expected switch/port
	ObservationOKMLAGPeer    ObservationStatus = "ok_mlag_peer"   // on the expected port of the MLAG peer
	ObservationMoved         ObservationStatus = "moved"          // on an unexpected access port
	ObservationSuspectUplink ObservationStatus = "suspect_uplink" // on an uplink/trunk port (noise)
	ObservationNotFound      ObservationStatus = "not_found"      // absent from every FDB
)

// ResolvedObservation is the resolver's verdict for one managed interface
// against one FDB snapshot.
type ResolvedObservation struct {
	Status   ObservationStatus `json:"status"`
	Observed Endpoint          `json:"observed,omitempty"` // set unless NOT_FOUND
	VLAN     int               `json:"vlan,omitempty"`
}
