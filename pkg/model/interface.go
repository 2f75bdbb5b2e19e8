// Package model defines the domain types shared by the inventory, FDB,
// resolver, and reconciliation packages.
package model

import "fmt"

// Endpoint identifies a switch port.
type Endpoint struct {
	Switch string `json:"switch"`
	Port   string `json:"port"`
}

// String formats an endpoint as "switch:port".
func (e Endpoint) String() string {
	return e.Switch + ":" + e.Port
}

// IsZero reports whether the endpoint is unset.
func (e Endpoint) IsZero() bool {
	return e.Switch == "" && e.Port == ""
}

// ManagedInterface is one monitored OOB (IPMI/iLO/iDRAC) interface,
// refreshed each cycle from the topology snapshot.
type ManagedInterface struct {
	Device    string `json:"device"`   // server device name
	DeviceID  int64  `json:"device_id,omitempty"` // inventory record ID, used by the alert dispatcher
	Name      string `json:"name"`     // interface name on the device
	MAC       string `json:"mac"`      // canonical lowercase-colon form
	OOBIP     string `json:"oob_ip,omitempty"`
	DeviceURL string `json:"device_url,omitempty"` // inventory link for alert bodies

	Expected Endpoint `json:"expected"` // cabled switch/port per the inventory
	MLAGPeer string   `json:"mlag_peer,omitempty"` // peer switch of Expected.Switch, if any
}

// ID returns the stable identity "device/interface" used as the state key.
func (m *ManagedInterface) ID() string {
	return m.Device + "/" + m.Name
}

// Validate checks the fields required for reconciliation.
func (m *ManagedInterface) Validate() error {
	if m.Device == "" || m.Name == "" {
		return fmt.Errorf("managed interface missing identity (device=%q name=%q)", m.Device, m.Name)
	}
	if m.MAC == "" {
		return fmt.Errorf("managed interface %s has no MAC", m.ID())
	}
	if m.Expected.IsZero() {
		return fmt.Errorf("managed interface %s has no expected endpoint", m.ID())
	}
	return nil
}

// Switch is a device whose FDB is collected each cycle.
type Switch struct {
	Name     string `json:"name"`
	MgmtIP   string `json:"mgmt_ip"`
	Platform string `json:"platform,omitempty"` // selects the FDB collector ("snmp", "sonic", "ssh")
}
