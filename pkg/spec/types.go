// Package spec handles loading and validating the auditor's JSON
// configuration file.
package spec

import (
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// ============================================================================
// Top-level configuration
// ============================================================================

// Config is the on-disk configuration (oobwatch.json).
// Durations are written as strings like "5m", "6h" or "1d".
type Config struct {
	Version string `json:"version"`

	PollInterval string `json:"poll_interval"` // cycle period, default "5m"
	ConfirmRuns  int    `json:"confirm_runs"`  // consecutive MOVED cycles before confirming
	RemindAfter  string `json:"remind_after"`  // reminder window for confirmed moves

	StateDB        string `json:"state_db"`        // SQLite path, default "./oobwatch.db"
	AuditLog       string `json:"audit_log"`       // JSON-lines decision trail, default "./oobwatch-audit.log"
	AuditRetention string `json:"audit_retention"` // drop audit records older than this, default "30d"

	Inventory InventorySpec         `json:"inventory"`
	FDB       FDBSpec               `json:"fdb"`
	Alerting  AlertSpec             `json:"alerting"`
	Uplinks   UplinkSpec            `json:"uplinks"`
	MLAG      map[string]*MLAGGroup `json:"mlag_groups,omitempty"` // group name → members
}

// PollIntervalDuration returns the parsed poll interval. Valid after Load.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := util.ParseDuration(c.PollInterval)
	return d
}

// RemindAfterDuration returns the parsed reminder window. Valid after Load.
func (c *Config) RemindAfterDuration() time.Duration {
	d, _ := util.ParseDuration(c.RemindAfter)
	return d
}

// AuditRetentionDuration returns the parsed audit retention. Valid after Load.
func (c *Config) AuditRetentionDuration() time.Duration {
	d, _ := util.ParseDuration(c.AuditRetention)
	return d
}

// ============================================================================
// Providers
// ============================================================================

// InventorySpec selects and configures the topology snapshot provider.
type InventorySpec struct {
	Kind string `json:"kind"` // "netbox" or "static"

	// NetBox provider
	URL            string `json:"url,omitempty"`
	Token          string `json:"token,omitempty"`     // prefer TokenEnv over inline tokens
	TokenEnv       string `json:"token_env,omitempty"` // environment variable holding the token
	VerifyTLS      *bool  `json:"verify_tls,omitempty"`
	SwitchSelector string `json:"switch_selector,omitempty"` // "role:X", "tag:Y" or "site:Z"

	// Static provider (lab setups, tests)
	StaticFile string `json:"static_file,omitempty"` // YAML topology file
}

// FDBSpec configures FDB collection.
type FDBSpec struct {
	Source    string            `json:"source"`              // default collector: "snmp", "sonic" or "ssh"
	Parallel  int               `json:"parallel"`            // worker pool size, default 8
	Overrides map[string]string `json:"overrides,omitempty"` // per-switch collector override

	SNMP  SNMPSpec  `json:"snmp,omitempty"`
	SONiC SONiCSpec `json:"sonic,omitempty"`
	SSH   SSHSpec   `json:"ssh,omitempty"`
}

// SNMPSpec holds SNMP transport settings for the BRIDGE-MIB collector.
type SNMPSpec struct {
	Community string `json:"community"` // default "public"
	Version   string `json:"version"`   // "1" or "2c", default "2c"
	Port      int    `json:"port"`      // default 161
	Timeout   string `json:"timeout"`   // default "5s"
	Retries   int    `json:"retries"`   // default 2
}

// TimeoutDuration returns the parsed SNMP timeout. Valid after Load.
func (s *SNMPSpec) TimeoutDuration() time.Duration {
	d, _ := util.ParseDuration(s.Timeout)
	return d
}

// SONiCSpec holds Redis settings for the SONiC STATE_DB collector.
type SONiCSpec struct {
	Port int `json:"port"` // default 6379
	DB   int `json:"db"`   // default 6 (STATE_DB)
}

// SSHSpec holds settings for the CLI-scrape collector.
type SSHSpec struct {
	User        string `json:"user"`
	PasswordEnv string `json:"password_env,omitempty"` // environment variable holding the password
	KeyFile     string `json:"key_file,omitempty"`     // private key path
	Port        int    `json:"port"`                   // default 22
	Command     string `json:"command"`                // default "show mac address-table"
	Timeout     string `json:"timeout"`                // default "10s"
}

// TimeoutDuration returns the parsed SSH timeout. Valid after Load.
func (s *SSHSpec) TimeoutDuration() time.Duration {
	d, _ := util.ParseDuration(s.Timeout)
	return d
}

// ============================================================================
// Policy
// ============================================================================

// AlertSpec configures the alert dispatcher.
type AlertSpec struct {
	MoveTag string `json:"move_tag"` // inventory tag set on confirmed moves, default "oob-moved"
	Journal bool   `json:"journal"`  // also write inventory journal entries
}

// UplinkSpec declares which ports are uplinks/trunks. MACs seen there are
// never treated as evidence of a move.
type UplinkSpec struct {
	// Ports lists explicit uplink ports per switch; range notation is
	// accepted ("Ethernet48-52").
	Ports map[string][]string `json:"ports,omitempty"`
	// Patterns are case-insensitive regexes matched against port names
	// on any switch.
	Patterns []string `json:"patterns,omitempty"`
}

// MLAGGroup declares a set of switches acting as one logical device.
type MLAGGroup struct {
	Members []string `json:"members"`
	// MatchPorts requires the peer observation to be on the equivalent
	// port. Defaults to true; nil means unset.
	MatchPorts *bool `json:"match_ports,omitempty"`
	// PortMap translates expected-switch port names to peer port names
	// when the pair is not numbered identically.
	PortMap map[string]string `json:"port_map,omitempty"`
}

// MatchPortsEnabled returns the effective port-matching policy.
func (g *MLAGGroup) MatchPortsEnabled() bool {
	return g.MatchPorts == nil || *g.MatchPorts
}
