package spec

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// DefaultPath is the configuration file checked when --config is not given.
var DefaultPath = "/etc/oobwatch/oobwatch.json"

// Load reads, defaults, and validates a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.PollInterval == "" {
		c.PollInterval = "5m"
	}
	if c.ConfirmRuns == 0 {
		c.ConfirmRuns = 2
	}
	if c.RemindAfter == "" {
		c.RemindAfter = "6h"
	}
	if c.StateDB == "" {
		c.StateDB = "./oobwatch.db"
	}
	if c.AuditLog == "" {
		c.AuditLog = "./oobwatch-audit.log"
	}
	if c.AuditRetention == "" {
		c.AuditRetention = "30d"
	}
	if c.Inventory.Kind == "" {
		c.Inventory.Kind = "netbox"
	}
	if c.Inventory.SwitchSelector == "" {
		c.Inventory.SwitchSelector = "role:switch"
	}
	if c.FDB.Source == "" {
		c.FDB.Source = "snmp"
	}
	if c.FDB.Parallel == 0 {
		c.FDB.Parallel = 8
	}
	if c.FDB.SNMP.Community == "" {
		c.FDB.SNMP.Community = "public"
	}
	if c.FDB.SNMP.Version == "" {
		c.FDB.SNMP.Version = "2c"
	}
	if c.FDB.SNMP.Port == 0 {
		c.FDB.SNMP.Port = 161
	}
	if c.FDB.SNMP.Timeout == "" {
		c.FDB.SNMP.Timeout = "5s"
	}
	if c.FDB.SNMP.Retries == 0 {
		c.FDB.SNMP.Retries = 2
	}
	if c.FDB.SONiC.Port == 0 {
		c.FDB.SONiC.Port = 6379
	}
	if c.FDB.SONiC.DB == 0 {
		c.FDB.SONiC.DB = 6
	}
	if c.FDB.SSH.Port == 0 {
		c.FDB.SSH.Port = 22
	}
	if c.FDB.SSH.Command == "" {
		c.FDB.SSH.Command = "show mac address-table"
	}
	if c.FDB.SSH.Timeout == "" {
		c.FDB.SSH.Timeout = "10s"
	}
	if c.Alerting.MoveTag == "" {
		c.Alerting.MoveTag = "oob-moved"
	}
}

var selectorRe = regexp.MustCompile(`^(role|tag|site):\S+$`)

func (c *Config) validate() error {
	var v util.ValidationBuilder

	for name, field := range map[string]string{
		"poll_interval":   c.PollInterval,
		"remind_after":    c.RemindAfter,
		"audit_retention": c.AuditRetention,
		"fdb.snmp.timeout": c.FDB.SNMP.Timeout,
		"fdb.ssh.timeout":  c.FDB.SSH.Timeout,
	} {
		if _, err := util.ParseDuration(field); err != nil {
			v.AddErrorf("%s: %v", name, err)
		}
	}

	v.Add(c.ConfirmRuns >= 1, "confirm_runs must be at least 1")
	v.Add(c.FDB.Parallel >= 1, "fdb.parallel must be at least 1")

	switch c.Inventory.Kind {
	case "netbox":
		v.Add(c.Inventory.URL != "", "inventory.url is required for the netbox provider")
		v.Add(selectorRe.MatchString(c.Inventory.SwitchSelector),
			fmt.Sprintf("inventory.switch_selector %q must be 'role:X', 'tag:Y' or 'site:Z'", c.Inventory.SwitchSelector))
	case "static":
		v.Add(c.Inventory.StaticFile != "", "inventory.static_file is required for the static provider")
	default:
		v.AddErrorf("inventory.kind %q must be 'netbox' or 'static'", c.Inventory.Kind)
	}

	validSource := func(s string) bool { return s == "snmp" || s == "sonic" || s == "ssh" }
	v.Add(validSource(c.FDB.Source),
		fmt.Sprintf("fdb.source %q must be 'snmp', 'sonic' or 'ssh'", c.FDB.Source))
	for sw, src := range c.FDB.Overrides {
		v.Add(validSource(src), fmt.Sprintf("fdb.overrides[%s]: unknown source %q", sw, src))
	}
	switch c.FDB.SNMP.Version {
	case "1", "2c":
	default:
		v.AddErrorf("fdb.snmp.version %q must be '1' or '2c'", c.FDB.SNMP.Version)
	}

	for sw, ports := range c.Uplinks.Ports {
		for _, p := range ports {
			if _, err := util.ExpandPortRange(p); err != nil {
				v.AddErrorf("uplinks.ports[%s]: %v", sw, err)
			}
		}
	}
	for _, pat := range c.Uplinks.Patterns {
		if _, err := regexp.Compile("(?i)" + pat); err != nil {
			v.AddErrorf("uplinks.patterns %q: %v", pat, err)
		}
	}

	for name, group := range c.MLAG {
		if group == nil || len(group.Members) < 2 {
			v.AddErrorf("mlag_groups[%s] needs at least two members", name)
		}
	}

	return v.Build()
}
