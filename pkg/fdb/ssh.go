package fdb

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// SSHCollector scrapes "show mac address-table" output over SSH for
// switches that expose neither SNMP nor STATE_DB.
type SSHCollector struct {
	cfg  *spec.SSHSpec
	auth []ssh.AuthMethod

	// exec is swapped in tests; the default dials and runs cfg.Command.
	exec func(ctx context.Context, sw model.Switch) (string, error)
}

// NewSSHCollector creates the CLI-scrape collector. Key auth is
// preferred; the password env var is the fallback.
func NewSSHCollector(cfg *spec.SSHSpec) (*SSHCollector, error) {
	c := &SSHCollector{cfg: cfg}

	if cfg.KeyFile != "" {
		data, err := os.ReadFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("reading SSH key %s: %w", cfg.KeyFile, err)
		}
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parsing SSH key %s: %w", cfg.KeyFile, err)
		}
		c.auth = append(c.auth, ssh.PublicKeys(signer))
	}
	if cfg.PasswordEnv != "" {
		if pass := os.Getenv(cfg.PasswordEnv); pass != "" {
			c.auth = append(c.auth, ssh.Password(pass))
		}
	}

	c.exec = c.run
	return c, nil
}

// Collect runs the MAC-table command on the switch and parses its output.
func (c *SSHCollector) Collect(ctx context.Context, sw model.Switch) ([]model.FDBEntry, error) {
	output, err := c.exec(ctx, sw)
	if err != nil {
		return nil, util.NewProviderError("ssh", sw.Name, err)
	}
	return ParseMACTable(sw.Name, output, time.Now().UTC()), nil
}

func (c *SSHCollector) run(ctx context.Context, sw model.Switch) (string, error) {
	if len(c.auth) == 0 {
		return "", fmt.Errorf("no SSH auth configured (key_file or password_env): %w", util.ErrInvalidConfig)
	}

	config := &ssh.ClientConfig{
		User: c.cfg.User,
		Auth: c.auth,
		// Switch fleets rotate host keys on reimage; pinning them here
		// would wedge collection. The management network is assumed closed.
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.cfg.TimeoutDuration(),
	}

	addr := fmt.Sprintf("%s:%d", sw.MgmtIP, c.cfg.Port)
	client, err := ssh.Dial("tcp", addr, config)
	if err != nil {
		return "", fmt.Errorf("SSH dial %s@%s: %w", c.cfg.User, addr, err)
	}
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("SSH session: %w", err)
	}
	defer session.Close()

	type result struct {
		out []byte
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := session.CombinedOutput(c.cfg.Command)
		done <- result{out, err}
	}()

	select {
	case <-ctx.Done():
		session.Close()
		return "", ctx.Err()
	case r := <-done:
		if r.err != nil {
			return "", fmt.Errorf("SSH exec %q: %w", c.cfg.Command, r.err)
		}
		return string(r.out), nil
	}
}

// entryTypeWords are MAC-table type column values, skipped when looking
// for the port field.
var entryTypeWords = map[string]bool{
	"dynamic": true, "static": true, "secure": true, "sticky": true,
}

// ParseMACTable extracts FDB entries from "show mac address-table"
// output. Tolerates the common layouts (SONiC, Cisco IOS, Arista): any
// line with a recognizable MAC field becomes an entry; the port is the
// first field after the MAC that is not a type keyword, a leading
// integer field the VLAN.
func ParseMACTable(sw, output string, now time.Time) []model.FDBEntry {
	var entries []model.FDBEntry
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}

		macIdx := -1
		var mac string
		for i, f := range fields {
			if !looksLikeMAC(f) {
				continue
			}
			if m, err := util.NormalizeMAC(f); err == nil {
				macIdx, mac = i, m
				break
			}
		}
		if macIdx < 0 {
			continue
		}

		port := ""
		for _, f := range fields[macIdx+1:] {
			if entryTypeWords[strings.ToLower(f)] {
				continue
			}
			port = f
			break
		}
		if port == "" {
			continue
		}

		entry := model.FDBEntry{
			Switch:     sw,
			MAC:        mac,
			Port:       port,
			ObservedAt: now,
		}
		// VLAN column sits directly left of the MAC in every layout seen.
		if macIdx > 0 {
			if vlan, err := strconv.Atoi(fields[macIdx-1]); err == nil {
				entry.VLAN = vlan
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

// looksLikeMAC filters out plain numbers and words before the costlier
// normalization: a MAC field has 12 hex digits plus separators.
func looksLikeMAC(s string) bool {
	hex := 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
			hex++
		case r == ':' || r == '-' || r == '.':
		default:
			return false
		}
	}
	return hex == 12 && len(s) > 12
}
