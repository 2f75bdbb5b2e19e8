package fdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// Standard MIB OIDs for the MAC address table.
const (
	oidDot1dTpFdbAddress    = "1.3.6.1.2.1.17.4.3.1.1" // BRIDGE-MIB MAC addresses
	oidDot1dTpFdbPort       = "1.3.6.1.2.1.17.4.3.1.2" // BRIDGE-MIB bridge port per MAC
	oidDot1dBasePortIfIndex = "1.3.6.1.2.1.17.1.4.1.2" // bridge port -> ifIndex
	oidIfName               = "1.3.6.1.2.1.31.1.1.1.1"
	oidIfDescr              = "1.3.6.1.2.1.2.2.1.2"
	oidDot1qTpFdbPort       = "1.3.6.1.2.1.17.7.1.2.2.1.2" // Q-BRIDGE-MIB, VLAN-aware
)

// snmpConn is the slice of gosnmp.Handler the collector needs. Narrowed
// for test fakes.
type snmpConn interface {
	Connect() error
	Close() error
	WalkAll(rootOid string) ([]gosnmp.SnmpPDU, error)
	BulkWalkAll(rootOid string) ([]gosnmp.SnmpPDU, error)
	Version() gosnmp.SnmpVersion
}

// SNMPCollector walks BRIDGE-MIB / Q-BRIDGE-MIB to read a switch's FDB.
type SNMPCollector struct {
	cfg  *spec.SNMPSpec
	dial func(sw model.Switch) (snmpConn, error)
}

// NewSNMPCollector creates the SNMP collector.
func NewSNMPCollector(cfg *spec.SNMPSpec) (*SNMPCollector, error) {
	var version gosnmp.SnmpVersion
	switch cfg.Version {
	case "1":
		version = gosnmp.Version1
	case "", "2c":
		version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("unsupported SNMP version %q: %w", cfg.Version, util.ErrInvalidConfig)
	}

	c := &SNMPCollector{cfg: cfg}
	c.dial = func(sw model.Switch) (snmpConn, error) {
		h := gosnmp.NewHandler()
		h.SetTarget(sw.MgmtIP)
		h.SetPort(uint16(cfg.Port))
		h.SetCommunity(cfg.Community)
		h.SetVersion(version)
		h.SetTimeout(cfg.TimeoutDuration())
		h.SetRetries(cfg.Retries)
		h.SetMaxRepetitions(50)
		if err := h.Connect(); err != nil {
			return nil, err
		}
		return h, nil
	}
	return c, nil
}

// Collect walks the switch's FDB. Q-BRIDGE-MIB is tried first for
// VLAN-aware entries; switches that only speak BRIDGE-MIB fall back to
// the flat table.
func (c *SNMPCollector) Collect(ctx context.Context, sw model.Switch) ([]model.FDBEntry, error) {
	conn, err := c.dial(sw)
	if err != nil {
		return nil, util.NewProviderError("snmp", sw.Name, err)
	}
	defer conn.Close()

	ifNames, err := c.interfaceNames(conn)
	if err != nil {
		return nil, util.NewProviderError("snmp", sw.Name, err)
	}
	bridgePorts, err := c.bridgePortMapping(conn)
	if err != nil {
		return nil, util.NewProviderError("snmp", sw.Name, err)
	}

	now := time.Now().UTC()

	qbridge, err := walk(conn, oidDot1qTpFdbPort)
	if err != nil {
		return nil, util.NewProviderError("snmp", sw.Name, err)
	}
	if len(qbridge) > 0 {
		return c.parseQBridge(sw.Name, qbridge, bridgePorts, ifNames, now), nil
	}

	ports, err := walk(conn, oidDot1dTpFdbPort)
	if err != nil {
		return nil, util.NewProviderError("snmp", sw.Name, err)
	}
	macs, err := walk(conn, oidDot1dTpFdbAddress)
	if err != nil {
		return nil, util.NewProviderError("snmp", sw.Name, err)
	}
	return c.parseBridge(sw.Name, ports, macs, bridgePorts, ifNames, now), nil
}

// parseQBridge decodes dot1qTpFdbPort rows. The OID suffix is
// "<vlan>.<6 MAC octets>", the value is the bridge port.
func (c *SNMPCollector) parseQBridge(sw string, rows map[string]interface{},
	bridgePorts map[int]int, ifNames map[int]string, now time.Time) []model.FDBEntry {

	var entries []model.FDBEntry
	for suffix, val := range rows {
		parts := strings.Split(suffix, ".")
		if len(parts) < 7 {
			continue
		}
		vlan, err := strconv.Atoi(parts[0])
		if err != nil {
			continue
		}
		mac, ok := macFromOIDParts(parts[1:7])
		if !ok {
			continue
		}
		bridgePort, ok := toInt(val)
		if !ok {
			continue
		}
		entries = append(entries, model.FDBEntry{
			Switch:     sw,
			MAC:        mac,
			Port:       portName(bridgePort, bridgePorts, ifNames),
			VLAN:       vlan,
			ObservedAt: now,
		})
	}
	return entries
}

// parseBridge decodes the flat dot1dTpFdb table: the port row's value is
// the bridge port, the address row (same suffix) carries the MAC octets.
func (c *SNMPCollector) parseBridge(sw string, ports, macs map[string]interface{},
	bridgePorts map[int]int, ifNames map[int]string, now time.Time) []model.FDBEntry {

	var entries []model.FDBEntry
	for suffix, portVal := range ports {
		raw, ok := macs[suffix].([]byte)
		if !ok {
			// Some agents omit the address column; the suffix itself is
			// the MAC in decimal-dotted form.
			mac, decoded := macFromOIDParts(strings.Split(suffix, "."))
			if !decoded {
				continue
			}
			bridgePort, ok := toInt(portVal)
			if !ok {
				continue
			}
			entries = append(entries, model.FDBEntry{
				Switch:     sw,
				MAC:        mac,
				Port:       portName(bridgePort, bridgePorts, ifNames),
				ObservedAt: now,
			})
			continue
		}
		mac, err := util.MACFromBytes(raw)
		if err != nil {
			continue
		}
		bridgePort, ok := toInt(portVal)
		if !ok {
			continue
		}
		entries = append(entries, model.FDBEntry{
			Switch:     sw,
			MAC:        mac,
			Port:       portName(bridgePort, bridgePorts, ifNames),
			ObservedAt: now,
		})
	}
	return entries
}

// interfaceNames maps ifIndex to name, preferring ifName over ifDescr.
func (c *SNMPCollector) interfaceNames(conn snmpConn) (map[int]string, error) {
	names, err := walk(conn, oidIfName)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names, err = walk(conn, oidIfDescr)
		if err != nil {
			return nil, err
		}
	}
	out := make(map[int]string, len(names))
	for suffix, val := range names {
		idx, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		switch v := val.(type) {
		case string:
			out[idx] = v
		case []byte:
			out[idx] = string(v)
		}
	}
	return out, nil
}

func (c *SNMPCollector) bridgePortMapping(conn snmpConn) (map[int]int, error) {
	rows, err := walk(conn, oidDot1dBasePortIfIndex)
	if err != nil {
		return nil, err
	}
	out := make(map[int]int, len(rows))
	for suffix, val := range rows {
		bridgePort, err := strconv.Atoi(suffix)
		if err != nil {
			continue
		}
		if ifIndex, ok := toInt(val); ok {
			out[bridgePort] = ifIndex
		}
	}
	return out, nil
}

// walk returns OID-suffix -> value for the subtree under root.
func walk(conn snmpConn, root string) (map[string]interface{}, error) {
	var pdus []gosnmp.SnmpPDU
	var err error
	if conn.Version() == gosnmp.Version1 {
		pdus, err = conn.WalkAll(root)
	} else {
		pdus, err = conn.BulkWalkAll(root)
	}
	if err != nil {
		return nil, err
	}

	out := make(map[string]interface{}, len(pdus))
	prefix := "." + root + "."
	for _, pdu := range pdus {
		name := pdu.Name
		if !strings.HasPrefix(name, ".") {
			name = "." + name
		}
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		out[strings.TrimPrefix(name, prefix)] = pdu.Value
	}
	return out, nil
}

func portName(bridgePort int, bridgePorts map[int]int, ifNames map[int]string) string {
	ifIndex, ok := bridgePorts[bridgePort]
	if !ok {
		ifIndex = bridgePort
	}
	if name, ok := ifNames[ifIndex]; ok {
		return name
	}
	return fmt.Sprintf("port%d", bridgePort)
}

func macFromOIDParts(parts []string) (string, bool) {
	if len(parts) != 6 {
		return "", false
	}
	b := make([]byte, 6)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 || n > 255 {
			return "", false
		}
		b[i] = byte(n)
	}
	mac, err := util.MACFromBytes(b)
	if err != nil {
		return "", false
	}
	return mac, true
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case uint:
		return int(n), true
	case int64:
		return int(n), true
	case uint64:
		return int(n), true
	case uint32:
		return int(n), true
	case int32:
		return int(n), true
	default:
		return 0, false
	}
}
