package fdb

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
)

// fakeCollector returns canned entries or an error per switch name.
type fakeCollector struct {
	entries map[string][]model.FDBEntry
	errs    map[string]error
}

func (f *fakeCollector) Collect(ctx context.Context, sw model.Switch) ([]model.FDBEntry, error) {
	if err := f.errs[sw.Name]; err != nil {
		return nil, err
	}
	return f.entries[sw.Name], nil
}

func TestCollectAll(t *testing.T) {
	now := time.Now().UTC()
	fake := &fakeCollector{
		entries: map[string][]model.FDBEntry{
			"sw1": {
				{Switch: "sw1", MAC: "aa:bb:cc:dd:ee:01", Port: "Ethernet12", VLAN: 100, ObservedAt: now},
				{Switch: "sw1", MAC: "aa:bb:cc:dd:ee:02", Port: "Ethernet13", VLAN: 100, ObservedAt: now},
			},
			"sw2": {
				{Switch: "sw2", MAC: "aa:bb:cc:dd:ee:01", Port: "Ethernet48", VLAN: 100, ObservedAt: now},
			},
		},
		errs: map[string]error{
			"sw3": errors.New("timeout"),
		},
	}
	sel := &Selector{
		collectors: map[string]Collector{"fake": fake},
		defaultSrc: "fake",
		parallel:   2,
	}

	snap := CollectAll(context.Background(), sel, []model.Switch{
		{Name: "sw1"}, {Name: "sw2"}, {Name: "sw3"},
	})

	if snap.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", snap.Len())
	}
	if len(snap.Lookup("aa:bb:cc:dd:ee:01")) != 2 {
		t.Errorf("expected MAC seen on 2 switches, got %d", len(snap.Lookup("aa:bb:cc:dd:ee:01")))
	}
	if len(snap.Switches) != 2 {
		t.Errorf("expected 2 successful switches, got %v", snap.Switches)
	}
	if len(snap.Failed) != 1 || snap.Failed[0] != "sw3" {
		t.Errorf("expected sw3 in failed list, got %v", snap.Failed)
	}
}

func TestSelectorOverrides(t *testing.T) {
	a := &fakeCollector{}
	b := &fakeCollector{}
	sel := &Selector{
		collectors: map[string]Collector{"a": a, "b": b},
		defaultSrc: "a",
		overrides:  map[string]string{"special": "b"},
	}

	if sel.For(model.Switch{Name: "normal"}) != Collector(a) {
		t.Error("expected default collector")
	}
	if sel.For(model.Switch{Name: "special"}) != Collector(b) {
		t.Error("expected override collector")
	}
}

func TestNewSelectorRejectsUnknownSource(t *testing.T) {
	_, err := NewSelector(&spec.FDBSpec{Source: "telnet", Parallel: 2})
	if err == nil {
		t.Error("expected error for unknown source")
	}
}

// fakeSNMP implements snmpConn with canned walk results per root OID.
type fakeSNMP struct {
	pdus    map[string][]gosnmp.SnmpPDU
	version gosnmp.SnmpVersion
}

func (f *fakeSNMP) Connect() error              { return nil }
func (f *fakeSNMP) Close() error                { return nil }
func (f *fakeSNMP) Version() gosnmp.SnmpVersion { return f.version }
func (f *fakeSNMP) WalkAll(root string) ([]gosnmp.SnmpPDU, error) {
	return f.pdus[root], nil
}
func (f *fakeSNMP) BulkWalkAll(root string) ([]gosnmp.SnmpPDU, error) {
	return f.pdus[root], nil
}

func pdu(oid string, val interface{}) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: "." + oid, Value: val}
}

func newSNMPForTest(t *testing.T, conn snmpConn) *SNMPCollector {
	t.Helper()
	c, err := NewSNMPCollector(&spec.SNMPSpec{Community: "public", Version: "2c", Port: 161, Timeout: "1s"})
	if err != nil {
		t.Fatalf("NewSNMPCollector: %v", err)
	}
	c.dial = func(model.Switch) (snmpConn, error) { return conn, nil }
	return c
}

func TestSNMPCollectQBridge(t *testing.T) {
	conn := &fakeSNMP{
		version: gosnmp.Version2c,
		pdus: map[string][]gosnmp.SnmpPDU{
			oidIfName: {
				pdu(oidIfName+".1001", []byte("Ethernet12")),
				pdu(oidIfName+".1002", []byte("Ethernet48")),
			},
			oidDot1dBasePortIfIndex: {
				pdu(oidDot1dBasePortIfIndex+".1", 1001),
				pdu(oidDot1dBasePortIfIndex+".2", 1002),
			},
			oidDot1qTpFdbPort: {
				// VLAN 100, aa:bb:cc:dd:ee:01 on bridge port 1
				pdu(oidDot1qTpFdbPort+".100.170.187.204.221.238.1", 1),
				// VLAN 200, aa:bb:cc:dd:ee:02 on bridge port 2
				pdu(oidDot1qTpFdbPort+".200.170.187.204.221.238.2", 2),
			},
		},
	}

	entries, err := newSNMPForTest(t, conn).Collect(context.Background(), model.Switch{Name: "sw1", MgmtIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	byMAC := map[string]model.FDBEntry{}
	for _, e := range entries {
		byMAC[e.MAC] = e
	}
	e1 := byMAC["aa:bb:cc:dd:ee:01"]
	if e1.Port != "Ethernet12" || e1.VLAN != 100 {
		t.Errorf("unexpected entry %+v", e1)
	}
	e2 := byMAC["aa:bb:cc:dd:ee:02"]
	if e2.Port != "Ethernet48" || e2.VLAN != 200 {
		t.Errorf("unexpected entry %+v", e2)
	}
}

func TestSNMPCollectBridgeFallback(t *testing.T) {
	suffix := "170.187.204.221.238.3"
	conn := &fakeSNMP{
		version: gosnmp.Version2c,
		pdus: map[string][]gosnmp.SnmpPDU{
			oidIfName: {
				pdu(oidIfName+".2001", []byte("ge-0/0/5")),
			},
			oidDot1dBasePortIfIndex: {
				pdu(oidDot1dBasePortIfIndex+".5", 2001),
			},
			// No Q-BRIDGE rows: collector must fall back to BRIDGE-MIB.
			oidDot1dTpFdbPort: {
				pdu(oidDot1dTpFdbPort+"."+suffix, 5),
			},
			oidDot1dTpFdbAddress: {
				pdu(oidDot1dTpFdbAddress+"."+suffix, []byte{0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0x03}),
			},
		},
	}

	entries, err := newSNMPForTest(t, conn).Collect(context.Background(), model.Switch{Name: "sw1", MgmtIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].MAC != "aa:bb:cc:dd:ee:03" || entries[0].Port != "ge-0/0/5" {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	if entries[0].VLAN != 0 {
		t.Errorf("BRIDGE-MIB entries carry no VLAN, got %d", entries[0].VLAN)
	}
}

func TestSNMPUnknownPortFallsBackToBridgeIndex(t *testing.T) {
	conn := &fakeSNMP{
		version: gosnmp.Version2c,
		pdus: map[string][]gosnmp.SnmpPDU{
			oidDot1qTpFdbPort: {
				pdu(oidDot1qTpFdbPort+".100.170.187.204.221.238.1", 9),
			},
		},
	}

	entries, err := newSNMPForTest(t, conn).Collect(context.Background(), model.Switch{Name: "sw1"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(entries) != 1 || entries[0].Port != "port9" {
		t.Errorf("expected synthesized port name, got %+v", entries)
	}
}

func TestParseFDBKey(t *testing.T) {
	tests := []struct {
		key  string
		vlan int
		mac  string
		ok   bool
	}{
		{"FDB_TABLE|Vlan100:aa:bb:cc:dd:ee:01", 100, "aa:bb:cc:dd:ee:01", true},
		{"FDB_TABLE|Vlan4094:AA:BB:CC:DD:EE:FF", 4094, "aa:bb:cc:dd:ee:ff", true},
		{"FDB_TABLE|Vlan100", 0, "", false},
		{"FDB_TABLE", 0, "", false},
		{"FDB_TABLE|Vlan100:not-a-mac", 0, "", false},
	}

	for _, tt := range tests {
		vlan, mac, ok := parseFDBKey(tt.key)
		if ok != tt.ok || vlan != tt.vlan || mac != tt.mac {
			t.Errorf("parseFDBKey(%q) = (%d, %q, %v), want (%d, %q, %v)",
				tt.key, vlan, mac, ok, tt.vlan, tt.mac, tt.ok)
		}
	}
}

func TestParseMACTable(t *testing.T) {
	now := time.Now().UTC()

	sonicOut := `
  No.    Vlan  MacAddress         Port        Type
-------  ----  -----------------  ----------  -------
      1   100  AA:BB:CC:DD:EE:01  Ethernet12  Dynamic
      2   100  AA:BB:CC:DD:EE:02  Ethernet48  Static
Total number of entries 2
`
	ciscoOut := `
          Mac Address Table
-------------------------------------------

Vlan    Mac Address       Type        Ports
----    -----------       --------    -----
 100    aabb.ccdd.ee01    DYNAMIC     Gi1/0/1
 200    aabb.ccdd.ee02    DYNAMIC     Po10
Total Mac Addresses for this criterion: 2
`

	entries := ParseMACTable("sw1", ciscoOut, now)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}
	if entries[0].MAC != "aa:bb:cc:dd:ee:01" || entries[0].Port != "Gi1/0/1" || entries[0].VLAN != 100 {
		t.Errorf("unexpected entry %+v", entries[0])
	}
	if entries[1].Port != "Po10" || entries[1].VLAN != 200 {
		t.Errorf("unexpected entry %+v", entries[1])
	}

	// SONiC layout: port column before the type column, extra "No." column.
	sonicEntries := ParseMACTable("sw1", sonicOut, now)
	if len(sonicEntries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(sonicEntries), sonicEntries)
	}
	if sonicEntries[0].Port != "Ethernet12" || sonicEntries[0].VLAN != 100 {
		t.Errorf("unexpected entry %+v", sonicEntries[0])
	}
	if sonicEntries[1].Port != "Ethernet48" {
		t.Errorf("unexpected entry %+v", sonicEntries[1])
	}

	if got := ParseMACTable("sw1", "garbage\nno macs here\n", now); len(got) != 0 {
		t.Errorf("expected no entries from garbage, got %+v", got)
	}
}

func TestSSHCollectorUsesExec(t *testing.T) {
	c, err := NewSSHCollector(&spec.SSHSpec{User: "admin", Port: 22, Command: "show mac address-table", Timeout: "5s"})
	if err != nil {
		t.Fatalf("NewSSHCollector: %v", err)
	}
	c.exec = func(ctx context.Context, sw model.Switch) (string, error) {
		return " 100    aabb.ccdd.ee01    DYNAMIC     Gi1/0/1\n", nil
	}

	entries, err := c.Collect(context.Background(), model.Switch{Name: "sw1", MgmtIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(entries) != 1 || entries[0].Switch != "sw1" {
		t.Fatalf("unexpected entries %+v", entries)
	}
}

func TestSSHCollectorError(t *testing.T) {
	c, err := NewSSHCollector(&spec.SSHSpec{User: "admin", Port: 22, Timeout: "5s"})
	if err != nil {
		t.Fatalf("NewSSHCollector: %v", err)
	}
	c.exec = func(ctx context.Context, sw model.Switch) (string, error) {
		return "", fmt.Errorf("connection refused")
	}

	if _, err := c.Collect(context.Background(), model.Switch{Name: "sw1"}); err == nil {
		t.Error("expected error")
	}
}
