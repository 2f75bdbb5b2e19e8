package fdb

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// SONiCCollector reads FDB_TABLE from a SONiC switch's STATE_DB
// (Redis DB 6). Keys look like "FDB_TABLE|Vlan100:aa:bb:cc:dd:ee:ff",
// the hash carries port/type and, for EVPN-learned MACs, the remote VTEP.
type SONiCCollector struct {
	cfg *spec.SONiCSpec

	// newClient is swapped in tests for a miniredis-free fake.
	newClient func(addr string) *redis.Client
}

// NewSONiCCollector creates the STATE_DB collector.
func NewSONiCCollector(cfg *spec.SONiCSpec) *SONiCCollector {
	return &SONiCCollector{
		cfg: cfg,
		newClient: func(addr string) *redis.Client {
			return redis.NewClient(&redis.Options{
				Addr: addr,
				DB:   cfg.DB,
			})
		},
	}
}

// Collect scans FDB_TABLE and returns one entry per learned MAC.
// Entries with a remote VTEP are marked uplink: the MAC is behind a
// VXLAN tunnel, not locally attached.
func (c *SONiCCollector) Collect(ctx context.Context, sw model.Switch) ([]model.FDBEntry, error) {
	client := c.newClient(fmt.Sprintf("%s:%d", sw.MgmtIP, c.cfg.Port))
	defer client.Close()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, util.NewProviderError("sonic", sw.Name, err)
	}

	keys, err := scanKeys(ctx, client, "FDB_TABLE|*", 1000)
	if err != nil {
		return nil, util.NewProviderError("sonic", sw.Name, err)
	}

	now := time.Now().UTC()
	var entries []model.FDBEntry
	for _, key := range keys {
		vlan, mac, ok := parseFDBKey(key)
		if !ok {
			continue
		}
		vals, err := client.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, util.NewProviderError("sonic", sw.Name, err)
		}
		port := vals["port"]
		if port == "" {
			continue
		}
		entry := model.FDBEntry{
			Switch:     sw.Name,
			MAC:        mac,
			Port:       port,
			VLAN:       vlan,
			ObservedAt: now,
		}
		if vals["remote_vtep"] != "" {
			entry.Role = model.PortRoleUplink
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// parseFDBKey splits "FDB_TABLE|Vlan100:aa:bb:cc:dd:ee:ff" into the VLAN
// number and the normalized MAC.
func parseFDBKey(key string) (vlan int, mac string, ok bool) {
	_, rest, found := strings.Cut(key, "|")
	if !found {
		return 0, "", false
	}
	vlanPart, macPart, found := strings.Cut(rest, ":")
	if !found {
		return 0, "", false
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(vlanPart, "Vlan")); err == nil {
		vlan = n
	}
	mac, err := util.NormalizeMAC(macPart)
	if err != nil {
		return 0, "", false
	}
	return vlan, mac, true
}

// scanKeys iterates keys matching a pattern with cursor-based SCAN,
// avoiding KEYS on potentially large databases.
func scanKeys(ctx context.Context, client *redis.Client, pattern string, countHint int64) ([]string, error) {
	var keys []string
	var cursor uint64
	for {
		batch, next, err := client.Scan(ctx, cursor, pattern, countHint).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			return keys, nil
		}
	}
}
