// Package resolve classifies where each monitored MAC is actually seen
// versus where the inventory expects it. Resolution is a pure function of
// the two per-cycle snapshots; it performs no I/O and holds no state.
package resolve

import (
	"regexp"
	"strings"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// Resolver holds the compiled uplink and MLAG policy.
type Resolver struct {
	uplinkPorts map[string]map[string]bool // switch (lower) → normalized port set
	patterns    []*regexp.Regexp
	groups      map[string]*spec.MLAGGroup // member switch (lower) → group
}

// New compiles the uplink and MLAG policy from configuration.
// Assumes the config passed validation.
func New(cfg *spec.Config) (*Resolver, error) {
	r := &Resolver{
		uplinkPorts: make(map[string]map[string]bool),
		groups:      make(map[string]*spec.MLAGGroup),
	}

	for sw, specs := range cfg.Uplinks.Ports {
		ports := make(map[string]bool)
		for _, s := range specs {
			expanded, err := util.ExpandPortRange(s)
			if err != nil {
				return nil, err
			}
			for _, p := range expanded {
				ports[util.NormalizePortName(p)] = true
			}
		}
		r.uplinkPorts[strings.ToLower(sw)] = ports
	}

	for _, pat := range cfg.Uplinks.Patterns {
		re, err := regexp.Compile("(?i)" + pat)
		if err != nil {
			return nil, err
		}
		r.patterns = append(r.patterns, re)
	}

	for _, group := range cfg.MLAG {
		for _, member := range group.Members {
			r.groups[strings.ToLower(member)] = group
		}
	}

	return r, nil
}

// Resolve matches every managed interface's MAC against the FDB snapshot
// and returns a classified observation per interface identity.
func (r *Resolver) Resolve(snap *model.FDBSnapshot, ifaces []model.ManagedInterface) map[string]model.ResolvedObservation {
	result := make(map[string]model.ResolvedObservation, len(ifaces))
	for i := range ifaces {
		result[ifaces[i].ID()] = r.resolveOne(snap, &ifaces[i])
	}
	return result
}

func (r *Resolver) resolveOne(snap *model.FDBSnapshot, iface *model.ManagedInterface) model.ResolvedObservation {
	entries := snap.Lookup(iface.MAC)
	if len(entries) == 0 {
		return model.ResolvedObservation{Status: model.ObservationNotFound}
	}

	chosen := r.selectObservation(iface, entries)

	obs := model.ResolvedObservation{
		Observed: chosen.Endpoint(),
		VLAN:     chosen.VLAN,
	}

	switch {
	case matchesEndpoint(chosen, iface.Expected):
		// An exact expected match wins even when the port also matches
		// the uplink policy, so a confirmed alert can still clear.
		obs.Status = model.ObservationOK
	case r.isMLAGPeerMatch(chosen, iface):
		obs.Status = model.ObservationOKMLAGPeer
	case r.isUplink(chosen):
		// Uplinks carry many downstream MACs; presence there can never
		// represent a direct attach, so this overrides a mismatch.
		obs.Status = model.ObservationSuspectUplink
	default:
		obs.Status = model.ObservationMoved
	}
	return obs
}

// selectObservation picks the best entry when a MAC is reported more than
// once (flap within the cycle, stale aging entries).
//
// Priority: non-uplink entries over uplink-only; the expected switch over
// other reporters; on the expected switch, a port other than the expected
// one (when the MAC sits on both old and new port, the new port is the
// live one); otherwise the most recent observation.
func (r *Resolver) selectObservation(iface *model.ManagedInterface, entries []model.FDBEntry) *model.FDBEntry {
	candidates := make([]*model.FDBEntry, 0, len(entries))
	for i := range entries {
		if !r.isUplink(&entries[i]) {
			candidates = append(candidates, &entries[i])
		}
	}
	if len(candidates) == 0 {
		for i := range entries {
			candidates = append(candidates, &entries[i])
		}
	}
	if len(candidates) == 1 {
		return candidates[0]
	}

	var onExpected []*model.FDBEntry
	for _, e := range candidates {
		if strings.EqualFold(e.Switch, iface.Expected.Switch) {
			onExpected = append(onExpected, e)
		}
	}
	if len(onExpected) == 1 {
		return onExpected[0]
	}
	if len(onExpected) > 1 {
		expectedPort := util.NormalizePortName(iface.Expected.Port)
		for _, e := range onExpected {
			if util.NormalizePortName(e.Port) != expectedPort {
				return e
			}
		}
		return onExpected[0]
	}

	best := candidates[0]
	for _, e := range candidates[1:] {
		if e.ObservedAt.After(best.ObservedAt) {
			best = e
		}
	}
	return best
}

func (r *Resolver) isUplink(e *model.FDBEntry) bool {
	if e.Role == model.PortRoleUplink {
		return true
	}
	if ports, ok := r.uplinkPorts[strings.ToLower(e.Switch)]; ok {
		if ports[util.NormalizePortName(e.Port)] {
			return true
		}
	}
	for _, re := range r.patterns {
		if re.MatchString(e.Port) {
			return true
		}
	}
	return false
}

// isMLAGPeerMatch reports whether the entry sits on an acceptable MLAG peer
// of the expected switch. Peer relationships come from the configured
// groups, with the inventory's per-interface hint honored as well.
func (r *Resolver) isMLAGPeerMatch(e *model.FDBEntry, iface *model.ManagedInterface) bool {
	if strings.EqualFold(e.Switch, iface.Expected.Switch) {
		return false
	}

	group := r.groups[strings.ToLower(iface.Expected.Switch)]
	isPeer := iface.MLAGPeer != "" && strings.EqualFold(e.Switch, iface.MLAGPeer)
	if !isPeer && group != nil {
		for _, member := range group.Members {
			if strings.EqualFold(e.Switch, member) {
				isPeer = true
				break
			}
		}
	}
	if !isPeer {
		return false
	}

	if group != nil && !group.MatchPortsEnabled() {
		return true
	}

	expectedPort := iface.Expected.Port
	if group != nil {
		if mapped, ok := group.PortMap[expectedPort]; ok {
			expectedPort = mapped
		}
	}
	return util.NormalizePortName(e.Port) == util.NormalizePortName(expectedPort)
}

func matchesEndpoint(e *model.FDBEntry, expected model.Endpoint) bool {
	return strings.EqualFold(e.Switch, expected.Switch) &&
		util.NormalizePortName(e.Port) == util.NormalizePortName(expected.Port)
}
