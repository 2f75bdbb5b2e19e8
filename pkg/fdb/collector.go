// Package fdb collects switch MAC-address tables over SNMP, SONiC
// Redis STATE_DB, or an SSH CLI scrape, and merges them into one
// per-cycle snapshot.
package fdb

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// Collector reads one switch's forwarding database.
type Collector interface {
	// Collect returns all FDB entries of the switch. Entries carry the
	// switch name and normalized MACs.
	Collect(ctx context.Context, sw model.Switch) ([]model.FDBEntry, error)
}

// Selector picks the collector for a switch: the per-switch override if
// present, otherwise the default source.
type Selector struct {
	collectors map[string]Collector
	defaultSrc string
	overrides  map[string]string
	parallel   int
}

// NewSelector builds the collector set from the configuration.
func NewSelector(cfg *spec.FDBSpec) (*Selector, error) {
	snmp, err := NewSNMPCollector(&cfg.SNMP)
	if err != nil {
		return nil, err
	}
	ssh, err := NewSSHCollector(&cfg.SSH)
	if err != nil {
		return nil, err
	}
	s := &Selector{
		collectors: map[string]Collector{
			"snmp":  snmp,
			"sonic": NewSONiCCollector(&cfg.SONiC),
			"ssh":   ssh,
		},
		defaultSrc: cfg.Source,
		overrides:  cfg.Overrides,
		parallel:   cfg.Parallel,
	}
	if _, ok := s.collectors[s.defaultSrc]; !ok {
		return nil, fmt.Errorf("unknown FDB source %q: %w", cfg.Source, util.ErrInvalidConfig)
	}
	for sw, src := range cfg.Overrides {
		if _, ok := s.collectors[src]; !ok {
			return nil, fmt.Errorf("unknown FDB source %q for switch %s: %w", src, sw, util.ErrInvalidConfig)
		}
	}
	return s, nil
}

// For returns the collector serving the given switch.
func (s *Selector) For(sw model.Switch) Collector {
	if src, ok := s.overrides[sw.Name]; ok {
		return s.collectors[src]
	}
	return s.collectors[s.defaultSrc]
}

// Parallel returns the configured fan-out width.
func (s *Selector) Parallel() int {
	if s.parallel <= 0 {
		return 1
	}
	return s.parallel
}

// CollectAll fans out over all switches with a bounded worker pool and
// merges the results into one snapshot. A failed switch is recorded in
// the snapshot's Failed list and contributes no entries; it never fails
// the whole collection.
func CollectAll(ctx context.Context, sel *Selector, switches []model.Switch) *model.FDBSnapshot {
	type result struct {
		sw      string
		entries []model.FDBEntry
		err     error
	}

	sem := make(chan struct{}, sel.Parallel())
	results := make(chan result, len(switches))
	var wg sync.WaitGroup

	for _, sw := range switches {
		wg.Add(1)
		go func(sw model.Switch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			entries, err := sel.For(sw).Collect(ctx, sw)
			results <- result{sw: sw.Name, entries: entries, err: err}
		}(sw)
	}
	wg.Wait()
	close(results)

	snap := model.NewFDBSnapshot()
	for r := range results {
		if r.err != nil {
			util.WithSwitch(r.sw).Warnf("FDB collection failed: %v", r.err)
			snap.Failed = append(snap.Failed, r.sw)
			continue
		}
		snap.Switches = append(snap.Switches, r.sw)
		for _, e := range r.entries {
			snap.Add(e)
		}
		util.WithSwitch(r.sw).Debugf("collected %d FDB entries", len(r.entries))
	}
	sort.Strings(snap.Switches)
	sort.Strings(snap.Failed)
	return snap
}
