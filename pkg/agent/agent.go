// Package agent runs the audit loop: fetch topology and FDB snapshots,
// resolve locations, reconcile state, dispatch alerts.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/oobwatch-network/oobwatch/pkg/fdb"
	"github.com/oobwatch-network/oobwatch/pkg/inventory"
	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/reconcile"
	"github.com/oobwatch-network/oobwatch/pkg/resolve"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// FDBSource produces one merged FDB snapshot for a switch set. The
// production implementation is the fdb.Selector fan-out.
type FDBSource interface {
	Snapshot(ctx context.Context, switches []model.Switch) *model.FDBSnapshot
}

// SelectorSource adapts fdb.Selector to FDBSource.
type SelectorSource struct {
	Selector *fdb.Selector
}

// Snapshot collects all switches' FDB tables.
func (s SelectorSource) Snapshot(ctx context.Context, switches []model.Switch) *model.FDBSnapshot {
	return fdb.CollectAll(ctx, s.Selector, switches)
}

// Agent owns one audit pipeline.
type Agent struct {
	provider inventory.Provider
	source   FDBSource
	resolver *resolve.Resolver
	engine   *reconcile.Engine
	interval time.Duration
}

// New wires the pipeline.
func New(provider inventory.Provider, source FDBSource, resolver *resolve.Resolver,
	engine *reconcile.Engine, interval time.Duration) *Agent {
	return &Agent{
		provider: provider,
		source:   source,
		resolver: resolver,
		engine:   engine,
		interval: interval,
	}
}

// RunCycle executes one audit cycle. A topology fetch failure skips the
// whole reconcile pass with all state preserved; a failed switch only
// degrades the FDB snapshot.
func (a *Agent) RunCycle(ctx context.Context) (reconcile.CycleStats, error) {
	start := time.Now()

	type topoResult struct {
		ifaces []model.ManagedInterface
		err    error
	}
	type fdbResult struct {
		snap *model.FDBSnapshot
		err  error
	}

	topoCh := make(chan topoResult, 1)
	fdbCh := make(chan fdbResult, 1)

	go func() {
		ifaces, err := a.provider.FetchInterfaces(ctx)
		topoCh <- topoResult{ifaces, err}
	}()
	go func() {
		switches, err := a.provider.FetchSwitches(ctx)
		if err != nil {
			fdbCh <- fdbResult{err: err}
			return
		}
		fdbCh <- fdbResult{snap: a.source.Snapshot(ctx, switches)}
	}()

	topo := <-topoCh
	fdbRes := <-fdbCh

	if topo.err != nil {
		return reconcile.CycleStats{}, fmt.Errorf("topology fetch: %w", topo.err)
	}
	if fdbRes.err != nil {
		return reconcile.CycleStats{}, fmt.Errorf("switch list fetch: %w", fdbRes.err)
	}

	snap := fdbRes.snap
	if len(snap.Failed) > 0 {
		util.Warnf("degraded FDB snapshot: %d/%d switches failed: %v",
			len(snap.Failed), len(snap.Failed)+len(snap.Switches), snap.Failed)
	}
	util.Debugf("snapshot: %d interfaces, %d FDB entries from %d switches",
		len(topo.ifaces), snap.Len(), len(snap.Switches))

	resolved := a.resolver.Resolve(snap, topo.ifaces)
	stats := a.engine.Reconcile(ctx, topo.ifaces, resolved, time.Now())

	util.Infof("cycle done in %s: %d interfaces, raised=%d reminded=%d cleared=%d retired=%d errors=%d",
		time.Since(start).Round(time.Millisecond), stats.Interfaces,
		stats.Raised, stats.Reminded, stats.Cleared, stats.Retired, stats.Errors)
	return stats, nil
}

// Run polls at the configured interval until the context is cancelled.
// Cycles never overlap; the in-flight cycle finishes before shutdown.
func (a *Agent) Run(ctx context.Context) error {
	util.Infof("starting audit loop (interval %s)", a.interval)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		if _, err := a.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			// Transient by taxonomy: state preserved, retry next tick.
			util.Errorf("cycle skipped: %v", err)
		}

		select {
		case <-ctx.Done():
			util.Infof("shutting down")
			return nil
		case <-ticker.C:
		}
	}

	util.Infof("shutting down")
	return nil
}
