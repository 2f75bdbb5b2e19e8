package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oobwatch-network/oobwatch/pkg/agent"
	"github.com/oobwatch-network/oobwatch/pkg/alert"
	"github.com/oobwatch-network/oobwatch/pkg/audit"
	"github.com/oobwatch-network/oobwatch/pkg/fdb"
	"github.com/oobwatch-network/oobwatch/pkg/inventory"
	"github.com/oobwatch-network/oobwatch/pkg/reconcile"
	"github.com/oobwatch-network/oobwatch/pkg/resolve"
	"github.com/oobwatch-network/oobwatch/pkg/state"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

// pipeline is the fully-wired audit loop plus the resources that need
// closing on shutdown.
type pipeline struct {
	agent    *agent.Agent
	store    *state.SQLiteStore
	auditLog *audit.FileLogger
}

func (p *pipeline) Close() {
	if err := p.auditLog.Close(); err != nil {
		util.Warnf("closing audit log: %v", err)
	}
	if err := p.store.Close(); err != nil {
		util.Warnf("closing state store: %v", err)
	}
}

// buildPipeline wires provider, collectors, resolver, store, audit log
// and dispatcher into an agent per the loaded configuration.
func buildPipeline() (*pipeline, error) {
	token, err := inventoryToken(&cfg.Inventory)
	if err != nil {
		return nil, err
	}

	provider, err := inventory.New(&cfg.Inventory, token)
	if err != nil {
		return nil, err
	}
	selector, err := fdb.NewSelector(&cfg.FDB)
	if err != nil {
		return nil, err
	}
	resolver, err := resolve.New(cfg)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLiteStore(cfg.StateDB)
	if err != nil {
		return nil, err
	}
	auditLog, err := audit.NewFileLogger(cfg.AuditLog, audit.RotationConfig{
		MaxSize:    10 * 1024 * 1024,
		MaxBackups: 5,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	var dispatcher alert.Dispatcher = alert.NopDispatcher{}
	if cfg.Inventory.Kind == "netbox" {
		dispatcher = alert.NewNetBoxDispatcher(&cfg.Inventory, &cfg.Alerting, token)
	}

	engine := reconcile.NewEngine(store, dispatcher, auditLog, reconcile.Params{
		ConfirmRuns: cfg.ConfirmRuns,
		RemindAfter: cfg.RemindAfterDuration(),
	})

	a := agent.New(provider, agent.SelectorSource{Selector: selector},
		resolver, engine, cfg.PollIntervalDuration())

	return &pipeline{agent: a, store: store, auditLog: auditLog}, nil
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the audit loop until interrupted",
	Long: `Run audits continuously at the configured poll interval.

Each cycle fetches the topology and FDB snapshots, reconciles every
monitored interface, and dispatches alerts for confirmed moves. SIGINT
or SIGTERM stops the loop after the in-flight cycle completes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		cutoff := time.Now().Add(-cfg.AuditRetentionDuration())
		if removed, err := p.auditLog.Trim(cutoff); err != nil {
			util.Warnf("trimming audit log: %v", err)
		} else if removed > 0 {
			util.Infof("trimmed %d audit events older than %s", removed, cfg.AuditRetention)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return p.agent.Run(ctx)
	},
}

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run a single audit cycle and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline()
		if err != nil {
			return err
		}
		defer p.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stats, err := p.agent.RunCycle(ctx)
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(stats)
		}
		fmt.Printf("interfaces=%d raised=%d reminded=%d cleared=%d retired=%d errors=%d\n",
			stats.Interfaces, stats.Raised, stats.Reminded, stats.Cleared,
			stats.Retired, stats.Errors)
		if stats.Errors > 0 {
			return fmt.Errorf("%d interfaces had dispatch or persistence errors", stats.Errors)
		}
		return nil
	},
}
