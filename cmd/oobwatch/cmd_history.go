package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/oobwatch-network/oobwatch/pkg/audit"
	"github.com/oobwatch-network/oobwatch/pkg/cli"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

var (
	historyDevice string
	historyType   string
	historyLast   string
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit trail of past decisions",
	Long: `Show the audit trail: confirmations, reminders, clears and
retirements, with dispatch success recorded per event.

Examples:
  oobwatch history --device server-07
  oobwatch history --type move_confirmed --last 7d
  oobwatch history --limit 20 --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := audit.NewFileLogger(cfg.AuditLog, audit.RotationConfig{})
		if err != nil {
			return err
		}
		defer logger.Close()

		filter := audit.Filter{
			Device: historyDevice,
			Type:   audit.EventType(historyType),
			Limit:  historyLimit,
		}
		if historyLast != "" {
			d, err := util.ParseDuration(historyLast)
			if err != nil {
				return fmt.Errorf("invalid --last duration: %v", err)
			}
			filter.StartTime = time.Now().Add(-d)
		}

		events, err := logger.Query(filter)
		if err != nil {
			return fmt.Errorf("querying audit log: %w", err)
		}

		if jsonOutput {
			return printJSON(events)
		}
		if len(events) == 0 {
			fmt.Println("No audit events found")
			return nil
		}

		table := cli.NewTable(os.Stdout, "TIMESTAMP", "TYPE", "INTERFACE", "EXPECTED", "OBSERVED", "DISPATCH")
		for _, e := range events {
			dispatch := cli.Green("ok")
			if !e.Success {
				dispatch = cli.Red("failed")
			}
			observed := "-"
			if !e.Observed.IsZero() {
				observed = e.Observed.String()
			}
			expected := "-"
			if !e.Expected.IsZero() {
				expected = e.Expected.String()
			}
			table.Row(e.Timestamp.Format("2006-01-02 15:04:05"), string(e.Type),
				e.Device+"/"+e.Interface, expected, observed, dispatch)
		}
		table.Flush()
		return nil
	},
}

func init() {
	historyCmd.Flags().StringVar(&historyDevice, "device", "", "Filter by device name")
	historyCmd.Flags().StringVar(&historyType, "type", "", "Filter by event type (move_confirmed, reminder, cleared, retired)")
	historyCmd.Flags().StringVar(&historyLast, "last", "", "Show events from the last duration (e.g. 24h, 7d)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 100, "Maximum events to show")
}
