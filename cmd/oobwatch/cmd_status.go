package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oobwatch-network/oobwatch/pkg/cli"
	"github.com/oobwatch-network/oobwatch/pkg/model"
	"github.com/oobwatch-network/oobwatch/pkg/state"
)

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var statusAll bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-interface move state",
	Long: `Show the current confirmation state of every tracked interface.

By default only interfaces that are not at their expected location are
listed; --all includes the healthy ones.

Examples:
  oobwatch status
  oobwatch status --all
  oobwatch status --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := state.NewSQLiteStore(cfg.StateDB)
		if err != nil {
			return err
		}
		defer store.Close()

		states, err := store.List(context.Background())
		if err != nil {
			return fmt.Errorf("listing state: %w", err)
		}

		if !statusAll {
			filtered := states[:0]
			for _, s := range states {
				if s.Status != model.MoveStatusOK {
					filtered = append(filtered, s)
				}
			}
			states = filtered
		}

		if jsonOutput {
			return printJSON(states)
		}
		if len(states) == 0 {
			fmt.Println("No interfaces to report")
			return nil
		}

		table := cli.NewTable(os.Stdout, "INTERFACE", "STATUS", "COUNTER", "OBSERVED AT", "LAST ALERT", "UPDATED")
		for _, s := range states {
			observed := "-"
			if !s.LastObserved.IsZero() {
				observed = s.LastObserved.String()
			}
			lastAlert := "-"
			if !s.LastAlertAt.IsZero() {
				lastAlert = s.LastAlertAt.Format("2006-01-02 15:04:05")
			}
			table.Row(s.ID, cli.ColorStatus(s.Status), fmt.Sprintf("%d", s.Counter),
				observed, lastAlert, s.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		table.Flush()
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "Include interfaces at their expected location")
}
