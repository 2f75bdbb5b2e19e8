package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/oobwatch-network/oobwatch/pkg/cli"
	"github.com/oobwatch-network/oobwatch/pkg/fdb"
	"github.com/oobwatch-network/oobwatch/pkg/inventory"
	"github.com/oobwatch-network/oobwatch/pkg/model"
)

var fdbCmd = &cobra.Command{
	Use:   "fdb <switch>",
	Short: "Dump a switch's MAC address table",
	Long: `Collect and print one switch's FDB table using the collector
configured for it (SNMP, SONiC STATE_DB or SSH scrape).

The switch is looked up by name in the inventory.

Examples:
  oobwatch fdb oob-sw-01
  oobwatch fdb oob-sw-01 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		ctx := context.Background()

		token, err := inventoryToken(&cfg.Inventory)
		if err != nil {
			return err
		}
		provider, err := inventory.New(&cfg.Inventory, token)
		if err != nil {
			return err
		}
		switches, err := provider.FetchSwitches(ctx)
		if err != nil {
			return fmt.Errorf("fetching switches: %w", err)
		}

		var sw *model.Switch
		for i := range switches {
			if switches[i].Name == name {
				sw = &switches[i]
				break
			}
		}
		if sw == nil {
			return fmt.Errorf("switch %q not found in inventory", name)
		}

		selector, err := fdb.NewSelector(&cfg.FDB)
		if err != nil {
			return err
		}
		entries, err := selector.For(*sw).Collect(ctx, *sw)
		if err != nil {
			return fmt.Errorf("collecting FDB from %s: %w", name, err)
		}

		sort.Slice(entries, func(i, j int) bool {
			if entries[i].Port != entries[j].Port {
				return entries[i].Port < entries[j].Port
			}
			return entries[i].MAC < entries[j].MAC
		})

		if jsonOutput {
			return printJSON(entries)
		}
		if len(entries) == 0 {
			fmt.Printf("No FDB entries on %s\n", name)
			return nil
		}

		table := cli.NewTable(os.Stdout, "PORT", "VLAN", "MAC")
		for _, e := range entries {
			vlan := "-"
			if e.VLAN != 0 {
				vlan = fmt.Sprintf("%d", e.VLAN)
			}
			table.Row(e.Port, vlan, e.MAC)
		}
		table.Flush()
		fmt.Printf("\n%d entries\n", len(entries))
		return nil
	},
}
