package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oobwatch-network/oobwatch/pkg/cli"
	"github.com/oobwatch-network/oobwatch/pkg/inventory"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List monitored OOB interfaces from the inventory",
	RunE: func(cmd *cobra.Command, args []string) error {
		token, err := inventoryToken(&cfg.Inventory)
		if err != nil {
			return err
		}
		provider, err := inventory.New(&cfg.Inventory, token)
		if err != nil {
			return err
		}

		ifaces, err := provider.FetchInterfaces(context.Background())
		if err != nil {
			return fmt.Errorf("fetching interfaces: %w", err)
		}

		if jsonOutput {
			return printJSON(ifaces)
		}
		if len(ifaces) == 0 {
			fmt.Println("No monitored interfaces found")
			return nil
		}

		table := cli.NewTable(os.Stdout, "DEVICE", "INTERFACE", "MAC", "EXPECTED", "OOB IP")
		for _, iface := range ifaces {
			oobIP := iface.OOBIP
			if oobIP == "" {
				oobIP = "-"
			}
			table.Row(iface.Device, iface.Name, iface.MAC, iface.Expected.String(), oobIP)
		}
		table.Flush()
		fmt.Printf("\n%d interfaces\n", len(ifaces))
		return nil
	},
}
