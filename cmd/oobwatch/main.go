// Oobwatch - OOB Interface Move Auditor
//
// Cross-references switch MAC address (FDB) tables against the
// inventory's record of where each server's out-of-band (IPMI/iLO/iDRAC)
// interface should be cabled, and flags interfaces that have been moved
// to a different switch or port.
//
//	oobwatch run                 # continuous audit loop
//	oobwatch cycle               # one audit cycle, then exit
//	oobwatch status              # current per-interface state
//	oobwatch history             # audit trail of past decisions
//	oobwatch fdb <switch>        # dump one switch's FDB table
//	oobwatch interfaces          # monitored interfaces from the inventory
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/oobwatch-network/oobwatch/pkg/inventory"
	"github.com/oobwatch-network/oobwatch/pkg/spec"
	"github.com/oobwatch-network/oobwatch/pkg/util"
)

var (
	configPath string
	verbose    bool
	logJSON    bool
	jsonOutput bool

	cfg *spec.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "oobwatch",
	Short:         "OOB interface move auditor",
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `Oobwatch audits server out-of-band (IPMI/iLO/iDRAC) cabling.

Each cycle it fetches the expected switch/port for every OOB interface
from the inventory, collects the switches' MAC address tables, and
compares. A mismatch seen on enough consecutive cycles is confirmed as
a move and alerted on; a cleared mismatch resolves the alert.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		if verbose {
			util.SetLogLevel("debug")
		} else {
			util.SetLogLevel("info")
		}
		if logJSON {
			util.SetJSONFormat()
		}

		path := configPath
		if path == "" {
			path = spec.DefaultPath
		}
		var err error
		cfg, err = spec.Load(path)
		if err != nil {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (default "+spec.DefaultPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Emit logs as JSON")

	for _, cmd := range []*cobra.Command{statusCmd, historyCmd, fdbCmd, interfacesCmd, cycleCmd} {
		cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	}

	rootCmd.AddCommand(runCmd, cycleCmd, statusCmd, historyCmd, fdbCmd, interfacesCmd, versionCmd)
}

// inventoryToken resolves the inventory API token, falling back to an
// interactive prompt when the config names neither token nor token_env
// and stdin is a terminal.
func inventoryToken(inv *spec.InventorySpec) (string, error) {
	if inv.Kind != "netbox" {
		return "", nil
	}
	token, err := inventory.ResolveToken(inv)
	if err == nil && token != "" {
		return token, nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", err
	}
	fmt.Fprintf(os.Stderr, "Inventory API token for %s: ", inv.URL)
	raw, perr := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if perr != nil {
		return "", fmt.Errorf("reading token: %w", perr)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("empty token")
	}
	return string(raw), nil
}
