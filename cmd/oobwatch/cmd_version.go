package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/oobwatch-network/oobwatch/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		if version.Version == "dev" {
			fmt.Println("oobwatch dev build (use 'make build' for version info)")
			return
		}
		fmt.Printf("oobwatch %s\n", version.Info())
	},
}
