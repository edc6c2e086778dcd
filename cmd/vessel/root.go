package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vessel",
	Short: "Capability-based extension host for desktop automation",
	Long: `vessel - Run native and sandboxed wasm extension modules behind a
capability boundary.

Extensions ship as portable wasm components under <data>/modules/<id>/.
Each declares the capabilities it needs in its manifest; the host enforces
them at every boundary call and verifies a tamper hash on every start.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "config.toml", "Path to the host configuration file")
	rootCmd.PersistentFlags().Bool("debug", false, "Verbose development logging")
}
