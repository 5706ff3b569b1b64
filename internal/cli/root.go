// Package cli wires the gearledger commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
}

// NewRootCommand creates the root command for the gearledger CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gearledger",
		Short: "Equipment lending ledger",
		Long: `gearledger tracks club equipment loans: atomic multi-line borrows,
oldest-first partial returns, and a strict stock accounting invariant.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))

	return cmd
}
