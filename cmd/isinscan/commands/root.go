// SPDX-License-Identifier: Apache-2.0

// Package commands implements the isinscan command line.
package commands

import (
	"context"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "dev"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	cfgFile string
	verbose bool
	noColor bool
}

// NewRootCmd builds the isinscan command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "isinscan",
		Short: "Consolidate OCR results into numbers and security identifiers",
		Long: `isinscan merges the outputs of several OCR engines and extraction services
run over the same scanned document into one summary of distinct numbers and
validated 12-character security identifiers (ISIN shape).`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.noColor {
				color.NoColor = true
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.cfgFile, "config", "c", "", "run manifest (YAML)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")

	cmd.AddCommand(newRunCmd(opts), newClassifyCmd(), newServeCmd(opts))
	return cmd
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
