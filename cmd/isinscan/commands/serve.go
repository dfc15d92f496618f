// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/secscan/isinscan/internal/config"
	"github.com/secscan/isinscan/internal/observability"
	"github.com/secscan/isinscan/internal/tool"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the aggregation tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(root.cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			level := cfg.Log.Level
			if root.verbose {
				level = "debug"
			}
			// stdout carries the protocol.
			logger := observability.NewLogger(observability.LogConfig{
				Level:       level,
				Format:      "json",
				Output:      cmd.ErrOrStderr(),
				ServiceName: "isinscan",
			})

			server := tool.NewServer(Version, logger)
			logger.Info().Str("version", Version).Msg("serving MCP over stdio")
			if err := server.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
