package cmd

import (
	"github.com/spf13/cobra"

	"github.com/semcs/ck/internal/logging"
	"github.com/semcs/ck/internal/mcp"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		Long: `Run the MCP server over stdio.

stdout carries only JSON-RPC messages; diagnostics go to ~/.ck/logs/.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// MCP mode must not write to stderr either: some clients treat
			// stderr output as a protocol failure.
			cleanup, err := logging.SetupDefault(logging.MCPConfig())
			if err != nil {
				return err
			}
			defer cleanup()

			eng, err := newEngine()
			if err != nil {
				return err
			}

			return mcp.NewServer(eng).Run(cmd.Context())
		},
	}
}
