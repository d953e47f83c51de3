package main

import (
	"github.com/spf13/cobra"

	"github.com/causaloop/causaloop/internal/config"
	"github.com/causaloop/causaloop/internal/mcp"
)

func newMCPServerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server over stdio",
		Long: `Run the MCP (Model Context Protocol) server over stdio.

The server exposes the causaloop tools (validate, loops, simulate, runs)
to MCP clients. It blocks until the client disconnects.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			server, err := mcp.NewServer(&mcp.Config{
				Name:    "causaloop",
				Version: version,
				App:     cfg,
			})
			if err != nil {
				return err
			}

			return server.Run(cmd.Context())
		},
	}
}
