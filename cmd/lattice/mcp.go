package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/lattice/internal/cli"
	"github.com/aretw0/lattice/pkg/adapters/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [file...]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts a lattice engine as an MCP server so agents can inspect the node catalogue,
validate graphs and fire triggers as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		transport, _ := cmd.Flags().GetString("transport")
		addr, _ := cmd.Flags().GetString("addr")

		// Logs must not corrupt JSON-RPC on stdout.
		log.SetOutput(os.Stderr)

		eng, err := cli.NewEngine(cfg, logger)
		if err != nil {
			return err
		}
		defer eng.Close()

		ctx := cli.NewSignalContext(context.Background())
		defer ctx.Cancel()

		if eng.Loader() != nil {
			if err := eng.LoadAll(ctx); err != nil {
				logger.Warn("some scripts failed to load", "err", err)
			}
		}
		for _, path := range args {
			data, err := cli.ReadScript(path)
			if err != nil {
				return err
			}
			if _, err := eng.LoadDocument(ctx, data); err != nil {
				return err
			}
		}

		srv := mcp.NewServer(eng, logger)
		switch transport {
		case "stdio":
			logger.Info("starting MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			return srv.ServeSSE(ctx, addr, "http://localhost"+addr)
		default:
			return fmt.Errorf("unknown transport: %s. Supported: stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
}
