package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/pkg/mcp"
	"github.com/Sumatoshi-tech/relimport/pkg/observability"
)

func newMCPCommand(globals *globalFlags) *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes two tools:
  - relimport_resolve: resolve one alias import as seen from one file
  - relimport_fix: rewrite alias imports under a source root (supports dry_run)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := globals.loadConfig()
			if err != nil {
				return err
			}

			obsCfg, err := globals.observabilityConfig(cfg, observability.ModeMCP, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			obsCfg.LogJSON = true

			if debug {
				obsCfg.LogLevel = slog.LevelDebug
				obsCfg.DebugTrace = true
			}

			providers, err := observability.Init(obsCfg)
			if err != nil {
				return err
			}

			defer func() {
				shutdownErr := providers.Shutdown(context.Background())
				if shutdownErr != nil {
					providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
				}
			}()

			metrics, err := observability.NewRunMetrics(providers.Meter)
			if err != nil {
				return err
			}

			srv, err := mcp.NewServer(mcp.ServerDeps{
				Config:  cfg,
				Logger:  providers.Logger,
				Metrics: metrics,
				Tracer:  providers.Tracer,
			})
			if err != nil {
				return err
			}

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging to stderr")

	return cmd
}
