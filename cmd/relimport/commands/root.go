// Package commands implements CLI command handlers for relimport.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
	"github.com/Sumatoshi-tech/relimport/pkg/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	verbose    bool
	quiet      bool
}

// NewRootCommand creates the relimport root command. Run without a
// subcommand it fixes the configured source root.
func NewRootCommand() *cobra.Command {
	return newRootCommandWithDeps(runFix)
}

func newRootCommandWithDeps(runner fixRunner) *cobra.Command {
	globals := &globalFlags{}
	defaultFix := &FixCommand{globals: globals, runner: runner, format: string(defaultFormat)}

	rootCmd := &cobra.Command{
		Use:   "relimport",
		Short: "Rewrite alias imports (@/...) to relative imports",
		Long: `relimport rewrites alias imports such as "@/lib/auth" in TypeScript and
JavaScript sources into imports relative to the importing file.

Run without a command it fixes the configured source root (default: src).`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          defaultFix.run,
	}

	rootCmd.PersistentFlags().StringVar(&globals.configPath, "config", "", "config file (default: .relimport.yaml in . or $HOME)")
	rootCmd.PersistentFlags().BoolVarP(&globals.verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&globals.quiet, "quiet", "q", false, "suppress output")

	rootCmd.AddCommand(newFixCommand(globals, runner))
	rootCmd.AddCommand(newResolveCommand(globals))
	rootCmd.AddCommand(newConfigCommand(globals))
	rootCmd.AddCommand(newMCPCommand(globals))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	return cfg, nil
}

// observabilityConfig maps the loaded configuration and flags onto the
// telemetry setup. Below --verbose, logs start at warn so progress lines stay
// out of the way of the notices.
func (g *globalFlags) observabilityConfig(
	cfg *config.Config, mode observability.AppMode, logOut io.Writer,
) (observability.Config, error) {
	level, err := cfg.Logging.SlogLevel()
	if err != nil {
		return observability.Config{}, err
	}

	if !g.verbose && level < slog.LevelWarn {
		level = slog.LevelWarn
	}

	obsCfg := observability.DefaultConfig()
	obsCfg.ApplyEnv()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = mode
	obsCfg.LogLevel = level
	obsCfg.LogJSON = cfg.Logging.Format == config.LogFormatJSON
	obsCfg.LogWriter = logOut

	return obsCfg, nil
}
