package commands

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
	"github.com/Sumatoshi-tech/relimport/pkg/fix"
	"github.com/Sumatoshi-tech/relimport/pkg/importmodel"
	"github.com/Sumatoshi-tech/relimport/pkg/observability"
	"github.com/Sumatoshi-tech/relimport/pkg/report"
)

const defaultFormat = report.FormatText

// fixRunner executes one fix run; tests swap it out.
type fixRunner func(ctx context.Context, cfg *config.Config, opts fix.Options, deps fix.Deps) (*importmodel.Summary, error)

func runFix(ctx context.Context, cfg *config.Config, opts fix.Options, deps fix.Deps) (*importmodel.Summary, error) {
	svc, err := fix.NewService(cfg, opts, deps)
	if err != nil {
		return nil, err
	}

	return svc.Run(ctx)
}

// FixCommand holds flags and dependencies for the fix command.
type FixCommand struct {
	globals *globalFlags

	root            string
	alias           string
	defaultExt      string
	dryRun          bool
	diff            bool
	format          string
	noColor         bool
	metricsTextfile string

	runner fixRunner
}

func newFixCommand(globals *globalFlags, runner fixRunner) *cobra.Command {
	fc := &FixCommand{globals: globals, runner: runner}

	cmd := &cobra.Command{
		Use:   "fix [root]",
		Short: "Rewrite alias imports under a source root",
		Long: `Rewrite every alias import (from "@/...") in .ts, .js and .tsx files under
the source root into an import relative to the importing file. Files are
only written when their content changes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: fc.run,
	}

	cmd.Flags().StringVar(&fc.root, "root", config.DefaultRoot, "Source root the alias maps to")
	cmd.Flags().StringVar(&fc.alias, "alias", config.DefaultAlias, "Alias prefix to rewrite")
	cmd.Flags().StringVar(&fc.defaultExt, "default-ext", config.DefaultExtension, "Extension appended to resolved paths without one")
	cmd.Flags().BoolVar(&fc.dryRun, "dry-run", false, "Report what would change without writing files")
	cmd.Flags().BoolVar(&fc.diff, "diff", false, "Print the changed lines of each file")
	cmd.Flags().StringVar(&fc.format, "format", string(defaultFormat), "Output format: text, json, yaml")
	cmd.Flags().BoolVar(&fc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().StringVar(&fc.metricsTextfile, "metrics-textfile", "", "Write run metrics in Prometheus text format to this file")

	return cmd
}

func (fc *FixCommand) run(cmd *cobra.Command, args []string) (err error) {
	cfg, err := fc.globals.loadConfig()
	if err != nil {
		return err
	}

	fc.applyOverrides(cmd, cfg, args)

	err = cfg.Validate()
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(fc.format)
	if err != nil {
		return err
	}

	obsCfg, err := fc.globals.observabilityConfig(cfg, observability.ModeCLI, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	obsCfg.MetricsTextfile = fc.metricsTextfile

	providers, err := observability.Init(obsCfg)
	if err != nil {
		return err
	}

	defer func() {
		err = errors.Join(err, providers.Shutdown(context.WithoutCancel(cmd.Context())))
	}()

	metrics, err := observability.NewRunMetrics(providers.Meter)
	if err != nil {
		return err
	}

	reporter := report.New(cmd.OutOrStdout(), report.Options{
		Format:  format,
		Quiet:   fc.globals.quiet,
		Verbose: fc.globals.verbose,
		Diff:    fc.diff,
		NoColor: fc.noColor,
	})

	summary, runErr := fc.runner(cmd.Context(), cfg, fix.Options{DryRun: fc.dryRun}, fix.Deps{
		Logger:   providers.Logger,
		Tracer:   providers.Tracer,
		Metrics:  metrics,
		Reporter: reporter,
	})
	if summary != nil {
		err = reporter.Summary(summary)
	}

	return errors.Join(runErr, err)
}

// applyOverrides lays explicitly set flags and the root argument over the
// loaded configuration.
func (fc *FixCommand) applyOverrides(cmd *cobra.Command, cfg *config.Config, args []string) {
	flags := cmd.Flags()

	if flags.Changed("root") {
		cfg.Root = fc.root
	}

	if len(args) > 0 {
		cfg.Root = args[0]
	}

	if flags.Changed("alias") {
		cfg.Alias = fc.alias
	}

	if flags.Changed("default-ext") {
		cfg.DefaultExtension = fc.defaultExt
	}
}
