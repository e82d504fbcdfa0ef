package commands

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/relimport/pkg/config"
	"github.com/Sumatoshi-tech/relimport/pkg/resolve"
)

// ErrResolveFailed is returned when the alias given to resolve does not resolve.
var ErrResolveFailed = errors.New("resolve failed")

func newResolveCommand(globals *globalFlags) *cobra.Command {
	var root, alias, defaultExt string

	cmd := &cobra.Command{
		Use:   "resolve <file> <alias>",
		Short: "Print the relative import for one alias seen from one file",
		Example: `  relimport resolve src/x/y.ts @/a/b
  ../a/b`,
		Args: cobra.ExactArgs(2), //nolint:mnd // file and alias.
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := globals.loadConfig()
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("root") {
				cfg.Root = root
			}

			if cmd.Flags().Changed("alias") {
				cfg.Alias = alias
			}

			if cmd.Flags().Changed("default-ext") {
				cfg.DefaultExtension = defaultExt
			}

			err = cfg.Validate()
			if err != nil {
				return err
			}

			resolver, err := resolve.New(resolve.OptionsFromConfig(cfg))
			if err != nil {
				return err
			}

			file, ref := args[0], args[1]

			result := resolver.Resolve(file, ref)
			if !result.OK() {
				color.New(color.FgYellow).Fprintf(cmd.ErrOrStderr(),
					"⚠️ Failed to resolve %s in %s: %v\n", ref, file, result.Err)

				return fmt.Errorf("%w: %w", ErrResolveFailed, result.Err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Import)

			if globals.verbose {
				fmt.Fprintf(cmd.ErrOrStderr(), "target: %s\n", result.Target)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&root, "root", config.DefaultRoot, "Source root the alias maps to")
	cmd.Flags().StringVar(&alias, "alias", config.DefaultAlias, "Alias prefix")
	cmd.Flags().StringVar(&defaultExt, "default-ext", config.DefaultExtension, "Extension appended to resolved paths without one")

	return cmd
}
