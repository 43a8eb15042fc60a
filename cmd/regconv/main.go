// Command regconv converts registry export files into the normalized
// output format and serves the conversion API.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/regconv/internal/config"
	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/logging"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		slog.Debug("command failed", "error", err)
		fmt.Fprintln(os.Stderr, "error:", err)
		if core.IsUserFacing(err) {
			fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		}
		os.Exit(1)
	}
}

// app carries state shared by the subcommands once setup has run.
type app struct {
	cfg *config.Config
}

func newRootCommand() *cobra.Command {
	a := &app{}
	flags := &convertFlags{}

	root := &cobra.Command{
		Use:   "regconv [inputfile] [outputfile]",
		Short: "Convert registry exports to the normalized tab-separated format",
		Long: `regconv reads a registry export (UTF-16, tab separated, three header rows
by default), normalizes every record and writes it as Latin-1 with every
field quoted. Without a subcommand it behaves like "regconv convert".`,
		Args:              cobra.MaximumNArgs(2),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return a.runConvert(cmd, flags, args)
		},
	}
	flags.register(root)

	root.AddCommand(
		a.convertCommand(),
		a.serveCommand(),
		a.schemaCommand(),
	)
	return root
}

// setup loads .env, the configuration and the logger.
func (a *app) setup(_ *cobra.Command, _ []string) error {
	// Overload so a local .env wins over stale shell variables.
	envLoaded := godotenv.Overload() == nil

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	if envLoaded {
		slog.Debug("loaded .env file")
	}
	slog.Debug("configuration loaded", "config", cfg.String())

	a.cfg = cfg
	return nil
}
