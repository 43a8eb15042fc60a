package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/JonMunkholm/regconv/internal/config"
	"github.com/JonMunkholm/regconv/internal/core"
	"github.com/JonMunkholm/regconv/internal/store"
)

// maxLoggedFailures caps the per-row warnings printed after a conversion.
const maxLoggedFailures = 20

// convertFlags override the CONVERT_* configuration for one run.
type convertFlags struct {
	inputEncoding      string
	outputEncoding     string
	skipRows           int
	quoting            string
	required           string
	replaceUnsupported bool
	persist            bool
}

func (f *convertFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.inputEncoding, "input-encoding", "", "input file encoding (default from INPUT_ENCODING)")
	fs.StringVar(&f.outputEncoding, "output-encoding", "", "output file encoding (default from OUTPUT_ENCODING)")
	fs.IntVar(&f.skipRows, "skip-rows", 0, "leading header rows to discard (default from SKIP_ROWS)")
	fs.StringVar(&f.quoting, "quoting", "", "output quoting: all, minimal, nonnumeric or none")
	fs.StringVar(&f.required, "required", "", "comma-separated fields that must be non-empty")
	fs.BoolVar(&f.replaceUnsupported, "replace-unsupported", false, "substitute characters the output encoding cannot represent")
	fs.BoolVar(&f.persist, "persist", false, "store the run and its records in DATABASE_URL")
}

// apply copies every flag set on the command line into cfg.
func (f *convertFlags) apply(fs *pflag.FlagSet, cfg *config.ConvertConfig) {
	if fs.Changed("input-encoding") {
		cfg.InputEncoding = f.inputEncoding
	}
	if fs.Changed("output-encoding") {
		cfg.OutputEncoding = f.outputEncoding
	}
	if fs.Changed("skip-rows") {
		cfg.SkipRows = f.skipRows
	}
	if fs.Changed("quoting") {
		cfg.Quoting = f.quoting
	}
	if fs.Changed("required") {
		cfg.RequiredFields = config.SplitList(f.required)
	}
	if fs.Changed("replace-unsupported") {
		cfg.ReplaceUnsupported = f.replaceUnsupported
	}
}

func (a *app) convertCommand() *cobra.Command {
	flags := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert <inputfile> [outputfile]",
		Short: "Convert one registry export file",
		Long: `Convert reads inputfile and writes the normalized records to outputfile.
The output defaults to the input path with its extension replaced by .txt.
Use "-" to read stdin or write stdout.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runConvert(cmd, flags, args)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) runConvert(cmd *cobra.Command, flags *convertFlags, args []string) error {
	cfg := *a.cfg
	flags.apply(cmd.Flags(), &cfg.Convert)

	opts, err := core.OptionsFromConfig(cfg.Convert)
	if err != nil {
		return err
	}

	inPath := args[0]
	outPath := core.DefaultOutputPath(inPath)
	if len(args) == 2 {
		outPath = args[1]
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conv := core.NewConverter(opts).OnProgress(func(p core.ConversionProgress) {
		slog.Debug("progress", "row", p.CurrentRow, "converted", p.Converted, "percent", p.Percent())
	})

	if flags.persist {
		st, closeStore, err := openStore(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer closeStore()
		conv = conv.WithSink(st.NewRecordWriter())
	}

	slog.Info("converting",
		"input", inPath,
		"output", outPath,
		"input_encoding", opts.InputEncoding.Name(),
		"output_encoding", opts.OutputEncoding.Name(),
	)

	result, err := conv.ConvertFile(ctx, inPath, outPath)
	if err != nil {
		return err
	}

	for i, fr := range result.FailedRows {
		if i == maxLoggedFailures {
			slog.Warn("more rows skipped", "count", len(result.FailedRows)-i)
			break
		}
		slog.Warn("row skipped", "line", fr.LineNumber, "reason", fr.Reason)
	}

	slog.Info("converted",
		"rows", result.Converted,
		"skipped", result.Skipped,
		"truncated", result.Truncated,
		"run_id", result.RunID,
		"duration", result.Duration,
	)
	return nil
}

// openStore connects to the database and ensures the schema exists.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*store.Store, func(), error) {
	if !cfg.Enabled() {
		return nil, nil, errors.New("persistence requested but DATABASE_URL is not set")
	}
	pool, err := store.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	st := store.New(pool, cfg.BatchSize)
	if err := st.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return st, pool.Close, nil
}
