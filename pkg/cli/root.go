package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"duck-grouper/internal/config"
	"duck-grouper/internal/engine"
	"duck-grouper/internal/service/records"
)

var (
	version = "dev"
	commit  = "none"
)

// Execute runs the CLI.
func Execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		output, _ := rootCmd.PersistentFlags().GetString("output")
		if output == "json" {
			errObj := map[string]interface{}{
				"error": err.Error(),
			}
			if kind := errorKind(err); kind != "" {
				errObj["kind"] = kind
			}
			_ = printJSON(os.Stdout, errObj)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		return 1
	}
	return 0
}

// options holds the resolved persistent flags.
type options struct {
	db       string
	output   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "duckgroup",
		Short:         "Group table rows with DuckDB",
		Long:          "Group the rows of a DuckDB table or a parquet/csv/json file by distinct values, order of magnitude, or percentile bands.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Precedence: flag > env > terminal detection
			if !cmd.Flags().Changed("output") {
				if v := os.Getenv("DUCKGROUP_OUTPUT"); v != "" {
					opts.output = v
				} else {
					opts.output = defaultOutput(cmd.OutOrStdout())
				}
				_ = cmd.Root().PersistentFlags().Set("output", opts.output)
			}
			return validateOutputFormat(opts.output)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.db, "db", "", "DuckDB database file (default: $DUCKDB_PATH, or in-memory)")
	rootCmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output format (table, json)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newGroupCmd(opts))
	rootCmd.AddCommand(newPlanCmd(opts))
	rootCmd.AddCommand(newBatchCmd(opts))
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newCompletionCmd())

	return rootCmd
}

// defaultOutput picks table for terminals and json for pipes and files.
func defaultOutput(w io.Writer) string {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "table"
	}
	return "json"
}

// openService opens the DuckDB engine and wraps it in a records service. The
// returned func closes the engine.
func (o *options) openService(ctx context.Context) (*records.Service, func(), error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.db != "" {
		cfg.DuckDBPath = o.db
	}
	cfg.LogLevel = o.resolvedLogLevel(cfg.LogLevel)

	logger := cfg.NewLogger(os.Stderr)
	for _, w := range cfg.Warnings {
		logger.Debug("config warning", "warning", w)
	}

	eng, err := engine.Open(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("close duckdb", "error", err)
		}
	}
	svc := records.NewService(eng, logger, cfg.BatchConcurrency,
		records.WithFileSources(records.FileSourcesAny),
		records.WithMaxBatchSize(cfg.MaxBatchSize),
	)
	return svc, closeFn, nil
}

// resolvedLogLevel keeps the CLI quiet unless asked otherwise.
func (o *options) resolvedLogLevel(fromEnv string) string {
	switch {
	case o.logLevel != "":
		return o.logLevel
	case os.Getenv("LOG_LEVEL") != "":
		return fromEnv
	default:
		return slog.LevelWarn.String()
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "completion [bash|zsh|fish|powershell]",
		Short:     "Generate shell completion script",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}
