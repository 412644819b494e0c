package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/followgc/followgc/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
	flagDryRun     bool
)

// rootFlags is the effective flag state handed to subcommands.
type rootFlags struct {
	ConfigPath string
	JSON       bool
	Verbose    bool
	Quiet      bool
	// DryRun is nil unless --dry-run was set explicitly; the config
	// default applies otherwise.
	DryRun *bool
}

// CLIContext carries the resolved configuration, logger, and flags to
// every subcommand through cmd.Context().
type CLIContext struct {
	Cfg    *config.Config
	Logger *slog.Logger
	Flags  rootFlags
}

type cliContextKey struct{}

// mustCLIContext retrieves the CLIContext installed by the root
// pre-run. Panics on a wiring mistake, not user error.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("CLIContext missing from command context")
	}

	return cc
}

// newRootCmd builds the fully-assembled root command. Called once from
// main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "followgc",
		Short: "GitHub follow-state reconciliation and bulk actions",
		Long: `Diff your GitHub followers against who you follow, preview and bulk-apply
follow/unfollow actions behind a dry-run gate, and keep an append-only
history that recent unfollows can be undone from.`,
		Version: version,
		// Silence Cobra's default error/usage printing; main handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return installCLIContext(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")
	cmd.PersistentFlags().BoolVar(&flagDryRun, "dry-run", false, "override dry-run mode for this invocation")

	cmd.AddCommand(newPreviewCmd())
	cmd.AddCommand(newExportCmd())
	cmd.AddCommand(newSweepCmd())
	cmd.AddCommand(newDryrunCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newUndoCmd())
	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newExcludeCmd())
	cmd.AddCommand(newImportCmd())
	cmd.AddCommand(newFilterCmd())
	cmd.AddCommand(newSuggestCmd())
	cmd.AddCommand(newServeCmd())

	return cmd
}

// installCLIContext resolves configuration through the four-layer
// override chain and stores the CLIContext for subcommands.
func installCLIContext(cmd *cobra.Command) error {
	cli := config.CLIOverrides{ConfigPath: flagConfigPath}

	// Only forward --dry-run when the user actually set it; otherwise
	// the persisted setting and config default decide.
	if cmd.Flags().Changed("dry-run") {
		v := flagDryRun
		cli.DryRun = &v
	}

	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc := &CLIContext{
		Cfg:    cfg,
		Logger: buildLogger(cfg),
		Flags: rootFlags{
			ConfigPath: flagConfigPath,
			JSON:       flagJSON,
			Verbose:    flagVerbose,
			Quiet:      flagQuiet,
			DryRun:     cli.DryRun,
		},
	}

	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cc))

	return nil
}

// buildLogger creates the slog.Logger. Config sets the baseline level;
// --verbose and --quiet override it because CLI flags always win. The
// "auto" format picks text on a terminal and JSON otherwise.
func buildLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo

	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	format := cfg.Logging.Format
	if format == "auto" {
		if isatty.IsTerminal(os.Stderr.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
