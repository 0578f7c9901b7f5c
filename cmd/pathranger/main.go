package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pbaille/pathranger/internal/config"
	"github.com/pbaille/pathranger/internal/logging"
	"github.com/pbaille/pathranger/internal/query"
	"github.com/pbaille/pathranger/internal/store"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", red("pathranger:"), err)
		os.Exit(exitCode(err))
	}
}

// app carries what the subcommands share once flags are parsed.
type app struct {
	configFile string
	verbosity  int

	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "pathranger",
		Short:         "A file system navigation enhancement tool",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.logCloser != nil {
				return a.logCloser.Close()
			}
			return nil
		},
	}

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", err, errUsage)
	})

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default <config dir>/pathranger/config.yaml)")
	flags.CountVarP(&a.verbosity, "verbose", "v", "more log output (repeatable)")
	flags.String("db", "", "database path (env "+config.EnvDB+")")
	flags.Duration("half-life", 0, "frecency decay half-life")
	flags.Duration("busy-timeout", 0, "how long one lock attempt waits")
	flags.Duration("retry-budget", 0, "total time spent retrying a locked database")
	flags.String("log-level", "", "log level: debug, info, warn, error, silent")
	flags.String("log-file", "", "append logs to this file instead of stderr")
	flags.String("color", "", "colour output: auto, always, never")

	rootCmd.AddCommand(recordCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(markCmd(a))
	rootCmd.AddCommand(gotoCmd(a))
	rootCmd.AddCommand(topCmd(a))
	rootCmd.AddCommand(recentCmd(a))
	rootCmd.AddCommand(searchCmd(a))
	rootCmd.AddCommand(tagsCmd(a))
	rootCmd.AddCommand(untagCmd(a))
	rootCmd.AddCommand(forgetCmd(a))
	rootCmd.AddCommand(pruneCmd(a))
	rootCmd.AddCommand(initCmd())

	return rootCmd
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, cmd.Flags())
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := logging.LevelFromVerbosity(logging.LevelFromString(cfg.LogLevel), a.verbosity)
	if cfg.LogFile != "" {
		logger, f, err := logging.NewFile(cfg.LogFile, level)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		a.logger, a.logCloser = logger, f
	} else {
		a.logger = logging.New(cmd.ErrOrStderr(), level)
	}

	switch cfg.Color {
	case config.ColorAlways:
		color.NoColor = false
	case config.ColorNever:
		color.NoColor = true
	default:
		color.NoColor = !term.IsTerminal(int(os.Stdout.Fd()))
	}

	return nil
}

// getService opens the store and wraps it in a query service. The caller closes the store.
func (a *app) getService() (*query.Service, *store.Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(a.cfg.DB)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create db dir: %w", err)
	}

	st, err := store.New(a.cfg.DB, store.Options{
		HalfLife:    a.cfg.HalfLife,
		BusyTimeout: a.cfg.BusyTimeout,
		RetryBudget: a.cfg.RetryBudget,
		Logger:      a.logger,
	})
	if err != nil {
		return nil, nil, err
	}
	a.logger.Debug("store opened", "path", st.Path())

	return query.New(st, st.Model(), query.WithLogger(a.logger)), st, nil
}
