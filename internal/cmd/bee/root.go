package beecmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	cfgpkg "github.com/rzbill/bee/internal/config"
	logpkg "github.com/rzbill/bee/pkg/log"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// usageError marks command line misuse.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// Execute runs the bee command line with args and returns the exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand(stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	cmd, err := root.ExecuteContextC(ctx)
	if err == nil {
		return ExitOK
	}
	var ue usageError
	if errors.As(err, &ue) {
		fmt.Fprintf(stderr, "bee: %v\n\n%s", err, cmd.UsageString())
		return ExitUsage
	}
	fmt.Fprintf(stderr, "bee: %v\n", err)
	return ExitError
}

// NewRootCommand builds the command tree. Results are printed to stdout;
// logs go to stderr.
func NewRootCommand(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "bee",
		Short: "Leader-elected writer/reader queue over a shared store",
		Long: "bee processes race for a single writer lease. The writer pushes random\n" +
			"messages onto a shared queue; every other process consumes them and\n" +
			"flags about one in twenty onto an error queue. Run with --errors to\n" +
			"drain and print that queue.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, stdout)
			if err != nil {
				return err
			}
			if report, _ := cmd.Flags().GetBool("errors"); report {
				return Report(cmd.Context(), opts)
			}
			return Run(cmd.Context(), opts)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	root.Flags().BoolP("errors", "e", false, "Drain the error queue, print it and exit")

	pf := root.PersistentFlags()
	pf.String("config", "", "Config file (JSON or YAML)")
	pf.String("store", "", "Store backend: redis|pebble|memory (default redis)")
	pf.String("addr", "", "Redis address (default localhost:6379)")
	pf.Int("db", 0, "Redis database number")
	pf.String("password", "", "Redis password")
	pf.String("data-dir", "", "Pebble data directory (if not specified, uses OS-specific application data directory)")
	pf.String("fsync", "", "Pebble fsync mode: always|interval|never")
	pf.String("lease-mode", "", "Lease protocol: auto|atomic|relaxed")
	pf.String("log-level", "", "Log level: debug|info|warn|error")
	pf.String("log-format", "", "Log format: text|json (default text)")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address")

	root.AddCommand(newSimulateCommand(stdout), newStatusCommand(stdout))
	return root
}

func newSimulateCommand(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run several competing loops in one process",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, stdout)
			if err != nil {
				return err
			}
			workers, _ := cmd.Flags().GetInt("workers")
			if workers < 1 {
				return usageError{fmt.Errorf("--workers must be at least 1, got %d", workers)}
			}
			duration, _ := cmd.Flags().GetDuration("duration")
			return Simulate(cmd.Context(), SimulateOptions{Options: opts, Workers: workers, Duration: duration})
		},
	}
	cmd.Flags().Int("workers", 3, "Number of loops")
	cmd.Flags().Duration("duration", 0, "Stop after this long (default: run until interrupted)")
	return cmd
}

func newStatusCommand(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the current writer and queue lengths",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := loadOptions(cmd, stdout)
			if err != nil {
				return err
			}
			return Status(cmd.Context(), opts)
		},
	}
}

func noArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.NoArgs(cmd, args); err != nil {
		return usageError{err}
	}
	return nil
}

// loadOptions layers defaults, the config file, BEE_* variables and flags,
// then builds the process logger.
func loadOptions(cmd *cobra.Command, stdout io.Writer) (Options, error) {
	flags := cmd.Flags()
	path, _ := flags.GetString("config")
	cfg, err := cfgpkg.Load(path)
	if err != nil {
		return Options{}, fmt.Errorf("load config: %w", err)
	}
	cfgpkg.FromEnv(&cfg)

	str := func(name string, dst *string) {
		if flags.Changed(name) {
			*dst, _ = flags.GetString(name)
		}
	}
	str("store", &cfg.Store.Backend)
	str("addr", &cfg.Store.Addr)
	str("password", &cfg.Store.Password)
	str("data-dir", &cfg.Store.DataDir)
	str("fsync", &cfg.Store.Fsync)
	str("lease-mode", &cfg.Lease.Mode)
	str("log-level", &cfg.Log.Level)
	str("log-format", &cfg.Log.Format)
	str("metrics-addr", &cfg.Metrics.Addr)
	if flags.Changed("db") {
		cfg.Store.DB, _ = flags.GetInt("db")
	}

	if err := cfg.Validate(); err != nil {
		return Options{}, usageError{fmt.Errorf("invalid configuration: %w", err)}
	}

	logger, err := logpkg.ApplyConfig(&logpkg.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Redact: []string{"password"},
	})
	if err != nil {
		return Options{}, usageError{err}
	}
	// Redirect stdlib logs (e.g., Pebble) to our logger
	logpkg.RedirectStdLog(logger)

	return Options{Config: cfg, Logger: logger, Stdout: stdout}, nil
}
