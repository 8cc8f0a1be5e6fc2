// Package cli implements the colonyledger command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"colonyledger/internal/config"
	"colonyledger/internal/core"
	"colonyledger/internal/infra/persistence"
	"colonyledger/pkg/domain"
)

// RootOptions holds global flags and the wiring built before each command.
type RootOptions struct {
	ConfigPath  string
	Verbose     bool
	JSON        bool
	Report      string
	Trace       bool
	MetricsFile string // overrides metrics.textfile from the config

	// Repository and IDGenerator override the configured backend (for testing).
	Repository  domain.Repository
	IDGenerator domain.IDGenerator

	service     *core.Service
	logger      *zap.Logger
	registry    *prometheus.Registry
	metricsFile string
	closeFn     func() error
}

// NewRootCommand creates the root command with all subcommands attached.
func NewRootCommand(opts *RootOptions) *cobra.Command {
	if opts == nil {
		opts = &RootOptions{}
	}
	cmd := &cobra.Command{
		Use:   "colonyledger",
		Short: "Move and delete partitioned species records",
		Long: `colonyledger reorganises species and individual records across projects.

It moves whole species or hand-picked individuals between projects, merging
into matching species on the target side, and deletes projects either by
purging their records or by transferring them elsewhere.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd.Context())
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "print results as JSON")
	cmd.PersistentFlags().StringVar(&opts.Report, "report", "", "write a JSON report to path")
	cmd.PersistentFlags().BoolVar(&opts.Trace, "trace", false, "write JSON trace spans to stderr")
	cmd.PersistentFlags().StringVar(&opts.MetricsFile, "metrics-file", "", "write Prometheus metrics to path after the command")

	cmd.AddCommand(
		NewProjectsCommand(opts),
		NewValidateCommand(opts),
		NewSeedCommand(opts),
		NewTransferCommand(opts),
		NewDeleteCommand(opts),
	)
	return cmd
}

// Execute runs the command tree with process arguments.
func Execute(ctx context.Context) int {
	if err := run(ctx, &RootOptions{}, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return exitCode(err)
	}
	return 0
}

// run executes one command and always tears down what setup opened, including
// when the command itself fails.
func run(ctx context.Context, opts *RootOptions, args []string, stdout, stderr io.Writer) (err error) {
	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	defer func() {
		if terr := opts.teardown(); err == nil {
			err = terr
		}
	}()
	return cmd.ExecuteContext(ctx)
}

func (o *RootOptions) setup(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}

	logger, err := newZapLogger(cfg.Log, o.Verbose)
	if err != nil {
		return err
	}
	o.logger = logger

	repo := o.Repository
	o.closeFn = func() error { return nil }
	if repo == nil {
		var closeFn func() error
		repo, closeFn, err = persistence.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("open %s repository: %w", cfg.Storage.Driver, err)
		}
		o.closeFn = closeFn
	}

	o.registry = prometheus.NewRegistry()
	o.metricsFile = cfg.Metrics.Textfile
	if o.MetricsFile != "" {
		o.metricsFile = o.MetricsFile
	}
	metrics, err := core.NewPrometheusMetricsRecorder(o.registry, cfg.Metrics.Namespace)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	svcOpts := []core.ServiceOption{
		core.WithLogger(core.NewZapLogger(logger)),
		core.WithMetrics(metrics),
		core.WithIDGenerator(o.IDGenerator),
	}
	if o.Trace {
		svcOpts = append(svcOpts, core.WithTracer(core.NewJSONTracer(os.Stderr)))
	}
	o.service = core.NewService(repo, svcOpts...)
	logger.Debug("repository opened", zap.String("driver", string(cfg.Storage.Driver)))
	return nil
}

// teardown exports metrics, closes the repository and flushes the logger. It
// is safe to call more than once.
func (o *RootOptions) teardown() error {
	var errs []error
	if o.registry != nil && o.metricsFile != "" {
		if err := prometheus.WriteToTextfile(o.metricsFile, o.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		} else if o.logger != nil {
			o.logger.Debug("metrics written", zap.String("path", o.metricsFile))
		}
	}
	o.registry = nil
	if o.closeFn != nil {
		if err := o.closeFn(); err != nil {
			errs = append(errs, fmt.Errorf("close repository: %w", err))
		}
		o.closeFn = nil
	}
	if o.logger != nil {
		_ = o.logger.Sync()
		o.logger = nil
	}
	return errors.Join(errs...)
}

func newZapLogger(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parse log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zcfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.OutputPaths = []string{"stderr"}
	zcfg.ErrorOutputPaths = []string{"stderr"}
	return zcfg.Build()
}
