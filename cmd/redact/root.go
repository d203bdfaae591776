package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OPWeb-ui/EZtify-sub000/config"
	"github.com/OPWeb-ui/EZtify-sub000/memdoc"
	"github.com/OPWeb-ui/EZtify-sub000/metrics"
	"github.com/OPWeb-ui/EZtify-sub000/observability"
	"github.com/OPWeb-ui/EZtify-sub000/session"
)

// app carries the global flags and what PersistentPreRunE builds from them.
type app struct {
	configPath  string
	metricsFile string
	verbose     bool
	debug       bool

	cfg    config.Config
	zap    *zap.Logger
	logger observability.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: observability.NopLogger{}}
	root := &cobra.Command{
		Use:   "redact",
		Short: "Find and permanently redact sensitive content in documents",
		Long: `redact removes sensitive content from documents for good.

Pages carrying redactions are re-rendered, painted over and replaced by a
single image, so no text, font or vector data of the original survives on
them. Pages without redactions are copied unchanged.

Documents are read from the memdoc YAML format.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return a.setup() },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to a YAML or TOML configuration file")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile on exit")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "enable debug output")

	root.AddCommand(newSearchCmd(a), newExportCmd(a), newPreviewCmd(a))
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	level := cfg.Logging.Level
	switch {
	case a.debug:
		level = "debug"
	case a.verbose:
		level = "info"
	case level == "":
		level = "warn"
	}
	l, err := observability.NewLogger(cfg.Logging.Env, level)
	if err != nil {
		return err
	}
	a.cfg, a.zap, a.logger = cfg, l, observability.NewZap(l)
	if a.metricsFile != "" {
		metrics.Register()
	}
	a.logger.Debug("configuration loaded", observability.String("path", a.configPath),
		observability.String("level", level))
	return nil
}

func (a *app) teardown() error {
	if a.zap != nil {
		_ = a.zap.Sync()
	}
	if a.metricsFile == "" {
		return nil
	}
	if err := metrics.WriteTextfile(a.metricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}

// quiet reports whether progress should be shown with a spinner rather than
// log lines.
func (a *app) quiet() bool { return !a.verbose && !a.debug }

func (a *app) open(ctx context.Context, path string) (*session.Session, error) {
	doc, err := memdoc.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return session.Open(ctx, doc, a.cfg, session.WithLogger(a.logger))
}
