// Command ffiprobe inspects the exported surface and calls it from the
// command line, an interactive terminal UI, or a WebAssembly guest.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/config"
	"github.com/wippyai/ffi-bridge/guard"
	"github.com/wippyai/ffi-bridge/surface"
	"github.com/wippyai/ffi-bridge/wasmhost"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

type app struct {
	cfg    config.Config
	logger *zap.Logger

	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "ffiprobe",
		Short:         "Inspect and call the ffi-bridge surface",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			a.teardown()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.logLevel, "log-level", "", "log level, overrides "+config.Prefix+"LOG_LEVEL")
	flags.StringVar(&a.logFormat, "log-format", "", "console or json, overrides "+config.Prefix+"LOG_FORMAT")

	root.AddCommand(
		newListCmd(a),
		newCallCmd(a),
		newHeaderCmd(a),
		newManifestCmd(a),
		newGuestCmd(a),
		newInteractiveCmd(a),
	)
	return root
}

// setup loads the environment configuration, layers the flags on top and
// installs the logger in every package that logs.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.logFormat != "" {
		cfg.LogFormat = a.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	buffer.SetLogger(logger.Named("buffer"))
	guard.SetLogger(logger.Named("guard"))
	surface.SetLogger(logger.Named("surface"))
	wasmhost.SetLogger(logger.Named("wasmhost"))

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) teardown() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}
