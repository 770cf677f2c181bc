package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/pneumoscan/internal/backendclient"
	"github.com/example/pneumoscan/internal/config"
	"github.com/example/pneumoscan/internal/logging"
	"github.com/example/pneumoscan/internal/mode"
	"github.com/example/pneumoscan/internal/presenter"
	"github.com/example/pneumoscan/internal/simulator"
	"github.com/example/pneumoscan/internal/usecase"
	"github.com/example/pneumoscan/internal/workflow"
)

type rootOptions struct {
	backendURL string
	debug      bool
	width      int
}

// NewRootCmd creates the pneumoscan command tree.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:           "pneumoscan",
		Short:         "Screen chest X-rays for signs of pneumonia",
		Long:          `pneumoscan validates chest X-ray images, submits them to a classification backend (or simulates a result when the backend runs in demo mode) and renders the outcome.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.backendURL, "backend-url", "", "classification backend base URL (overrides $"+config.EnvBackendURL+")")
	flags.BoolVar(&opts.debug, "debug", false, "enable development logging")
	flags.IntVar(&opts.width, "width", 0, "terminal width in columns (defaults to $"+config.EnvColumns+")")

	rootCmd.AddCommand(newAnalyzeCmd(opts))
	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.AddCommand(newModeCmd(opts))
	return rootCmd
}

// app holds the collaborators shared by every subcommand.
type app struct {
	cfg        config.Client
	out        io.Writer
	logger     *zap.Logger
	resolver   *mode.Resolver
	dispatcher *usecase.Dispatcher
	terminal   *presenter.Terminal
}

func newApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	cfg := config.LoadClient()
	if cmd.Flags().Changed("backend-url") {
		cfg.BackendURL = opts.backendURL
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = opts.debug
	}
	if cmd.Flags().Changed("width") {
		cfg.Columns = opts.width
	}

	logger, err := logging.NewLogger(cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	if !cfg.Debug {
		// The terminal is the user interface; keep routine events off it.
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}

	client := backendclient.New(backendclient.Options{
		BaseURL:        cfg.BackendURL,
		HTTPClient:     &http.Client{Timeout: cfg.Timeout},
		PositiveMarker: cfg.PositiveMarker,
		SigningSecret:  cfg.JWTSecret,
		ClientID:       cfg.ClientID,
		Logger:         logger,
	})
	clock := clockwork.NewRealClock()
	out := cmd.OutOrStdout()

	return &app{
		cfg:        cfg,
		out:        out,
		logger:     logger,
		resolver:   mode.NewResolver(client, cfg.ModeTimeout, logger),
		dispatcher: usecase.NewDispatcher(client, simulator.New(nil, clock, cfg.DemoDelay), logger),
		terminal: presenter.NewTerminal(out, presenter.Options{
			Width:  cfg.Columns,
			Clock:  clock,
			Logger: logger,
		}),
	}, nil
}

// controller wires a workflow controller that renders to the terminal and
// reports every view to observe.
func (a *app) controller(observe func(workflow.View)) *workflow.Controller {
	render := workflow.PresenterFunc(func(v workflow.View) {
		a.terminal.Render(v)
		if observe != nil {
			observe(v)
		}
	})
	return workflow.NewController(a.dispatcher, a.resolver, render, a.logger)
}

// resolveMode starts mode discovery and waits for it or for ctx.
func (a *app) resolveMode(ctx context.Context) error {
	a.resolver.Start(ctx)
	select {
	case <-a.resolver.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *app) close() {
	a.terminal.Wait()
	_ = a.logger.Sync()
}

func dispatchAll(c *workflow.Controller, events ...workflow.Event) error {
	for _, ev := range events {
		if err := c.Dispatch(ev); err != nil {
			return err
		}
	}
	return nil
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
