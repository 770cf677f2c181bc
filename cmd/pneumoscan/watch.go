package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/example/pneumoscan/internal/acquire"
	"github.com/example/pneumoscan/internal/classification"
	"github.com/example/pneumoscan/internal/workflow"
)

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var settle time.Duration

	cmd := &cobra.Command{
		Use:   "watch <directory>",
		Short: "Classify every image dropped into a directory",
		Long:  `Watch a drop directory and classify each JPEG or PNG image written into it. A new drop replaces the previous result. Stop with Ctrl+C.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			return a.watch(cmd.Context(), args[0], settle)
		},
	}
	cmd.Flags().DurationVar(&settle, "settle", acquire.DefaultSettle, "quiet period before a dropped file is read")
	return cmd
}

func (a *app) watch(ctx context.Context, dir string, settle time.Duration) error {
	watcher, err := acquire.NewWatcher(dir, settle, clockwork.NewRealClock(), a.logger)
	if err != nil {
		return err
	}
	controller := a.controller(nil)
	fmt.Fprintf(a.out, "Watching %s for chest X-rays. Press Ctrl+C to stop.\n", dir)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(controller.Run(gctx))
	})
	g.Go(func() error {
		if a.resolveMode(gctx) != nil {
			return nil
		}
		return ignoreStopped(controller.Dispatch(workflow.ModeResolved{}))
	})
	g.Go(func() error {
		return watcher.Run(gctx, func(file classification.SelectedFile, err error) {
			if err != nil {
				return
			}
			events := []workflow.Event{workflow.FileSelected{File: file, Source: "drop"}, workflow.AnalyzeRequested{}}
			if controller.Snapshot().State == workflow.ShowingResult {
				events = append([]workflow.Event{workflow.ResetRequested{}}, events...)
			}
			if err := dispatchAll(controller, events...); err != nil && !errors.Is(err, workflow.ErrStopped) {
				a.logger.Warn("failed to dispatch dropped file", zap.String("filename", file.Name), zap.Error(err))
			}
		})
	})
	err = g.Wait()

	a.terminal.Wait()
	a.printSummary()
	return err
}

func (a *app) printSummary() {
	s := a.dispatcher.Metrics()
	fmt.Fprintf(a.out, "\n%d submissions (%d simulated), %d succeeded, %d positive, average confidence %.1f%%, average latency %.0fms\n",
		s.TotalRequests, s.DemoRequests, s.SuccessfulRequests, s.PositiveResults, s.AverageConfidence, s.AverageLatencyMs)
}

func ignoreStopped(err error) error {
	if errors.Is(err, workflow.ErrStopped) {
		return nil
	}
	return err
}
