package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/example/pneumoscan/internal/acquire"
	"github.com/example/pneumoscan/internal/workflow"
)

// errAnalysisFailed is returned after the error banner has been shown.
var errAnalysisFailed = errors.New("analysis failed")

func newAnalyzeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <image>",
		Short: "Classify a single JPEG or PNG image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			return a.analyze(cmd.Context(), args[0])
		},
	}
}

func (a *app) analyze(ctx context.Context, path string) error {
	file, err := acquire.LoadFile(path)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	outcome := make(chan workflow.View, 1)
	controller := a.controller(func(v workflow.View) {
		if v.State != workflow.ShowingResult && v.Error == "" {
			return
		}
		select {
		case outcome <- v:
		default:
		}
	})

	var final workflow.View
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return ignoreCanceled(controller.Run(gctx))
	})
	g.Go(func() error {
		defer cancel()
		if err := a.resolveMode(gctx); err != nil {
			return err
		}
		err := dispatchAll(controller,
			workflow.ModeResolved{},
			workflow.FileSelected{File: file, Source: "browse"},
			workflow.AnalyzeRequested{},
		)
		if err != nil {
			return err
		}
		select {
		case final = <-outcome:
			return nil
		case <-gctx.Done():
			return gctx.Err()
		}
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if final.Error != "" {
		return errAnalysisFailed
	}
	return nil
}
