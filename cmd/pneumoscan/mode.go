package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newModeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mode",
		Short: "Report whether the backend runs in demo or live mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.resolveMode(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, a.resolver.Current())
			return nil
		},
	}
}
