// File: cmd/history.go
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/service"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently executed commands, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			history, closeFn, err := service.InitializeHistory(ctx, opts.cfg.History(), observability.GetLogger())
			if err != nil {
				return err
			}
			defer closeFn()

			entries, err := history.Recent(ctx, limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", schemas.DefaultHistoryLimit, "maximum number of entries to show")

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded commands",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			history, closeFn, err := service.InitializeHistory(ctx, opts.cfg.History(), observability.GetLogger())
			if err != nil {
				return err
			}
			defer closeFn()

			if err := history.Clear(ctx); err != nil {
				return err
			}
			successColor.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	})
	return cmd
}
