// File: cmd/snapshot.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/screen"
)

func newSnapshotCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Print the current screen exactly as the planner sees it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			components, err := opts.newFactory(nil).Create(ctx, opts.cfg, observability.GetLogger())
			if err != nil {
				return fmt.Errorf("failed to initialize components: %w", err)
			}
			defer components.Shutdown()

			state, err := components.Host.CurrentSnapshot(ctx)
			if err != nil {
				return fmt.Errorf("failed to capture screen: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), screen.Serialize(*state))
			return nil
		},
	}
}
