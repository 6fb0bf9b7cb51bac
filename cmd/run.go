// File: cmd/run.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/orchestrator"
	"github.com/xkilldash9x/droidpilot/internal/service"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <command...>",
		Short: "Execute one natural-language command on the device",
		Example: `  droidpilot run open whatsapp and message mom
  droidpilot run --model llama-3.1-8b-instant go home`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), cmd.OutOrStdout(), opts, strings.Join(args, " "))
		},
	}
}

// runOnce starts a session, processes a single command and tears it down.
func runOnce(ctx context.Context, out io.Writer, opts *rootOptions, command string) error {
	logger := observability.GetLogger()

	components, err := startSession(ctx, out, opts, logger)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	_, err = processCommand(ctx, out, components.Orchestrator, command)
	return err
}

// startSession creates the components, starts the screen poller and waits for
// the first snapshot.
func startSession(ctx context.Context, out io.Writer, opts *rootOptions, logger *zap.Logger) (*service.Components, error) {
	factory := opts.newFactory(newConsoleSpeaker(out))
	components, err := factory.Create(ctx, opts.cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	components.Start(ctx)
	if _, err := components.WaitForScreen(ctx, opts.cfg.Host().StartupTimeout); err != nil {
		components.Shutdown()
		return nil, fmt.Errorf("failed to read device screen (is the device connected and authorized?): %w", err)
	}
	return components, nil
}

// processCommand runs command through orch while streaming its progress.
func processCommand(ctx context.Context, out io.Writer, orch *orchestrator.Orchestrator, command string) (*orchestrator.Result, error) {
	events, unsubscribe := orch.Events()
	defer unsubscribe()

	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		streamEvents(out, events, stop)
	}()

	res, err := orch.Process(ctx, command)
	close(stop)
	<-finished

	if res != nil {
		printResult(out, res)
	}
	if errors.Is(err, schemas.ErrConfiguration) {
		return res, fmt.Errorf("%w (set --api-key or DROIDPILOT_API_KEY)", err)
	}
	return res, err
}
