// File: cmd/listen.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/droidpilot/internal/observability"
	"github.com/xkilldash9x/droidpilot/internal/orchestrator"
)

func newListenCmd(opts *rootOptions) *cobra.Command {
	var transcript string
	var fromStart bool

	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Execute every new line of a transcript file as a command",
		Long: `listen follows a transcript file, such as the output of a speech
recognizer, and runs each new non-empty line as one command. Commands run one
at a time in the order they were written.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.cfg.Listen()
			if cmd.Flags().Changed("transcript") {
				cfg.TranscriptPath = transcript
			}
			if cmd.Flags().Changed("from-start") {
				cfg.FromStart = fromStart
			}
			if cfg.TranscriptPath == "" {
				return fmt.Errorf("no transcript file configured (set --transcript or listen.transcript_path)")
			}
			return runListen(cmd.Context(), cmd.OutOrStdout(), opts, cfg.TranscriptPath, cfg.FromStart)
		},
	}
	cmd.Flags().StringVarP(&transcript, "transcript", "t", "", "transcript file to follow")
	cmd.Flags().BoolVar(&fromStart, "from-start", false, "also run lines already in the file")
	return cmd
}

func runListen(ctx context.Context, out io.Writer, opts *rootOptions, path string, fromStart bool) error {
	logger := observability.GetLogger().Named("listen")

	components, err := startSession(ctx, out, opts, logger)
	if err != nil {
		return err
	}
	defer components.Shutdown()

	tcfg := tail.Config{
		Follow:    true,
		ReOpen:    true,
		MustExist: false,
		Logger:    tail.DiscardingLogger,
	}
	if !fromStart {
		tcfg.Location = &tail.SeekInfo{Offset: 0, Whence: io.SeekEnd}
	}
	t, err := tail.TailFile(path, tcfg)
	if err != nil {
		return fmt.Errorf("failed to tail transcript file: %w", err)
	}
	defer t.Cleanup()

	headerColor.Fprintf(out, "Listening for commands in %s (Ctrl+C to stop)\n", path)
	logger.Info("Listening for commands.", zap.String("transcript", path))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		return t.Stop()
	})
	g.Go(func() error {
		// A closed transcript ends the session.
		defer cancel()
		return consumeTranscript(gctx, out, components.Orchestrator, t.Lines, logger)
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("Stopped listening.")
	return nil
}

// consumeTranscript processes lines one at a time. Command failures are
// reported and the loop continues; it returns when lines closes or ctx ends.
func consumeTranscript(ctx context.Context, out io.Writer, orch *orchestrator.Orchestrator, lines <-chan *tail.Line, logger *zap.Logger) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				logger.Warn("Error reading transcript.", zap.Error(line.Err))
				continue
			}
			command := strings.TrimSpace(line.Text)
			if command == "" {
				continue
			}

			headerColor.Fprintf(out, "\n> %s\n", command)
			if _, err := processCommand(ctx, out, orch, command); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				errorColor.Fprintf(out, "✗ %v\n", err)
			}
		}
	}
}
