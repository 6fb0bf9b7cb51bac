// File: cmd/output.go
package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"

	"github.com/xkilldash9x/droidpilot/api/schemas"
	"github.com/xkilldash9x/droidpilot/internal/orchestrator"
)

var (
	headerColor  = color.New(color.Bold, color.FgCyan)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.Bold, color.FgRed)
	logColor     = color.New(color.Faint)
	speechColor  = color.New(color.FgMagenta)
)

// statusColor picks the color for a pipeline status line.
func statusColor(s orchestrator.Status) *color.Color {
	switch s {
	case orchestrator.StatusCompleted:
		return successColor
	case orchestrator.StatusFailed:
		return errorColor
	default:
		return headerColor
	}
}

// printEvent renders progress events. Outcomes and the final record are
// printed by printResult.
func printEvent(w io.Writer, ev orchestrator.Event) {
	switch ev.Kind {
	case orchestrator.EventStatus:
		statusColor(ev.Status).Fprintf(w, "» %s\n", ev.Message)
	case orchestrator.EventLog:
		logColor.Fprintf(w, "  %s\n", ev.Message)
	}
}

// streamEvents prints events until the command is done or stop is closed,
// then drains whatever is already buffered.
func streamEvents(w io.Writer, events <-chan orchestrator.Event, stop <-chan struct{}) {
	for {
		select {
		case ev, ok := <-events:
			if !ok || ev.Kind == orchestrator.EventDone {
				return
			}
			printEvent(w, ev)
		case <-stop:
			for {
				select {
				case ev, ok := <-events:
					if !ok || ev.Kind == orchestrator.EventDone {
						return
					}
					printEvent(w, ev)
				default:
					return
				}
			}
		}
	}
}

func printResult(w io.Writer, res *orchestrator.Result) {
	for _, line := range res.Summaries() {
		fmt.Fprintf(w, "  %s\n", line)
	}
	if res.Success {
		successColor.Fprintln(w, "✓ Command completed")
		return
	}
	if n := len(res.Outcomes); n > 0 && !res.Outcomes[n-1].Success {
		last := res.Outcomes[n-1]
		errorColor.Fprintf(w, "✗ %s: %s\n", last.Code, last.Message)
		return
	}
	errorColor.Fprintln(w, "✗ Command failed")
}

func printHistory(w io.Writer, entries []schemas.HistoryEntry) {
	if len(entries) == 0 {
		logColor.Fprintln(w, "No commands recorded yet.")
		return
	}
	for _, e := range entries {
		mark := successColor.Sprint("✓")
		if !e.Success {
			mark = errorColor.Sprint("✗")
		}
		fmt.Fprintf(w, "%s %s  %s\n", mark, logColor.Sprint(e.Timestamp.Local().Format(time.DateTime)), headerColor.Sprint(e.Command))
		if len(e.Actions) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(e.Actions, ", "))
		}
	}
}

// consoleSpeaker prints Speak messages to the terminal. It is the voice
// output of a headless session.
type consoleSpeaker struct {
	mu sync.Mutex
	w  io.Writer
}

var _ schemas.Speaker = (*consoleSpeaker)(nil)

func newConsoleSpeaker(w io.Writer) *consoleSpeaker {
	return &consoleSpeaker{w: w}
}

func (s *consoleSpeaker) Speak(_ context.Context, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := speechColor.Fprintf(s.w, "🔊 %s\n", message)
	return err
}
