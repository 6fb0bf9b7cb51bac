// ./main.go
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/xkilldash9x/droidpilot/cmd"
	"github.com/xkilldash9x/droidpilot/internal/observability"
)

const panicLogFile = "panic.log"

const banner = `
  droidpilot - tell your phone what to do.
  Type a command ("open settings and turn on wifi"), or one of:
  history, snapshot, version, help. "exit" quits.

`

// Define function variables for dependency injection/mocking in tests.
var (
	osWriteFile = os.WriteFile
	osExit      = os.Exit
	newRoot     = cmd.NewRootCommand
)

// subcommands are the first words that interactive mode passes through to
// the CLI instead of treating the line as a device command.
var subcommands = map[string]bool{
	"run":      true,
	"listen":   true,
	"snapshot": true,
	"history":  true,
	"version":  true,
	"help":     true,
}

func main() {
	defer handlePanic()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		if err := cmd.Execute(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				osExit(0)
			} else {
				osExit(1)
			}
		}
		return
	}

	fmt.Print(banner)
	if err := repl(ctx, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "Error reading from stdin:", err)
		osExit(1)
	}
	fmt.Println("Bye.")
}

// repl reads one line at a time until EOF, "exit" or cancellation.
func repl(ctx context.Context, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for ctx.Err() == nil {
		fmt.Fprint(out, "droidpilot > ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			break
		}
		executeInteractiveCommand(ctx, out, interactiveArgs(line))
	}
	return scanner.Err()
}

// interactiveArgs maps a line to CLI arguments. Anything that does not start
// with a subcommand is a device command for `run`.
func interactiveArgs(line string) []string {
	fields := strings.Fields(line)
	if len(fields) > 0 && (subcommands[fields[0]] || strings.HasPrefix(fields[0], "-")) {
		return fields
	}
	return []string{"run", line}
}

// executeInteractiveCommand runs args on a fresh command tree so flags from
// one line never leak into the next. Panics are reported, not fatal.
func executeInteractiveCommand(ctx context.Context, out io.Writer, args []string) {
	rootCmd := newRoot()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(out)

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Error: Command panicked: %v\n", r)
		}
	}()
	if err := rootCmd.ExecuteContext(ctx); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
}

// handlePanic records an unrecovered panic in panicLogFile and exits.
func handlePanic() {
	r := recover()
	if r == nil {
		return
	}
	observability.Sync()

	panicMessage := fmt.Sprintf("panic: %v\n\n%s", r, debug.Stack())
	if err := osWriteFile(panicLogFile, []byte(panicMessage), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: Failed to write panic log: %v\n", err)
		fmt.Fprintf(os.Stderr, "Panic details:\n%s\n", panicMessage)
		osExit(1)
		return
	}
	fmt.Fprintf(os.Stderr, "droidpilot crashed. Details logged to %s\n", panicLogFile)
	osExit(2)
}
