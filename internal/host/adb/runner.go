// internal/host/adb/runner.go
package adb

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes one adb invocation and returns its standard output.
type Runner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

// ExecRunner runs the adb binary, targeting Serial when it is set.
type ExecRunner struct {
	Path   string
	Serial string
}

var _ Runner = ExecRunner{}

func (r ExecRunner) Run(ctx context.Context, args ...string) (string, error) {
	path := r.Path
	if path == "" {
		path = "adb"
	}
	if r.Serial != "" {
		args = append([]string{"-s", r.Serial}, args...)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return stdout.String(), fmt.Errorf("adb %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}
