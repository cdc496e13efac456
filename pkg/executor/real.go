package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// RealExecutor runs commands via os/exec.
type RealExecutor struct{}

// Execute runs the command and collects its output and exit status.
func (r *RealExecutor) Execute(ctx context.Context, c Command) (*Result, error) {
	start := time.Now()
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	if len(c.Env) > 0 {
		cmd.Env = c.Env
	}
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("execute command %q: %w", c.Name, err)
		}
	}

	return &Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: exitCode,
		Duration: duration,
	}, nil
}

// DryRunExecutor records commands without executing them.
type DryRunExecutor struct {
	Commands []Command
}

// Execute records the command and returns placeholder output.
func (d *DryRunExecutor) Execute(ctx context.Context, c Command) (*Result, error) {
	d.Commands = append(d.Commands, c)
	return &Result{
		Stdout:   []byte("<dry-run>"),
		ExitCode: 0,
	}, nil
}
