// Package executor runs host commands on behalf of features and steps.
// Implementations: RealExecutor, DryRunExecutor, ReplayExecutor.
package executor

import (
	"context"
	"strings"
	"time"
)

// Command is a single process invocation.
type Command struct {
	Name  string
	Args  []string
	Env   []string
	Stdin string
}

// Argv returns the command name followed by its arguments.
func (c Command) Argv() []string {
	return append([]string{c.Name}, c.Args...)
}

func (c Command) String() string {
	return strings.Join(c.Argv(), " ")
}

// Result holds the output of a single command execution.
type Result struct {
	Stdout   []byte        `json:"stdout"`
	Stderr   []byte        `json:"stderr"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// Success reports whether the command exited with status 0.
func (r *Result) Success() bool {
	return r.ExitCode == 0
}

// Output returns stdout and stderr joined, trimmed of trailing whitespace.
func (r *Result) Output() string {
	out := string(r.Stdout)
	if len(r.Stderr) > 0 {
		if out != "" && !strings.HasSuffix(out, "\n") {
			out += "\n"
		}
		out += string(r.Stderr)
	}
	return strings.TrimRight(out, "\n\t ")
}

// CommandExecutor abstracts real, dry-run and replayed command execution.
// A non-zero exit status is reported in Result, not as an error; errors mean
// the command could not be run at all.
type CommandExecutor interface {
	Execute(ctx context.Context, cmd Command) (*Result, error)
}
