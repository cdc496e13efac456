package executor

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"

	"gopkg.in/yaml.v3"
)

// Recording is a replay file of pre-recorded command responses.
type Recording struct {
	Commands []RecordedCommand `yaml:"commands"`
}

// RecordedCommand is a pre-recorded command with its expected output.
// Stdin, when set, must match too.
type RecordedCommand struct {
	Argv     []string `yaml:"argv"`
	Stdin    string   `yaml:"stdin,omitempty"`
	Stdout   string   `yaml:"stdout"`
	Stderr   string   `yaml:"stderr"`
	ExitCode int      `yaml:"exit_code"`
	// Repeat lets the entry answer every matching call instead of just one.
	Repeat bool `yaml:"repeat,omitempty"`
}

// LoadRecording reads and parses a replay YAML file.
func LoadRecording(path string) (*Recording, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay file: %w", err)
	}
	return ParseRecording(data)
}

// ParseRecording parses replay YAML bytes.
func ParseRecording(data []byte) (*Recording, error) {
	var rec Recording
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("parse replay file: %w", err)
	}
	if len(rec.Commands) == 0 {
		return nil, fmt.Errorf("replay file must have at least one command")
	}
	return &rec, nil
}

// ReplayExecutor answers commands from a Recording. Fail-closed: a command
// with no matching entry is an error.
type ReplayExecutor struct {
	mu   sync.Mutex
	rec  *Recording
	used []bool
}

// NewReplayExecutor creates a ReplayExecutor from a loaded recording.
func NewReplayExecutor(rec *Recording) *ReplayExecutor {
	return &ReplayExecutor{
		rec:  rec,
		used: make([]bool, len(rec.Commands)),
	}
}

// Execute returns the first unused recorded response whose argv matches.
func (r *ReplayExecutor) Execute(ctx context.Context, c Command) (*Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	argv := c.Argv()
	for i, rc := range r.rec.Commands {
		if r.used[i] && !rc.Repeat {
			continue
		}
		if !slices.Equal(argv, rc.Argv) {
			continue
		}
		if rc.Stdin != "" && rc.Stdin != c.Stdin {
			continue
		}
		r.used[i] = true
		return &Result{
			Stdout:   []byte(rc.Stdout),
			Stderr:   []byte(rc.Stderr),
			ExitCode: rc.ExitCode,
		}, nil
	}
	return nil, fmt.Errorf("replay: no matching entry for command: %s", c)
}
