package reporter

import (
	"errors"
	"io"

	"github.com/chzyer/readline"
)

// ReadlineReader reads answers with line editing. Ctrl-C answers "q" so an
// interrupted prompt quits the scenario instead of aborting mid-step.
type ReadlineReader struct {
	rl *readline.Instance
}

// NewReadlineReader opens a line editor on the given terminal streams.
func NewReadlineReader(in io.ReadCloser, out io.Writer) (*ReadlineReader, error) {
	rl, err := readline.NewEx(&readline.Config{
		Stdin:                  in,
		Stdout:                 out,
		InterruptPrompt:        "^C",
		EOFPrompt:              "quit",
		HistoryLimit:           -1,
		DisableAutoSaveHistory: true,
	})
	if err != nil {
		return nil, err
	}
	return &ReadlineReader{rl: rl}, nil
}

// ReadLine reads a line with the current prompt.
func (r *ReadlineReader) ReadLine() (string, error) {
	return r.read()
}

// ReadLinePrompt shows prompt and reads a line.
func (r *ReadlineReader) ReadLinePrompt(prompt string) (string, error) {
	r.rl.SetPrompt(prompt)
	return r.read()
}

func (r *ReadlineReader) read() (string, error) {
	line, err := r.rl.Readline()
	if errors.Is(err, readline.ErrInterrupt) {
		return "q", nil
	}
	return line, err
}

// Close restores the terminal.
func (r *ReadlineReader) Close() error {
	return r.rl.Close()
}
