package scenario

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ormasoftchile/upkeep/pkg/feature"
)

// Spinner is the live progress line handed to a running step.
type Spinner interface {
	Update(line string)
}

// Progress renders live progress while a step works.
type Progress interface {
	WithSpinner(message string, fn func(Spinner) error) error
}

// Execution records one run of a step: its name, status and accumulated
// output. It is owned by the runner for the duration of the step.
type Execution struct {
	Name      string
	Step      *Step
	StartedAt time.Time
	EndedAt   time.Time
	// Features is the registry the step may query.
	Features *feature.Registry

	progress Progress
	output   strings.Builder
}

// NewExecution prepares an execution of step. progress may be nil.
func NewExecution(step *Step, features *feature.Registry, progress Progress) *Execution {
	return &Execution{
		Name:     step.Title(),
		Step:     step,
		Features: features,
		progress: progress,
	}
}

// Status is the status of the wrapped step.
func (e *Execution) Status() Status {
	return e.Step.Status()
}

// Write appends to the execution output.
func (e *Execution) Write(p []byte) (int, error) {
	return e.output.Write(p)
}

// Output returns the accumulated output without trailing newlines.
func (e *Execution) Output() string {
	return strings.TrimRight(e.output.String(), "\n")
}

// Duration is how long the step ran.
func (e *Execution) Duration() time.Duration {
	if e.EndedAt.IsZero() {
		return 0
	}
	return e.EndedAt.Sub(e.StartedAt)
}

// WithSpinner shows a spinner for the duration of fn.
func (e *Execution) WithSpinner(message string, fn func(Spinner) error) error {
	if e.progress == nil {
		return fn(nopSpinner{})
	}
	return e.progress.WithSpinner(message, fn)
}

// Run executes the step to completion and records its outcome.
// Step failures are recorded in the status, not returned; the error is only
// non-nil when the step had already been run.
func (e *Execution) Run(ctx context.Context) error {
	if err := e.Step.setStatus(StatusRunning); err != nil {
		return err
	}
	e.StartedAt = time.Now()

	var err error
	if e.Step.Run != nil {
		err = e.Step.Run(ctx, e)
	}
	e.EndedAt = time.Now()

	switch {
	case err == nil:
		return e.Step.setStatus(StatusSuccess)
	case errors.Is(err, ErrSkip):
		return e.Step.setStatus(StatusSkipped)
	case err == ErrFail:
		return e.Step.setStatus(StatusFail)
	default:
		if e.output.Len() > 0 && !strings.HasSuffix(e.output.String(), "\n") {
			e.output.WriteByte('\n')
		}
		e.output.WriteString(err.Error())
		return e.Step.setStatus(StatusFail)
	}
}

// Skip records the step as skipped without running it.
func (e *Execution) Skip() error {
	now := time.Now()
	e.StartedAt, e.EndedAt = now, now
	return e.Step.setStatus(StatusSkipped)
}

type nopSpinner struct{}

func (nopSpinner) Update(string) {}
