package scenario

import (
	"errors"
	"fmt"
)

// Status is the outcome of a step within one run.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFail    Status = "fail"
	StatusSkipped Status = "skipped"
)

// ErrSkip is returned by a RunFunc to mark its step skipped instead of failed.
var ErrSkip = errors.New("step skipped")

// ErrFail is returned by a RunFunc to fail its step without adding a message
// to the output.
var ErrFail = errors.New("step failed")

// ErrOutcomeRecorded is returned when a terminal status would be overwritten.
var ErrOutcomeRecorded = errors.New("step outcome already recorded")

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether the status is a final outcome.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSuccess, StatusFail, StatusSkipped:
		return true
	}
	return false
}

// canMove reports whether a step may go from s to next.
//
//	pending -> running | skipped
//	running -> success | fail | skipped
func (s Status) canMove(next Status) error {
	if s.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", ErrOutcomeRecorded, s, next)
	}
	switch {
	case s == StatusPending && (next == StatusRunning || next == StatusSkipped):
		return nil
	case s == StatusRunning && next.IsTerminal():
		return nil
	}
	return fmt.Errorf("invalid status transition %s -> %s", s, next)
}
