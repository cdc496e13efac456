// Package scenario models steps, their executions and the scenarios composed
// from them.
package scenario

import (
	"context"
	"slices"
)

// RunFunc performs a step. Returning nil succeeds, ErrSkip skips, any other
// error fails the step. Output written to ex is shown after the step.
type RunFunc func(ctx context.Context, ex *Execution) error

// OfferPolicy decides when a step's next steps are offered to the operator.
type OfferPolicy string

const (
	// OfferOnFail offers next steps only when the step failed.
	OfferOnFail OfferPolicy = "fail"
	// OfferAlways offers next steps after every run.
	OfferAlways OfferPolicy = "always"
)

// Step is one unit of check or remediation work.
type Step struct {
	Name        string
	Description string
	Tags        []string
	// Requires names features that must be detected for the step to apply.
	Requires []string
	// When is an optional boolean expression over detected features.
	When string
	Run  RunFunc
	// Next names steps offered to the operator after this one runs.
	Next    []string
	OfferOn OfferPolicy
	// Rerun asks the runner to run the offering step again after this one.
	Rerun bool

	status Status
}

// Status returns the step's outcome in the current run.
func (s *Step) Status() Status {
	if s.status == "" {
		return StatusPending
	}
	return s.status
}

func (s *Step) setStatus(next Status) error {
	if err := s.Status().canMove(next); err != nil {
		return err
	}
	s.status = next
	return nil
}

// Title is the human-readable label of the step.
func (s *Step) Title() string {
	if s.Description != "" {
		return s.Description
	}
	return s.Name
}

// HasTags reports whether the step carries every tag in tags.
func (s *Step) HasTags(tags ...string) bool {
	for _, t := range tags {
		if !slices.Contains(s.Tags, t) {
			return false
		}
	}
	return true
}

// Offers reports whether the step's next steps should be offered given its
// current status.
func (s *Step) Offers() bool {
	if len(s.Next) == 0 {
		return false
	}
	switch s.OfferOn {
	case OfferAlways:
		return s.Status().IsTerminal() && s.Status() != StatusSkipped
	default:
		return s.Status() == StatusFail
	}
}

// Clone returns a copy of the step with a fresh pending status.
func (s *Step) Clone() *Step {
	c := *s
	c.Tags = slices.Clone(s.Tags)
	c.Requires = slices.Clone(s.Requires)
	c.Next = slices.Clone(s.Next)
	c.status = ""
	return &c
}
