package scenario

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecution_Outcomes(t *testing.T) {
	cases := []struct {
		name   string
		run    RunFunc
		status Status
		output string
	}{
		{"success", func(ctx context.Context, ex *Execution) error {
			fmt.Fprintln(ex, "all good")
			return nil
		}, StatusSuccess, "all good"},
		{"fail", func(ctx context.Context, ex *Execution) error {
			fmt.Fprint(ex, "3 paused tasks")
			return errors.New("old tasks found")
		}, StatusFail, "3 paused tasks\nold tasks found"},
		{"skip", func(ctx context.Context, ex *Execution) error {
			return fmt.Errorf("nothing to do: %w", ErrSkip)
		}, StatusSkipped, ""},
		{"bare fail", func(ctx context.Context, ex *Execution) error {
			return ErrFail
		}, StatusFail, ""},
		{"nil run", nil, StatusSuccess, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			step := &Step{Name: tc.name, Run: tc.run}
			ex := NewExecution(step, nil, nil)
			require.NoError(t, ex.Run(context.Background()))
			assert.Equal(t, tc.status, ex.Status())
			assert.Equal(t, tc.output, ex.Output())
		})
	}
}

func TestExecution_OutcomeIsMonotonic(t *testing.T) {
	step := &Step{Name: "once"}
	require.NoError(t, NewExecution(step, nil, nil).Run(context.Background()))

	err := NewExecution(step, nil, nil).Run(context.Background())
	assert.ErrorIs(t, err, ErrOutcomeRecorded)

	err = NewExecution(step, nil, nil).Skip()
	assert.ErrorIs(t, err, ErrOutcomeRecorded)
	assert.Equal(t, StatusSuccess, step.Status())
}

func TestExecution_RunningDuringRun(t *testing.T) {
	var seen Status
	step := &Step{Name: "s", Run: func(ctx context.Context, ex *Execution) error {
		seen = ex.Status()
		return nil
	}}
	ex := NewExecution(step, nil, nil)
	assert.Equal(t, StatusPending, ex.Status())
	require.NoError(t, ex.Run(context.Background()))
	assert.Equal(t, StatusRunning, seen)
}

func TestExecution_SkipFromPending(t *testing.T) {
	step := &Step{Name: "s", Description: "Remove old tasks"}
	ex := NewExecution(step, nil, nil)
	assert.Equal(t, "Remove old tasks", ex.Name)
	require.NoError(t, ex.Skip())
	assert.Equal(t, StatusSkipped, step.Status())
}

func TestExecution_WithSpinnerWithoutProgress(t *testing.T) {
	ex := NewExecution(&Step{Name: "s"}, nil, nil)
	called := false
	err := ex.WithSpinner("working", func(sp Spinner) error {
		sp.Update("still working")
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}

func TestStep_Offers(t *testing.T) {
	failed := &Step{Name: "check", Next: []string{"fix"}, status: StatusFail}
	passed := &Step{Name: "check", Next: []string{"fix"}, status: StatusSuccess}
	always := &Step{Name: "check", Next: []string{"fix"}, OfferOn: OfferAlways, status: StatusSuccess}
	none := &Step{Name: "check", status: StatusFail}

	assert.True(t, failed.Offers())
	assert.False(t, passed.Offers())
	assert.True(t, always.Offers())
	assert.False(t, none.Offers())
}

func TestStep_CloneResetsStatus(t *testing.T) {
	s := &Step{Name: "s", Tags: []string{"a"}, status: StatusFail}
	c := s.Clone()
	assert.Equal(t, StatusPending, c.Status())
	c.Tags[0] = "b"
	assert.Equal(t, "a", s.Tags[0])
}
