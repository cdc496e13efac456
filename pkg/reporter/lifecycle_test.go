package reporter

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/ormasoftchile/upkeep/pkg/scenario"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStep(t *testing.T, r *Reporter, step *scenario.Step) *scenario.Execution {
	t.Helper()
	ex := scenario.NewExecution(step, nil, r)
	require.NoError(t, r.BeforeExecutionStarts(ex))
	require.NoError(t, ex.Run(context.Background()))
	require.NoError(t, r.AfterExecutionFinishes(ex))
	return ex
}

func TestBeforeScenarioStarts(t *testing.T) {
	r, out := newTestReporter(t, "")
	sc := &scenario.Scenario{Name: "pre-upgrade", Description: "# Checks before upgrading\n\ndetails"}
	require.NoError(t, r.BeforeScenarioStarts(sc))
	assert.Equal(t, "Running Checks before upgrading\n"+strings.Repeat("-", 80), out.String())
}

func TestFailWithoutOutput_LabelsStartLine(t *testing.T) {
	r, out := newTestReporter(t, "")
	runStep(t, r, &scenario.Step{
		Name:        "old-tasks",
		Description: "Check for old tasks",
		Run: func(ctx context.Context, ex *scenario.Execution) error {
			return scenario.ErrFail
		},
	})

	start := "Check for old tasks: "
	want := start + strings.Repeat(" ", 80-len(start)-len("[FAIL]")) + "[FAIL]\n" +
		strings.Repeat("-", 80) + "\n"
	assert.Equal(t, want, out.String())
}

func TestOutputPrintedAfterLabel(t *testing.T) {
	r, out := newTestReporter(t, "")
	runStep(t, r, &scenario.Step{
		Name: "disk",
		Run: func(ctx context.Context, ex *scenario.Execution) error {
			fmt.Fprintln(ex, "/var is 95% full")
			return scenario.ErrFail
		},
	})

	lines := strings.Split(out.String(), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasSuffix(lines[0], "[FAIL]"))
	assert.Equal(t, "/var is 95% full", lines[1])
	assert.Equal(t, strings.Repeat("-", 80), lines[2])
	assert.Empty(t, lines[3])
}

func TestSpinnerStepLabelsSpinnerLine(t *testing.T) {
	r, out := newTestReporter(t, "")
	runStep(t, r, &scenario.Step{
		Name: "services",
		Run: func(ctx context.Context, ex *scenario.Execution) error {
			return ex.WithSpinner("checking services", func(sp scenario.Spinner) error {
				sp.Update("checking postgresql")
				return nil
			})
		},
	})

	lines := strings.Split(out.String(), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "services: ", lines[0])
	assert.Contains(t, lines[1], "/ checking postgresql")
	assert.True(t, strings.HasSuffix(lines[1], "[OK]"))
}

func TestAfterScenarioFinishes(t *testing.T) {
	r, out := newTestReporter(t, "")
	ok := scenario.NewExecution(&scenario.Step{Name: "a"}, nil, nil)
	require.NoError(t, ok.Run(context.Background()))
	skipped := scenario.NewExecution(&scenario.Step{Name: "b"}, nil, nil)
	require.NoError(t, skipped.Skip())

	sc := &scenario.Scenario{Name: "checks"}
	require.NoError(t, r.AfterScenarioFinishes(sc, []*scenario.Execution{ok, skipped}))
	assert.Equal(t, "checks: 2 run, 1 ok, 0 failed, 1 skipped\n", out.String())
}
