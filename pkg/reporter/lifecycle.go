package reporter

import (
	"fmt"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/scenario"
)

// BeforeScenarioStarts announces the scenario and draws a rule under it.
func (r *Reporter) BeforeScenarioStarts(sc *scenario.Scenario) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsLocked("Running " + sc.Title())
	r.putsLocked(strings.Repeat("-", r.width))
	return r.stateErr()
}

// BeforeExecutionStarts prints the line the step's status label will close.
func (r *Reporter) BeforeExecutionStarts(ex *scenario.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsLocked(ex.Name + ": ")
	return r.stateErr()
}

// AfterExecutionFinishes labels the step line with its status, prints any
// output and closes the step with a rule.
func (r *Reporter) AfterExecutionFinishes(ex *scenario.Execution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsStatusLocked(ex.Status())
	if out := ex.Output(); out != "" {
		r.putsLocked(out)
	}
	r.putsLocked(strings.Repeat("-", r.width))
	r.newLineIfNeededLocked()
	return r.stateErr()
}

// AfterScenarioFinishes prints a one-line count of step outcomes.
func (r *Reporter) AfterScenarioFinishes(sc *scenario.Scenario, executions []*scenario.Execution) error {
	counts := make(map[scenario.Status]int)
	for _, ex := range executions {
		counts[ex.Status()]++
	}
	summary := fmt.Sprintf("%s: %d run, %d ok, %d failed, %d skipped",
		sc.Title(), len(executions),
		counts[scenario.StatusSuccess], counts[scenario.StatusFail], counts[scenario.StatusSkipped])

	r.mu.Lock()
	defer r.mu.Unlock()
	r.putsLocked(summary)
	r.newLineIfNeededLocked()
	return r.stateErr()
}
