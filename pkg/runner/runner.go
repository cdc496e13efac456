// Package runner executes scenarios step by step, asking the operator what to
// do whenever a step offers follow-up steps.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ormasoftchile/upkeep/pkg/decision"
	"github.com/ormasoftchile/upkeep/pkg/feature"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
)

// Notes printed around checks that run again after their fix.
const (
	RerunNote        = "Rerunning the check after fix procedure"
	StillFailingNote = "Check still failing after attempt to fix. Skipping"
)

// Reporter is the terminal surface the runner drives.
type Reporter interface {
	scenario.Progress
	decision.Prompter
	BeforeScenarioStarts(sc *scenario.Scenario) error
	BeforeExecutionStarts(ex *scenario.Execution) error
	AfterExecutionFinishes(ex *scenario.Execution) error
	AfterScenarioFinishes(sc *scenario.Scenario, executions []*scenario.Execution) error
}

// Runner runs scenarios on one goroutine. It is not safe for concurrent use.
type Runner struct {
	reporter  Reporter
	engine    *decision.Engine
	catalog   *scenario.Catalog
	features  *feature.Registry
	logger    *slog.Logger
	assumeYes bool

	queue      []*scenario.Step
	rerunOf    map[*scenario.Step]*scenario.Step
	reruns     map[*scenario.Step]bool
	executions []*scenario.Execution
	quit       bool
	latest     map[string]scenario.Status
	err        error
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithAssumeYes approves every offered step without asking.
func WithAssumeYes(yes bool) Option {
	return func(r *Runner) {
		r.assumeYes = yes
	}
}

// WithEngine replaces the decision engine built on the reporter.
func WithEngine(e *decision.Engine) Option {
	return func(r *Runner) {
		r.engine = e
	}
}

// New creates a runner. The catalog resolves offered steps; features is
// handed to every execution.
func New(rep Reporter, cat *scenario.Catalog, features *feature.Registry, opts ...Option) *Runner {
	r := &Runner{
		reporter: rep,
		catalog:  cat,
		features: features,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		rerunOf:  make(map[*scenario.Step]*scenario.Step),
		reruns:   make(map[*scenario.Step]bool),
		latest:   make(map[string]scenario.Status),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.engine == nil {
		r.engine = decision.NewEngine(rep, decision.WithLogger(r.logger))
	}
	return r
}

// Run runs the scenarios in order until they are exhausted or the operator
// quits. Step failures are reported, not returned; the error is non-nil only
// when the terminal fails, input is closed or ctx is done.
func (r *Runner) Run(ctx context.Context, scenarios ...*scenario.Scenario) error {
	for _, sc := range scenarios {
		if r.quit {
			break
		}
		if err := r.RunScenario(ctx, sc); err != nil {
			return err
		}
	}
	return nil
}

// RunScenario runs one scenario.
func (r *Runner) RunScenario(ctx context.Context, sc *scenario.Scenario) error {
	r.queue = append([]*scenario.Step(nil), sc.Steps...)
	r.executions = nil
	clear(r.rerunOf)
	clear(r.reruns)

	r.logger.Info("scenario started", "scenario", sc.Name, "steps", len(sc.Steps))
	if err := r.reporter.BeforeScenarioStarts(sc); err != nil {
		return err
	}
	for len(r.queue) > 0 && !r.quit {
		if err := ctx.Err(); err != nil {
			return err
		}
		step := r.queue[0]
		r.queue = r.queue[1:]
		if err := r.runStep(ctx, step); err != nil {
			return err
		}
	}
	r.logger.Info("scenario finished", "scenario", sc.Name, "executions", len(r.executions), "quit", r.quit)
	return r.reporter.AfterScenarioFinishes(sc, r.executions)
}

func (r *Runner) runStep(ctx context.Context, step *scenario.Step) error {
	ex := scenario.NewExecution(step, r.features, r.reporter)
	if err := r.reporter.BeforeExecutionStarts(ex); err != nil {
		return err
	}
	if err := ex.Run(ctx); err != nil {
		return fmt.Errorf("run step %q: %w", step.Name, err)
	}
	r.executions = append(r.executions, ex)
	r.latest[step.Name] = ex.Status()
	r.logger.Debug("step finished", "step", step.Name, "status", ex.Status(), "duration", ex.Duration())
	if err := r.reporter.AfterExecutionFinishes(ex); err != nil {
		return err
	}

	if origin, ok := r.rerunOf[step]; ok && step.Status() == scenario.StatusSuccess {
		delete(r.rerunOf, step)
		if err := r.reporter.Puts(RerunNote); err != nil {
			return err
		}
		check := origin.Clone()
		r.reruns[check] = true
		r.prepend(check)
	}

	if !step.Offers() {
		return nil
	}
	// Without an operator to stop it, a fix that does not help would be
	// offered again forever.
	if r.assumeYes && r.reruns[step] {
		delete(r.reruns, step)
		r.logger.Debug("not offering fixes again", "step", step.Name, "status", step.Status())
		if step.Status() == scenario.StatusFail {
			return r.reporter.Puts(StillFailingNote)
		}
		return nil
	}
	next := r.catalog.NextSteps(ctx, r.features, step)
	for _, n := range next {
		if n.Rerun {
			r.rerunOf[n] = step
		}
	}
	if r.assumeYes {
		r.logger.Debug("assuming yes", "step", step.Name, "offered", len(next))
		r.prepend(next...)
		return nil
	}
	if err := r.engine.OnNextSteps(r, next); err != nil {
		return err
	}
	return r.err
}

// AddStep schedules step to run next.
func (r *Runner) AddStep(step *scenario.Step) {
	r.logger.Debug("step added", "step", step.Name)
	r.prepend(step)
}

// SkipToNext records step as skipped and moves on.
func (r *Runner) SkipToNext(step *scenario.Step) {
	if step == nil {
		return
	}
	ex := scenario.NewExecution(step, r.features, r.reporter)
	if err := ex.Skip(); err != nil {
		r.logger.Debug("cannot skip step", "step", step.Name, "error", err)
		return
	}
	r.executions = append(r.executions, ex)
	r.logger.Debug("step skipped", "step", step.Name)
	if err := r.reporter.BeforeExecutionStarts(ex); err != nil {
		r.err = err
		return
	}
	if err := r.reporter.AfterExecutionFinishes(ex); err != nil {
		r.err = err
	}
}

// AskToQuit stops the run before the next step starts.
func (r *Runner) AskToQuit(step *scenario.Step) {
	r.logger.Info("operator quit")
	r.quit = true
}

// Quit reports whether the operator quit.
func (r *Runner) Quit() bool {
	return r.quit
}

// Executions returns the executions of the last scenario run, including
// skipped steps.
func (r *Runner) Executions() []*scenario.Execution {
	return r.executions
}

// Failed reports whether the latest run of any step failed, across every
// scenario run so far. A check that passes when rerun after its fix no
// longer counts.
func (r *Runner) Failed() bool {
	for _, st := range r.latest {
		if st == scenario.StatusFail {
			return true
		}
	}
	return false
}

func (r *Runner) prepend(steps ...*scenario.Step) {
	r.queue = append(append([]*scenario.Step(nil), steps...), r.queue...)
}

var _ decision.Controller = (*Runner)(nil)
