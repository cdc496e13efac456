// Package decision maps operator answers to runner actions.
package decision

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/scenario"
)

// Action is what the operator asked the runner to do with a proposed step.
type Action string

const (
	// AddStep runs the proposed step.
	AddStep Action = "add_step"
	// SkipToNext leaves the proposed step and moves on.
	SkipToNext Action = "skip_to_next"
	// AskToQuit stops the scenario before any further step starts.
	AskToQuit Action = "ask_to_quit"
)

// Table maps normalized answers to actions.
type Table map[string]Action

// DefaultTable is the answer table used by yes/no/quit prompts.
var DefaultTable = Table{
	"y":    AddStep,
	"yes":  AddStep,
	"n":    SkipToNext,
	"next": SkipToNext,
	"no":   SkipToNext,
	"q":    AskToQuit,
	"quit": AskToQuit,
}

// Filter looks up an answer after lower-casing and trimming it.
func (t Table) Filter(answer string) (Action, bool) {
	a, ok := t[strings.ToLower(strings.TrimSpace(answer))]
	return a, ok
}

// Selection is the outcome of choosing among several steps. Step is nil and
// Quit false when the operator chose none.
type Selection struct {
	Step *scenario.Step
	Quit bool
}

// Prompter is the terminal surface the engine talks through.
type Prompter interface {
	Ask(message string) (string, error)
	Puts(text string) error
	ClearLine() error
}

// Controller applies decisions to a run.
type Controller interface {
	AddStep(step *scenario.Step)
	SkipToNext(step *scenario.Step)
	AskToQuit(step *scenario.Step)
}

// Engine prompts the operator until an answer maps to a decision.
type Engine struct {
	prompter Prompter
	table    Table
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTable replaces the answer table.
func WithTable(t Table) Option {
	return func(e *Engine) {
		e.table = t
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine prompting through p.
func NewEngine(p Prompter, opts ...Option) *Engine {
	e := &Engine{
		prompter: p,
		table:    DefaultTable,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AskDecision asks a yes/no/quit question until the answer is in the table.
// The prompt line is cleared on return.
func (e *Engine) AskDecision(message string) (action Action, err error) {
	defer e.clearLine(&err)

	prompt := message + ", [y(yes), n(no), q(quit)]"
	for {
		answer, err := e.prompter.Ask(prompt)
		if err != nil {
			return "", err
		}
		if a, ok := e.table.Filter(answer); ok {
			e.logger.Debug("decision", "prompt", message, "answer", answer, "action", a)
			return a, nil
		}
		e.logger.Debug("unrecognized answer", "prompt", message, "answer", answer)
	}
}

var digits = regexp.MustCompile(`^\d+$`)

// AskToSelect asks the operator to pick one of steps by its 1-based number.
// Numbers outside the list and unrecognized answers ask again.
// The prompt line is cleared on return.
func (e *Engine) AskToSelect(message string, steps []*scenario.Step) (sel Selection, err error) {
	defer e.clearLine(&err)

	prompt := message + ", [n(next), q(quit)]"
	for {
		answer, err := e.prompter.Ask(prompt)
		if err != nil {
			return Selection{}, err
		}
		answer = strings.ToLower(strings.TrimSpace(answer))
		switch a, _ := e.table.Filter(answer); {
		case a == SkipToNext:
			return Selection{}, nil
		case digits.MatchString(answer):
			i, convErr := strconv.Atoi(answer)
			if convErr == nil && i >= 1 && i <= len(steps) {
				e.logger.Debug("step selected", "index", i, "step", steps[i-1].Name)
				return Selection{Step: steps[i-1]}, nil
			}
			e.logger.Debug("selection out of range", "answer", answer, "steps", len(steps))
		case a == AskToQuit:
			return Selection{Quit: true}, nil
		}
	}
}

// OnNextSteps lets the operator decide what to do with the steps offered
// after a step ran, and applies the decision to c.
func (e *Engine) OnNextSteps(c Controller, steps []*scenario.Step) error {
	switch {
	case len(steps) > 1:
		if err := e.prompter.Puts("There are multiple steps to proceed:"); err != nil {
			return err
		}
		for i, s := range steps {
			if err := e.prompter.Puts(fmt.Sprintf("%d) %s", i+1, s.Title())); err != nil {
				return err
			}
		}
		sel, err := e.AskToSelect("Select step to continue", steps)
		if err != nil {
			return err
		}
		switch {
		case sel.Quit:
			c.AskToQuit(nil)
		case sel.Step != nil:
			c.AddStep(sel.Step)
		}
	case len(steps) == 1:
		step := steps[0]
		action, err := e.AskDecision(fmt.Sprintf("Continue with step [%s]?", step.Title()))
		if err != nil {
			return err
		}
		Dispatch(c, action, step)
	}
	return nil
}

// Dispatch applies action to step on c.
func Dispatch(c Controller, action Action, step *scenario.Step) {
	switch action {
	case AddStep:
		c.AddStep(step)
	case SkipToNext:
		c.SkipToNext(step)
	case AskToQuit:
		c.AskToQuit(step)
	default:
		panic(fmt.Sprintf("decision: unknown action %q", action))
	}
}

func (e *Engine) clearLine(errp *error) {
	if err := e.prompter.ClearLine(); err != nil && *errp == nil {
		*errp = err
	}
}
