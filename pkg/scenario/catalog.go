package scenario

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/feature"
)

// Filter selects the steps of a scenario.
type Filter struct {
	// Tags a step must all carry. An empty filter matches every step.
	Tags []string
}

// Definition describes a scenario before composition.
type Definition struct {
	Name        string
	Description string
	Tags        []string
	// When is an optional boolean expression over detected features.
	When   string
	Filter Filter
}

// Scenario is an ordered list of applicable steps.
type Scenario struct {
	Name        string
	Description string
	Tags        []string
	Steps       []*Step
}

// Title is the human-readable label of the scenario.
func (s *Scenario) Title() string {
	line, _, _ := strings.Cut(strings.TrimSpace(s.Description), "\n")
	if line = strings.TrimSpace(strings.TrimLeft(line, "#")); line != "" {
		return line
	}
	return s.Name
}

// Catalog holds step templates and scenario definitions in the order they
// were added. Composition hands out fresh copies of the templates, so
// composing never changes the catalog.
type Catalog struct {
	steps     []*Step
	byName    map[string]*Step
	scenarios []*Definition
	logger    *slog.Logger
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) CatalogOption {
	return func(c *Catalog) {
		c.logger = logger
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		byName: make(map[string]*Step),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AddStep registers a step template. Names must be unique.
func (c *Catalog) AddStep(s *Step) error {
	if s.Name == "" {
		return fmt.Errorf("step has no name")
	}
	if _, dup := c.byName[s.Name]; dup {
		return fmt.Errorf("duplicate step %q", s.Name)
	}
	c.steps = append(c.steps, s)
	c.byName[s.Name] = s
	return nil
}

// AddScenario registers a scenario definition. Names must be unique.
func (c *Catalog) AddScenario(d *Definition) error {
	if d.Name == "" {
		return fmt.Errorf("scenario has no name")
	}
	for _, existing := range c.scenarios {
		if existing.Name == d.Name {
			return fmt.Errorf("duplicate scenario %q", d.Name)
		}
	}
	c.scenarios = append(c.scenarios, d)
	return nil
}

// Step returns the template with the given name.
func (c *Catalog) Step(name string) (*Step, bool) {
	s, ok := c.byName[name]
	return s, ok
}

// Steps returns every step template in catalog order.
func (c *Catalog) Steps() []*Step {
	return slices.Clone(c.steps)
}

// Definitions returns every scenario definition in catalog order.
func (c *Catalog) Definitions() []*Definition {
	return slices.Clone(c.scenarios)
}

// Applicable reports whether every feature the step requires is detected and
// its When expression holds. Expressions that fail to evaluate (for example
// by reaching into an absent feature) make the step inapplicable.
func (c *Catalog) Applicable(ctx context.Context, reg *feature.Registry, s *Step) bool {
	for _, name := range s.Requires {
		if !reg.Present(ctx, name) {
			c.logger.Debug("step not applicable", "step", s.Name, "missing_feature", name)
			return false
		}
	}
	return c.holds(ctx, reg, s.When, "step", s.Name)
}

func (c *Catalog) holds(ctx context.Context, reg *feature.Registry, when, kind, name string) bool {
	if when == "" {
		return true
	}
	ok, err := EvalBool(when, map[string]any{"features": reg.Env(ctx)})
	if err != nil {
		c.logger.Debug("condition not met", kind, name, "error", err)
		return false
	}
	return ok
}

// Compose returns fresh copies of the applicable steps matching filter, in
// catalog order. Composing again without a feature refresh yields the same
// list.
func (c *Catalog) Compose(ctx context.Context, reg *feature.Registry, filter Filter) []*Step {
	var out []*Step
	for _, s := range c.steps {
		if !s.HasTags(filter.Tags...) {
			continue
		}
		if !c.Applicable(ctx, reg, s) {
			continue
		}
		out = append(out, s.Clone())
	}
	c.logger.Debug("composed steps", "tags", filter.Tags, "count", len(out))
	return out
}

// NextSteps returns fresh copies of the applicable steps offered by s.
// Unknown names are skipped.
func (c *Catalog) NextSteps(ctx context.Context, reg *feature.Registry, s *Step) []*Step {
	var out []*Step
	for _, name := range s.Next {
		tmpl, ok := c.byName[name]
		if !ok {
			c.logger.Warn("unknown next step", "step", s.Name, "next", name)
			continue
		}
		if c.Applicable(ctx, reg, tmpl) {
			out = append(out, tmpl.Clone())
		}
	}
	return out
}

// Scenario composes the named scenario. It fails if the scenario is unknown
// or its When expression does not hold.
func (c *Catalog) Scenario(ctx context.Context, reg *feature.Registry, name string) (*Scenario, error) {
	for _, d := range c.scenarios {
		if d.Name != name {
			continue
		}
		if !c.holds(ctx, reg, d.When, "scenario", d.Name) {
			return nil, fmt.Errorf("scenario %q is not applicable to this system", name)
		}
		return c.compose(ctx, reg, d), nil
	}
	return nil, fmt.Errorf("unknown scenario %q", name)
}

// Scenarios composes every applicable scenario carrying all of tags.
func (c *Catalog) Scenarios(ctx context.Context, reg *feature.Registry, tags ...string) []*Scenario {
	var out []*Scenario
	for _, d := range c.scenarios {
		if !hasAll(d.Tags, tags) {
			continue
		}
		if !c.holds(ctx, reg, d.When, "scenario", d.Name) {
			continue
		}
		out = append(out, c.compose(ctx, reg, d))
	}
	return out
}

func (c *Catalog) compose(ctx context.Context, reg *feature.Registry, d *Definition) *Scenario {
	return &Scenario{
		Name:        d.Name,
		Description: d.Description,
		Tags:        slices.Clone(d.Tags),
		Steps:       c.Compose(ctx, reg, d.Filter),
	}
}

func hasAll(have, want []string) bool {
	for _, t := range want {
		if !slices.Contains(have, t) {
			return false
		}
	}
	return true
}
