// Package catalog turns parsed definitions into feature detectors and
// runnable step templates.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/feature"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
	"github.com/ormasoftchile/upkeep/pkg/schema"
)

// Option configures Build.
type Option func(*builder)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *builder) {
		b.logger = logger
	}
}

type builder struct {
	reg    *feature.Registry
	logger *slog.Logger
}

// Build registers a detector on reg for every declared feature and returns a
// catalog holding every declared step and scenario.
func Build(defs *schema.Definitions, reg *feature.Registry, opts ...Option) (*scenario.Catalog, error) {
	b := &builder{
		reg:    reg,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(b)
	}

	for _, f := range defs.Features {
		reg.Register(f.Name, detector(f))
	}

	cat := scenario.NewCatalog(scenario.WithLogger(b.logger))
	for _, s := range defs.Steps {
		step := &scenario.Step{
			Name:        s.Name,
			Description: s.Description,
			Tags:        slices.Clone(s.Tags),
			Requires:    slices.Clone(s.Requires),
			When:        s.When,
			Run:         b.runFunc(s),
			Next:        slices.Clone(s.Next),
			OfferOn:     scenario.OfferPolicy(s.On),
			Rerun:       s.Rerun,
		}
		if err := cat.AddStep(step); err != nil {
			return nil, err
		}
	}
	for _, sc := range defs.Scenarios {
		err := cat.AddScenario(&scenario.Definition{
			Name:        sc.Name,
			Description: sc.Description,
			Tags:        slices.Clone(sc.Tags),
			When:        sc.When,
			Filter:      scenario.Filter{Tags: slices.Clone(sc.Filter.Tags)},
		})
		if err != nil {
			return nil, err
		}
	}
	b.logger.Debug("catalog built", "features", len(defs.Features), "steps", len(defs.Steps), "scenarios", len(defs.Scenarios))
	return cat, nil
}

func detector(f schema.Feature) feature.DetectFunc {
	return func(ctx context.Context, host *feature.Host) (feature.Feature, error) {
		var version string
		switch {
		case f.Detect.File != "":
			if !host.Exists(f.Detect.File) {
				return nil, nil
			}
			if argv := f.Detect.VersionCommand; len(argv) > 0 {
				res, err := host.Run(ctx, argv[0], argv[1:]...)
				if err != nil {
					return nil, err
				}
				if res.Success() {
					version = firstLine(res.Stdout)
				}
			}
		case len(f.Detect.Command) > 0:
			argv := f.Detect.Command
			res, err := host.Run(ctx, argv[0], argv[1:]...)
			if err != nil {
				return nil, err
			}
			if !res.Success() {
				return nil, nil
			}
			version = firstLine(res.Stdout)
		default:
			return nil, fmt.Errorf("feature %q has no detection rule", f.Name)
		}

		attrs := make(map[string]any, len(f.Detect.Attributes))
		for k, v := range f.Detect.Attributes {
			attrs[k] = v
		}
		if f.Database != nil {
			db := feature.NewDatabase(f.Name, host, f.Database.PSQL)
			db.Version = version
			maps.Copy(db.Attributes, attrs)
			return db, nil
		}
		return &feature.Basic{FeatureName: f.Name, Version: version, Attributes: attrs}, nil
	}
}

func firstLine(b []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	return strings.TrimSpace(line)
}
