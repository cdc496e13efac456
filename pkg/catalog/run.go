package catalog

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ormasoftchile/upkeep/pkg/executor"
	"github.com/ormasoftchile/upkeep/pkg/feature"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
	"github.com/ormasoftchile/upkeep/pkg/schema"
)

func (b *builder) runFunc(s schema.Step) scenario.RunFunc {
	message := s.Spinner
	if message == "" {
		message = s.Description
	}
	if message == "" {
		message = s.Name
	}

	return func(ctx context.Context, ex *scenario.Execution) error {
		return ex.WithSpinner(message, func(sp scenario.Spinner) error {
			switch {
			case len(s.Command) > 0:
				return b.runCommand(ctx, ex, sp, s)
			case s.Query != "":
				return b.runQuery(ctx, ex, sp, s)
			case s.SQL != "":
				return b.runSQL(ctx, ex, sp, s)
			}
			return fmt.Errorf("step %q has no action", s.Name)
		})
	}
}

func (b *builder) runCommand(ctx context.Context, ex *scenario.Execution, sp scenario.Spinner, s schema.Step) error {
	cmd := executor.Command{Name: s.Command[0], Args: s.Command[1:]}
	sp.Update(fmt.Sprintf("running %s", cmd))
	res, err := ex.Features.Host().Exec.Execute(ctx, cmd)
	if err != nil {
		return err
	}
	out := res.Output()
	b.logger.Debug("command finished", "step", s.Name, "exit_code", res.ExitCode, "duration", res.Duration)

	if s.FailIf == "" {
		if !res.Success() {
			if out != "" {
				fmt.Fprintln(ex, out)
			}
			return fmt.Errorf("%s exited with code %d", cmd, res.ExitCode)
		}
		return nil
	}
	failed, err := scenario.EvalBool(s.FailIf, b.checkEnv(ctx, ex, nil, out, res.ExitCode))
	if err != nil {
		return err
	}
	if failed {
		if out != "" {
			fmt.Fprintln(ex, out)
		}
		return scenario.ErrFail
	}
	return nil
}

func (b *builder) runQuery(ctx context.Context, ex *scenario.Execution, sp scenario.Spinner, s schema.Step) error {
	db, err := database(ctx, ex.Features, s.Feature)
	if err != nil {
		return err
	}
	sp.Update(fmt.Sprintf("querying %s", s.Feature))
	rows, err := db.Query(ctx, s.Query)
	if err != nil {
		return err
	}
	b.logger.Debug("query finished", "step", s.Name, "rows", len(rows))

	failed := len(rows) > 0
	if s.FailIf != "" {
		anyRows := make([]any, len(rows))
		for i, r := range rows {
			m := make(map[string]any, len(r))
			for k, v := range r {
				m[k] = v
			}
			anyRows[i] = m
		}
		failed, err = scenario.EvalBool(s.FailIf, b.checkEnv(ctx, ex, anyRows, "", 0))
		if err != nil {
			return err
		}
	}
	if !failed {
		return nil
	}
	for _, r := range rows {
		fmt.Fprintln(ex, formatRow(r))
	}
	return scenario.ErrFail
}

func (b *builder) runSQL(ctx context.Context, ex *scenario.Execution, sp scenario.Spinner, s schema.Step) error {
	db, err := database(ctx, ex.Features, s.Feature)
	if err != nil {
		return err
	}
	sp.Update(fmt.Sprintf("executing on %s", s.Feature))
	out, err := db.Execute(ctx, s.SQL)
	if err != nil {
		return err
	}
	fmt.Fprint(ex, out)
	return nil
}

func (b *builder) checkEnv(ctx context.Context, ex *scenario.Execution, rows []any, output string, exitCode int) map[string]any {
	return map[string]any{
		"features":  ex.Features.Env(ctx),
		"rows":      rows,
		"output":    output,
		"exit_code": exitCode,
	}
}

func database(ctx context.Context, reg *feature.Registry, name string) (*feature.Database, error) {
	f, err := reg.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("feature %q is not present", name)
	}
	db, ok := f.(*feature.Database)
	if !ok {
		return nil, fmt.Errorf("feature %q is not a database", name)
	}
	return db, nil
}

// formatRow renders a row as column=value pairs sorted by column name.
func formatRow(r map[string]string) string {
	keys := slices.Sorted(maps.Keys(r))
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + r[k]
	}
	return strings.Join(parts, " ")
}
