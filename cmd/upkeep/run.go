package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ormasoftchile/upkeep/pkg/reporter"
	"github.com/ormasoftchile/upkeep/pkg/runner"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	runTags      []string
	runAssumeYes bool
)

var errStepsFailed = errors.New("one or more steps failed")

var runCmd = &cobra.Command{
	Use:   "run [scenario...]",
	Short: "Run scenarios interactively",
	Long: `Run the named scenarios, or every applicable scenario carrying --tags.

After a failed check the operator is offered the steps that fix it:
answer y to run a step, n to skip it or q to quit.`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var scenarios []*scenario.Scenario
	switch {
	case len(args) > 0:
		for _, name := range args {
			sc, err := a.catalog.Scenario(ctx, a.registry, name)
			if err != nil {
				return err
			}
			scenarios = append(scenarios, sc)
		}
	case len(runTags) > 0:
		scenarios = a.catalog.Scenarios(ctx, a.registry, runTags...)
		if len(scenarios) == 0 {
			return fmt.Errorf("no applicable scenario carries tags %v", runTags)
		}
	default:
		return fmt.Errorf("name a scenario or pass --tags (see `upkeep list`)")
	}

	rep, err := newReporter(cmd, a)
	if err != nil {
		return err
	}
	defer rep.Close()

	r := runner.New(rep, a.catalog, a.registry,
		runner.WithLogger(a.logger),
		runner.WithAssumeYes(runAssumeYes || a.cfg.AssumeYes))
	if err := r.Run(ctx, scenarios...); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("input closed before the run finished")
		}
		return err
	}
	if r.Failed() {
		return errStepsFailed
	}
	return nil
}

// newReporter builds the terminal reporter. Answers are read with line
// editing when stdin is a terminal.
func newReporter(cmd *cobra.Command, a *app) (*reporter.Reporter, error) {
	color, err := reporter.ParseColorMode(a.cfg.Color)
	if err != nil {
		return nil, err
	}
	opts := []reporter.Option{
		reporter.WithWidth(a.cfg.LineWidth),
		reporter.WithInterval(a.cfg.SpinnerInterval),
		reporter.WithColor(color),
		reporter.WithLogger(a.logger),
	}

	in, out := cmd.InOrStdin(), cmd.OutOrStdout()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		lr, err := reporter.NewReadlineReader(f, out)
		if err != nil {
			return nil, fmt.Errorf("init readline: %w", err)
		}
		opts = append(opts, reporter.WithLineReader(lr))
	}
	return reporter.New(out, in, opts...), nil
}
