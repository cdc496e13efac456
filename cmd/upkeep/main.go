package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ormasoftchile/upkeep/pkg/schema"
	"github.com/spf13/cobra"
)

// Build metadata, set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	loadDotEnv()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// loadDotEnv reads a .env file from the working directory and sets
// any variables that aren't already set in the environment.
// Lines are KEY=VALUE (or KEY="VALUE"). Comments (#) and blanks are skipped.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		val = strings.Trim(strings.TrimSpace(val), `"'`)
		if os.Getenv(key) == "" {
			os.Setenv(key, val)
		}
	}
}

var rootCmd = &cobra.Command{
	Use:          "upkeep",
	Short:        "Interactive maintenance checks and fixes",
	Long:         "upkeep detects what is installed on this host, runs the checks that apply to it and walks the operator through fixing what fails.",
	SilenceUsage: true,
}

// --- validate ---

var validateCmd = &cobra.Command{
	Use:   "validate [definitions.yaml]",
	Short: "Validate a definitions file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	path := ""
	if len(args) == 1 {
		path = args[0]
	} else {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		path = cfg.Definitions
	}

	out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
	defs, errs := schema.ValidateFile(path)
	var failures []*schema.ValidationError
	for _, e := range errs {
		if e.Severity == "warning" {
			fmt.Fprintf(errOut, "  warning [%s] %s\n", e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(errOut, "    at: %s\n", e.Path)
			}
			continue
		}
		failures = append(failures, e)
	}
	if len(failures) > 0 {
		fmt.Fprintf(errOut, "Validation failed: %d error(s)\n\n", len(failures))
		for i, e := range failures {
			fmt.Fprintf(errOut, "  %d. [%s] %s\n", i+1, e.Phase, e.Message)
			if e.Path != "" {
				fmt.Fprintf(errOut, "     at: %s\n", e.Path)
			}
		}
		return fmt.Errorf("validation failed with %d error(s)", len(failures))
	}
	fmt.Fprintf(out, "%s is valid (%d features, %d steps, %d scenarios)\n",
		path, len(defs.Features), len(defs.Steps), len(defs.Scenarios))
	return nil
}

// --- schema export ---

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Schema operations",
}

var schemaExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the definitions JSON Schema to stdout",
	RunE:  runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	data, err := schema.GenerateJSONSchema()
	if err != nil {
		return fmt.Errorf("generate schema: %w", err)
	}
	if !json.Valid(data) {
		return fmt.Errorf("generated schema is not valid JSON")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "upkeep %s (build: %s)\n", version, commit)
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagConfig, "config", "", "Config file (default $UPKEEP_CONFIG or ~/.config/upkeep/config.yaml)")
	pf.StringVar(&flagDefinitions, "definitions", "", "Definitions YAML file")
	pf.StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.StringVar(&flagColor, "color", "", "Color status labels: auto, always or never")
	pf.StringVar(&flagRoot, "root", "", "Filesystem root for file-based feature detection")
	pf.StringVar(&flagMode, "mode", "", "Execution mode: real, dry-run or replay")
	pf.StringVar(&flagReplay, "replay", "", "Recorded command responses for --mode replay")

	runCmd.Flags().StringSliceVar(&runTags, "tags", nil, "Run every applicable scenario carrying all of these tags")
	runCmd.Flags().BoolVarP(&runAssumeYes, "assume-yes", "y", false, "Approve every offered step without asking")

	listCmd.Flags().StringSliceVar(&listTags, "tags", nil, "Only scenarios carrying all of these tags")
	featuresCmd.Flags().BoolVar(&featuresAll, "all", false, "Also list features that are not present")

	schemaCmd.AddCommand(schemaExportCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(featuresCmd)
	rootCmd.AddCommand(describeCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}
