package main

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	listTags    []string
	featuresAll bool
)

// --- list ---

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the scenarios that apply to this host",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	scenarios := a.catalog.Scenarios(cmd.Context(), a.registry, listTags...)
	if len(scenarios) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No applicable scenarios.")
		return nil
	}
	var rows [][]string
	for _, sc := range scenarios {
		rows = append(rows, []string{sc.Name, strconv.Itoa(len(sc.Steps)), sc.Title()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"SCENARIO", "STEPS", "TITLE"}, rows))
	return nil
}

// --- features ---

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Show the features detected on this host",
	Args:  cobra.NoArgs,
	RunE:  runFeatures,
}

func runFeatures(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var rows [][]string
	for _, name := range a.registry.Names() {
		f, err := a.registry.Get(ctx, name)
		if err != nil {
			return err
		}
		if f == nil {
			if featuresAll {
				rows = append(rows, []string{name, "no", "", ""})
			}
			continue
		}
		attrs := f.Attrs()
		version, _ := attrs["version"].(string)
		var extra []string
		for _, k := range slices.Sorted(maps.Keys(attrs)) {
			if k == "name" || k == "version" {
				continue
			}
			extra = append(extra, fmt.Sprintf("%s=%v", k, attrs[k]))
		}
		rows = append(rows, []string{name, "yes", version, strings.Join(extra, " ")})
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No features detected.")
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"FEATURE", "PRESENT", "VERSION", "ATTRIBUTES"}, rows))
	return nil
}

// --- describe ---

var describeCmd = &cobra.Command{
	Use:   "describe <scenario>",
	Short: "Describe a scenario and the steps it would run",
	Args:  cobra.ExactArgs(1),
	RunE:  runDescribe,
}

func runDescribe(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	sc, err := a.catalog.Scenario(cmd.Context(), a.registry, args[0])
	if err != nil {
		return err
	}

	var md strings.Builder
	desc := strings.TrimSpace(sc.Description)
	if desc == "" {
		desc = "# " + sc.Name
	}
	md.WriteString(desc + "\n\n## Steps\n\n")
	if len(sc.Steps) == 0 {
		md.WriteString("No step applies to this host.\n")
	}
	for i, s := range sc.Steps {
		fmt.Fprintf(&md, "%d. **%s** (`%s`)", i+1, s.Title(), s.Name)
		if len(s.Next) > 0 {
			fmt.Fprintf(&md, ", offers %s", strings.Join(s.Next, ", "))
		}
		md.WriteString("\n")
	}

	style := glamour.WithAutoStyle()
	if a.cfg.Color == "never" {
		style = glamour.WithStandardStyle("notty")
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(a.cfg.LineWidth))
	if err != nil {
		fmt.Fprint(cmd.OutOrStdout(), md.String())
		return nil
	}
	out, err := r.Render(md.String())
	if err != nil {
		return fmt.Errorf("render description: %w", err)
	}
	fmt.Fprint(cmd.OutOrStdout(), out)
	return nil
}

// renderTable renders rows under headers with a plain border.
func renderTable(headers []string, rows [][]string) string {
	cell := lipgloss.NewStyle().Padding(0, 1)
	header := cell.Bold(true)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}
