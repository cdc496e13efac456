package reporter

import (
	"fmt"
	"io"
	"regexp"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"
	"github.com/ormasoftchile/upkeep/pkg/scenario"
)

// ColorMode controls status label coloring.
type ColorMode string

const (
	// ColorAuto colors when the output is a color terminal and NO_COLOR is unset.
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// ParseColorMode parses auto, always or never. Empty means auto.
func ParseColorMode(s string) (ColorMode, error) {
	switch ColorMode(s) {
	case "", ColorAuto:
		return ColorAuto, nil
	case ColorAlways, ColorNever:
		return ColorMode(s), nil
	}
	return "", fmt.Errorf("invalid color mode %q (want auto, always or never)", s)
}

var labelColors = []struct {
	status scenario.Status
	text   string
	color  lipgloss.Color
}{
	{scenario.StatusSuccess, "[OK]", lipgloss.Color("2")},
	{scenario.StatusFail, "[FAIL]", lipgloss.Color("1")},
	{scenario.StatusRunning, "[RUNNING]", lipgloss.Color("4")},
	{scenario.StatusSkipped, "[SKIPPED]", lipgloss.Color("3")},
}

func newRenderer(out io.Writer, mode ColorMode) *lipgloss.Renderer {
	re := lipgloss.NewRenderer(out)
	switch {
	case mode == ColorNever:
		re.SetColorProfile(termenv.Ascii)
	case mode == ColorAlways:
		re.SetColorProfile(termenv.ANSI)
	case termenv.EnvNoColor():
		re.SetColorProfile(termenv.Ascii)
	}
	return re
}

// renderLabels pre-renders the bold colored label of every reportable status.
func renderLabels(re *lipgloss.Renderer) map[scenario.Status]string {
	labels := make(map[scenario.Status]string, len(labelColors))
	for _, lc := range labelColors {
		labels[lc.status] = re.NewStyle().Foreground(lc.color).Bold(true).Render(lc.text)
	}
	return labels
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// visibleWidth is the number of terminal cells s occupies once escape
// sequences are removed.
func visibleWidth(s string) int {
	return runewidth.StringWidth(ansiRegex.ReplaceAllString(s, ""))
}
