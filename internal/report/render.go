package report

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Outcome is the terminal state of one attempted item.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeWarning
)

// Item is one row of a final summary: the thing attempted and how it
// went. Detail carries the underlying tool's error text for failures.
type Item struct {
	Name    string
	Outcome Outcome
	Detail  string
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	skipStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	headStyle = lipgloss.NewStyle().Bold(true)
)

// Render produces the final summary block: a header and one line per
// item with its outcome and, for failures, the underlying error text.
func Render(title string, items []Item) string {
	var b strings.Builder
	b.WriteString(headStyle.Render(title))
	b.WriteString("\n")

	for _, it := range items {
		switch it.Outcome {
		case OutcomeSuccess:
			b.WriteString(fmt.Sprintf("  %s %s\n", okStyle.Render("✓"), it.Name))
		case OutcomeSkipped:
			b.WriteString(fmt.Sprintf("  %s %s (skipped)\n", skipStyle.Render("-"), it.Name))
		case OutcomeWarning:
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", warnStyle.Render("!"), it.Name, it.Detail))
		case OutcomeFailed:
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", failStyle.Render("✗"), it.Name, it.Detail))
		}
	}
	return b.String()
}
