package report

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/alexisbeaulieu97/lorikeet/internal/model"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	nameStyle = lipgloss.NewStyle().Bold(true)
)

// TerminalReporter renders the human-readable report: one record per step in
// result order with name, pass, output, error, and duration in milliseconds.
type TerminalReporter struct {
	w     io.Writer
	color bool
}

// NewTerminalReporter writes to w, coloring output only when w is a terminal.
func NewTerminalReporter(w io.Writer) *TerminalReporter {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	return &TerminalReporter{w: w, color: color}
}

// Write renders every result record.
func (r *TerminalReporter) Write(results []model.StepResult) {
	for _, res := range results {
		r.writeRecord(res)
	}
}

func (r *TerminalReporter) writeRecord(res model.StepResult) {
	fmt.Fprintf(r.w, "- name: %s\n", r.styled(nameStyle, res.Name))

	verdict := "true"
	style := passStyle
	if !res.Pass() {
		verdict = "false"
		style = failStyle
	}
	fmt.Fprintf(r.w, "  pass: %s\n", r.styled(style, verdict))

	if res.Output != nil && *res.Output != "" {
		fmt.Fprintf(r.w, "  output: %s\n", indentBlock(*res.Output))
	}
	if res.Error != nil {
		fmt.Fprintf(r.w, "  error: %s\n", r.styled(failStyle, *res.Error))
	}

	fmt.Fprintf(r.w, "  duration: %.1fms\n", float64(res.Duration.Microseconds())/1000.0)
}

func (r *TerminalReporter) styled(style lipgloss.Style, text string) string {
	if !r.color {
		return text
	}
	return style.Render(text)
}

// indentBlock keeps multi-line probe output aligned under its field.
func indentBlock(text string) string {
	lines := strings.Split(text, "\n")
	if len(lines) == 1 {
		return text
	}
	return strings.Join(lines, "\n    ")
}
