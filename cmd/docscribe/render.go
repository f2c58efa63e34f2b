package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"docscribe/internal/preference"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)

	stepStyles = map[preference.StepStatus]lipgloss.Style{
		preference.StatusCompleted:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		preference.StatusActive:     lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		preference.StatusAccessible: lipgloss.NewStyle(),
		preference.StatusLocked:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	stepMarks = map[preference.StepStatus]string{
		preference.StatusCompleted:  "✓",
		preference.StatusActive:     "▸",
		preference.StatusAccessible: "○",
		preference.StatusLocked:     "✗",
	}
)

// Notifications go to stderr so stdout stays parseable.

func (a *app) success(format string, args ...any) {
	fmt.Fprintln(a.stderr, successStyle.Render("✓ ")+fmt.Sprintf(format, args...))
}

func (a *app) warn(format string, args ...any) {
	fmt.Fprintln(a.stderr, warnStyle.Render("! ")+fmt.Sprintf(format, args...))
}

func (a *app) info(format string, args ...any) {
	fmt.Fprintln(a.stderr, dimStyle.Render(fmt.Sprintf(format, args...)))
}

func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table writes tab-separated rows aligned into columns.
func (a *app) table(header []string, rows [][]string) error {
	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	if len(header) > 0 {
		fmt.Fprintln(tw, headerStyle.Render(strings.Join(header, "\t")))
	}
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func renderStep(n int, status preference.StepStatus) string {
	label := fmt.Sprintf("%s Step %d  %-20s %s", stepMarks[status], n, preference.StepName(n), status)
	return stepStyles[status].Render(label)
}

func renderTally(name string, t preference.Tally) []string {
	return []string{name, fmt.Sprint(t.Total), fmt.Sprint(t.Included), fmt.Sprint(t.Excluded)}
}

// renderMarkdown styles Markdown for the terminal, falling back to the raw
// text if the renderer fails.
func renderMarkdown(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err == nil {
		if out, rerr := r.Render(md); rerr == nil {
			_, err = io.WriteString(w, out)
			return err
		}
	}
	_, err = io.WriteString(w, md)
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
