package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"kairo/internal/core"
	"kairo/internal/types"
)

var (
	accent      = lipgloss.Color("#8BC34A")
	muted       = lipgloss.Color("#6b7785")
	destructive = lipgloss.Color("#e53935")
	warning     = lipgloss.Color("#f9a825")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	errorStyle   = lipgloss.NewStyle().Foreground(destructive)
	warnStyle    = lipgloss.NewStyle().Foreground(warning)
	domainStyle  = lipgloss.NewStyle().Width(13)
	scoreStyle   = lipgloss.NewStyle().Width(5).Align(lipgloss.Right)
	primaryStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	barStyle     = lipgloss.NewStyle().Foreground(accent)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

// newTable returns a table with a bold header row.
func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(mutedStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

const defaultWrap = 100

// newRenderer returns a glamour renderer, or nil when none can be built.
func newRenderer(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = defaultWrap
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderMarkdown renders md for the terminal. A nil renderer or a render
// failure falls back to the raw markdown.
func renderMarkdown(r *glamour.TermRenderer, md string) string {
	if r == nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// scoreTable renders one row per capability domain with a bar for its score.
func scoreTable(cls types.ClassificationResult) string {
	var b strings.Builder
	for _, d := range types.CapabilityDomains {
		score := cls.Scores[d]
		name := domainStyle.Render(string(d))
		if d == cls.Primary && score > 0 {
			name = primaryStyle.Inherit(domainStyle).Render(string(d))
		}
		bar := barStyle.Render(strings.Repeat("█", score/5))
		fmt.Fprintf(&b, "%s %s %s\n", name, scoreStyle.Render(fmt.Sprint(score)), bar)
	}
	return b.String()
}

// classificationSummary is the one-line headline of a classification.
func classificationSummary(cls types.ClassificationResult) string {
	parts := []string{fmt.Sprintf("primary %s (%d)", cls.Primary, cls.Confidence)}
	if cls.Degenerate() {
		parts = append(parts, "no match")
	}
	if cls.NeedsMultipleDomains {
		parts = append(parts, "multi-domain")
	}
	if cls.Comprehensive {
		parts = append(parts, "comprehensive")
	}
	if len(cls.Supporting) > 0 {
		parts = append(parts, "supporting "+joinDomains(cls.Supporting))
	}
	return strings.Join(parts, " · ")
}

func writeClassification(w io.Writer, cls types.ClassificationResult, trace bool) {
	fmt.Fprintln(w, titleStyle.Render(classificationSummary(cls)))
	fmt.Fprint(w, scoreTable(cls))
	if !trace || len(cls.Adjustments) == 0 {
		return
	}
	fmt.Fprintln(w, mutedStyle.Render("adjustments:"))
	for _, a := range cls.Adjustments {
		fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("  %-16s %-40s %-12s %+d", a.Kind, a.Rule, a.Domain, a.Delta)))
	}
}

func writePlan(w io.Writer, plan types.ActivationPlan) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("plan · priority %s", plan.Priority)))
	fmt.Fprintf(w, "domains: %s\n", joinDomains(plan.DomainList()))
	actions := make([]string, 0, len(plan.Actions))
	for _, a := range plan.ActionList() {
		actions = append(actions, string(a))
	}
	fmt.Fprintf(w, "actions: %s\n", strings.Join(actions, ", "))
	fmt.Fprintln(w, mutedStyle.Render("rules: "+strings.Join(plan.Rules, ", ")))
}

// outcomeHeader lists each planned domain with its status.
func outcomeHeader(out core.Outcome) string {
	ids := make([]string, 0, len(out.Results))
	for d := range out.Results {
		ids = append(ids, string(d))
	}
	sort.Strings(ids)

	var parts []string
	for _, id := range ids {
		r := out.Results[types.DomainID(id)]
		switch {
		case r.Succeeded():
			parts = append(parts, id)
		case r.Status == types.StatusSkipped:
			parts = append(parts, mutedStyle.Render(id+" (skipped)"))
		case r.Status == types.StatusUnavailable:
			parts = append(parts, warnStyle.Render(id+" (unavailable)"))
		default:
			parts = append(parts, errorStyle.Render(id+" (error)"))
		}
	}
	head := fmt.Sprintf("%s · %s · %s", out.RequestID, classificationSummary(out.Classification), out.Elapsed.Round(time.Millisecond))
	return titleStyle.Render(head) + "\n" + strings.Join(parts, "  ")
}

func joinDomains(ds []types.DomainID) string {
	if len(ds) == 0 {
		return "none"
	}
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = string(d)
	}
	return strings.Join(out, ", ")
}
