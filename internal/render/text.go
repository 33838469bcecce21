package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/wesm/outboundview/internal/dashboard"
	"github.com/wesm/outboundview/internal/insight"
	"github.com/wesm/outboundview/internal/metrics"
)

// Styles holds the lipgloss styles of the terminal report.
type Styles struct {
	Title   lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
	Muted   lipgloss.Style
	Good    lipgloss.Style
	Warning lipgloss.Style
	Poor    lipgloss.Style
}

// DefaultStyles returns the report palette.
func DefaultStyles() Styles {
	return Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#101F38")),
		Header:  lipgloss.NewStyle().Bold(true).Padding(0, 1),
		Cell:    lipgloss.NewStyle().Padding(0, 1),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")),
		Good:    lipgloss.NewStyle().Foreground(lipgloss.Color("#8BC34A")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("#FFC107")),
		Poor:    lipgloss.NewStyle().Foreground(lipgloss.Color("#e53935")),
	}
}

func (s Styles) tier(t metrics.Tier) lipgloss.Style {
	switch t {
	case metrics.TierGood:
		return s.Good
	case metrics.TierWarning:
		return s.Warning
	case metrics.TierPoor:
		return s.Poor
	}
	return s.Cell
}

func (s Styles) level(l insight.Level) lipgloss.Style {
	switch l {
	case insight.LevelDanger:
		return s.Poor
	case insight.LevelWarning:
		return s.Warning
	case insight.LevelSuccess:
		return s.Good
	}
	return s.Muted
}

// table is a static text table. Columns after the first are
// right-aligned.
type table struct {
	title   string
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(s Styles) string {
	if len(t.rows) == 0 {
		return ""
	}
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	line := func(cells []string, st lipgloss.Style) string {
		parts := make([]string, len(widths))
		for i := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			align := lipgloss.Right
			if i == 0 {
				align = lipgloss.Left
			}
			parts[i] = st.Width(widths[i] + 2).Align(align).Render(cell)
		}
		return strings.Join(parts, s.Muted.Render("|"))
	}

	var sb strings.Builder
	if t.title != "" {
		sb.WriteString(s.Title.Render(t.title))
		sb.WriteString("\n")
	}
	sb.WriteString(line(t.headers, s.Header))
	sb.WriteString("\n")
	total := 0
	for _, w := range widths {
		total += w + 2
	}
	sb.WriteString(s.Muted.Render(
		strings.Repeat("-", total+len(widths)-1)))
	sb.WriteString("\n")
	for _, row := range t.rows {
		sb.WriteString(line(row, s.Cell))
		sb.WriteString("\n")
	}
	return sb.String()
}

// Text writes a terminal report of v to w.
func Text(w io.Writer, v dashboard.View, s Styles) error {
	var sb strings.Builder

	sb.WriteString(s.Title.Render(fmt.Sprintf(
		"Outbound report %s to %s (%d days)",
		v.Filter.From, v.Filter.To, v.Days)))
	sb.WriteString("\n\n")

	for _, e := range v.Errors {
		sb.WriteString(s.Poor.Render(e))
		sb.WriteString("\n")
	}
	if v.Empty {
		sb.WriteString(s.Muted.Render(
			"No data for the selected filters."))
		sb.WriteString("\n")
		_, err := io.WriteString(w, sb.String())
		return err
	}

	sum := v.Summary
	kpi := &table{title: "Key metrics", headers: []string{"Metric", "Value"}}
	kpi.add("Sent", Count(sum.Sent))
	kpi.add("Delivery rate",
		s.tier(sum.Tiers.Delivery).Render(Pct(sum.DeliveryRate)))
	kpi.add("Reply rate",
		s.tier(sum.Tiers.Reply).Render(Pct(sum.ReplyRate)))
	kpi.add("Qualification rate",
		s.tier(sum.Tiers.Qualification).Render(Pct(sum.QualificationRate)))
	kpi.add("Conversion rate",
		s.tier(sum.Tiers.Conversion).Render(Pct(sum.ConversionRate)))
	kpi.add("Meetings booked", Count(sum.Booked))
	sb.WriteString(kpi.render(s))
	sb.WriteString("\n")

	funnel := &table{
		title:   "Funnel",
		headers: []string{"Stage", "Count", "% of sent", "% of previous"},
	}
	for _, st := range v.Funnel.Stages {
		funnel.add(st.Name, Count(st.Value),
			Pct(st.PctOfInitial), Pct(st.PctOfPrevious))
	}
	sb.WriteString(funnel.render(s))
	sb.WriteString("\n")

	accounts := &table{
		title:   "Accounts",
		headers: []string{"Account", "Sent", "Reply rate", "Conversion"},
	}
	for _, a := range v.Accounts {
		accounts.add(a.Name, Count(a.Sent),
			Pct(a.ReplyRate), Pct(a.ConversionRate))
	}
	sb.WriteString(accounts.render(s))
	sb.WriteString("\n")

	origins := &table{
		title:   "Top origins",
		headers: []string{"Origin", "Channel", "Sent", "Reply rate", "Conversion"},
	}
	for _, o := range v.TopOrigins {
		origins.add(o.Origin, o.ChannelType, Count(o.Sent),
			Pct(o.ReplyRate), Pct(o.ConversionRate))
	}
	sb.WriteString(origins.render(s))
	sb.WriteString("\n")

	sb.WriteString(s.Title.Render("Alerts and insights"))
	sb.WriteString("\n")
	for _, n := range v.Report.All() {
		sb.WriteString(s.level(n.Level).Render("* " + n.Message))
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
