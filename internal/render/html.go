// Package render turns a dashboard view into an HTML page or a
// terminal report.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/wesm/outboundview/internal/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTmpl = template.Must(
	template.New("").Funcs(template.FuncMap{
		"count":      Count,
		"pct":        Pct,
		"tier":       tierClass,
		"level":      levelClass,
		"multiple":   isMultiple,
		"meter":      clampPct,
		"share":      share,
		"isSelected": func(cur, v string) bool { return cur == v },
		"allValue":   func() string { return dashboard.AllValue },
	}).ParseFS(templateFS, "templates/*.html"),
)

// Page is the data behind one dashboard page.
type Page struct {
	Title   string
	Version string
	Query   dashboard.Query
	Options dashboard.Options

	// Invalid holds a filter validation message. When set,
	// View is not rendered.
	Invalid string
	// Errors are option-list failures shown alongside the
	// form.
	Errors []string
	View   *dashboard.View
}

// HTML writes the dashboard page to w. The page is rendered
// into a buffer first so a template failure never produces a
// partial response.
func HTML(w io.Writer, p Page) error {
	if p.Title == "" {
		p.Title = "Outbound Dashboard"
	}
	var buf bytes.Buffer
	if err := pageTmpl.ExecuteTemplate(&buf, "page.html", p); err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}
