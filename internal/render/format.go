package render

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/wesm/outboundview/internal/insight"
	"github.com/wesm/outboundview/internal/metrics"
)

var printer = message.NewPrinter(language.English)

// Count formats n with thousands separators.
func Count(n int64) string {
	return printer.Sprintf("%d", n)
}

// Pct formats a percentage with one decimal.
func Pct(v float64) string {
	return fmt.Sprintf("%.1f%%", v)
}

// tierClass maps a tier to its CSS class.
func tierClass(t metrics.Tier) string {
	switch t {
	case metrics.TierGood:
		return "good"
	case metrics.TierWarning:
		return "warning"
	case metrics.TierPoor:
		return "poor"
	}
	return "none"
}

func levelClass(l insight.Level) string {
	return string(l)
}

func isMultiple(c metrics.Cardinality) bool {
	return c == metrics.Multiple
}

// clampPct bounds v to [0, 100] for meter elements.
func clampPct(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// share returns part as a percentage of the largest value in
// a bar group.
func share(part, max int64) float64 {
	return clampPct(metrics.Percent(part, max))
}
