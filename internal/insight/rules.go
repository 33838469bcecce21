// Package insight turns the metric rows of a period into a
// short list of alerts and insights using fixed thresholds.
package insight

import (
	"fmt"

	"github.com/wesm/outboundview/internal/metrics"
)

// Level is the severity of a notice.
type Level string

const (
	LevelDanger  Level = "danger"
	LevelWarning Level = "warning"
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
)

// Notice is a single rendered alert or insight.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Report groups the notices of one evaluation. Info holds the
// single "all normal" notice when nothing else fired.
type Report struct {
	Alerts   []Notice `json:"alerts"`
	Insights []Notice `json:"insights"`
	Info     []Notice `json:"info"`
}

// All returns every notice in display order.
func (r Report) All() []Notice {
	out := make([]Notice, 0,
		len(r.Alerts)+len(r.Insights)+len(r.Info))
	out = append(out, r.Alerts...)
	out = append(out, r.Insights...)
	return append(out, r.Info...)
}

const (
	lowReplyRate     = 3.0
	// A global reply rate of exactly 15% already counts as high.
	highReplyRate    = 15.0
	minOriginSent    = 10
	topOriginMinConv = 5.0
	minAccountSent   = 20

	allNormalMessage    = "No critical alerts. Performance is within normal parameters."
	insufficientDataMsg = "Not enough data for account analysis: at least 20 sends per account are needed."
)

// Evaluate applies the alert and insight rules to rows.
func Evaluate(rows []metrics.Row) Report {
	var r Report
	total := metrics.Total(rows)

	if total.Sent > 0 {
		switch {
		case total.ReplyRate < lowReplyRate:
			r.Alerts = append(r.Alerts, Notice{
				Level: LevelDanger,
				Message: fmt.Sprintf(
					"Very low reply rate (%.1f%%). Review messaging and targeting.",
					total.ReplyRate),
			})
		case total.ReplyRate >= highReplyRate:
			r.Insights = append(r.Insights, Notice{
				Level: LevelSuccess,
				Message: fmt.Sprintf(
					"Excellent reply rate (%.1f%%). Consider scaling this strategy.",
					total.ReplyRate),
			})
		}
	}

	if total.LimitReached > 0 {
		r.Alerts = append(r.Alerts, Notice{
			Level: LevelWarning,
			Message: fmt.Sprintf(
				"%d origins have reached their sending limits. This may be capping outbound volume.",
				total.LimitReached),
		})
	}

	if top, ok := topOrigin(rows); ok &&
		top.ConversionRate > topOriginMinConv {
		r.Insights = append(r.Insights, Notice{
			Level: LevelSuccess,
			Message: fmt.Sprintf(
				"Standout origin: %q with %.1f%% conversion (%d sends).",
				top.Origin, top.ConversionRate, top.Sent),
		})
	}

	if len(rows) > 0 {
		if best, ok := topAccount(rows); ok {
			r.Insights = append(r.Insights, Notice{
				Level: LevelSuccess,
				Message: fmt.Sprintf(
					"Best performing account: %q (%.1f%% conversion, %d sends).",
					best.Name, best.ConversionRate, best.Sent),
			})
		} else {
			r.Insights = append(r.Insights, Notice{
				Level:   LevelWarning,
				Message: insufficientDataMsg,
			})
		}
	}

	if len(r.Alerts) == 0 && len(r.Insights) == 0 {
		r.Info = []Notice{{Level: LevelInfo, Message: allNormalMessage}}
	}
	return r
}

// topOrigin returns the row with the highest conversion rate
// among rows with enough sends. Ties keep the earliest row.
func topOrigin(rows []metrics.Row) (metrics.Row, bool) {
	var best metrics.Row
	found := false
	for _, r := range rows {
		if r.Sent < minOriginSent {
			continue
		}
		if !found || r.ConversionRate > best.ConversionRate {
			best = r
			found = true
		}
	}
	return best, found
}

// topAccount returns the account with the highest summed
// conversion rate among accounts with enough sends. Ties go to
// the larger account, then the smaller name.
func topAccount(rows []metrics.Row) (metrics.Named, bool) {
	var best metrics.Named
	found := false
	for _, a := range metrics.SortedByVolume(metrics.ByAccount(rows)) {
		if a.Sent < minAccountSent {
			continue
		}
		if !found || a.ConversionRate > best.ConversionRate {
			best = a
			found = true
		}
	}
	return best, found
}
