package db

import (
	"fmt"
	"strings"
	"time"
)

// Filter is the shared filter for all dashboard queries. It
// is also the memoization key of a fetch.
type Filter struct {
	From    string `json:"from"`    // ISO date YYYY-MM-DD, inclusive
	To      string `json:"to"`      // ISO date YYYY-MM-DD, inclusive
	Account string `json:"account"` // optional account filter
	Origin  string `json:"origin"`  // optional resolved origin label
	Funnel  string `json:"funnel"`  // optional funnel filter
}

// Key returns a stable string form of the filter tuple.
func (f Filter) Key() string {
	return strings.Join([]string{
		f.From, f.To, f.Account, f.Origin, f.Funnel,
	}, "\x1f")
}

// Days returns the number of days in the inclusive range, or
// 0 when the dates do not parse.
func (f Filter) Days() int {
	from, err := time.Parse(time.DateOnly, f.From)
	if err != nil {
		return 0
	}
	to, err := time.Parse(time.DateOnly, f.To)
	if err != nil {
		return 0
	}
	return int(to.Sub(from).Hours()/24) + 1
}

// originExpr resolves the display label of a channel: the
// active alias when one exists, else "type - identifier".
func originExpr(t string) string {
	return fmt.Sprintf(
		"COALESCE(v.alias, %[1]s.channel_type || ' - ' || %[1]s.channel_id)",
		t,
	)
}

// aliasJoin joins the alias table on the channel of table t.
func aliasJoin(t string) string {
	return fmt.Sprintf(`LEFT JOIN channel_aliases v ON (
			%[1]s.account = v.account AND
			%[1]s.channel_type = v.channel_type AND
			%[1]s.channel_id = v.identifier AND
			v.active = TRUE
		)`, t)
}

// buildWhere returns a WHERE clause and args for the filter,
// qualified with table alias t.
func (f Filter) buildWhere(t string) (string, []any) {
	preds := []string{t + ".date >= ?", t + ".date <= ?"}
	args := []any{f.From, f.To}

	if f.Account != "" {
		preds = append(preds, t+".account = ?")
		args = append(args, f.Account)
	}

	if f.Origin != "" {
		preds = append(preds, originExpr(t)+" = ?")
		args = append(args, f.Origin)
	}

	if f.Funnel != "" {
		preds = append(preds, t+".funnel = ?")
		args = append(args, f.Funnel)
	}

	return strings.Join(preds, " AND "), args
}
