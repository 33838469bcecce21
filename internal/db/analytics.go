package db

import (
	"context"
	"fmt"

	"github.com/wesm/outboundview/internal/metrics"
)

// Sends returns the raw send rows matching f, newest first.
func (db *DB) Sends(
	ctx context.Context, f Filter,
) ([]metrics.SendRecord, error) {
	where, args := f.buildWhere("e")
	query := `SELECT e.date, e.account, e.funnel,
		e.channel_type, e.channel_id, ` + originExpr("e") + `,
		e.activity_type, e.sent, e.failed, e.limit_reached,
		COALESCE(e.last_sent_at, '')
		FROM send_stats e
		` + aliasJoin("e") + `
		WHERE ` + where + `
		ORDER BY e.date DESC, e.account, e.funnel,
			e.channel_type, e.channel_id, e.activity_type`

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sends: %w", err)
	}
	defer rows.Close()

	var out []metrics.SendRecord
	for rows.Next() {
		var r metrics.SendRecord
		if err := rows.Scan(
			&r.Date, &r.Account, &r.Funnel,
			&r.ChannelType, &r.ChannelIdentifier, &r.Origin,
			&r.ActivityType, &r.Sent, &r.Failed, &r.LimitReached,
			&r.LastSentAt,
		); err != nil {
			return nil, fmt.Errorf("scanning send row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating send rows: %w", err)
	}
	return out, nil
}

// Replies returns the raw reply rows matching f, newest first.
func (db *DB) Replies(
	ctx context.Context, f Filter,
) ([]metrics.ReplyRecord, error) {
	where, args := f.buildWhere("r")
	query := `SELECT r.date, r.account, r.funnel,
		r.channel_type, r.channel_id, ` + originExpr("r") + `,
		r.replies, r.qualified, r.interested, r.not_interested,
		r.booked, r.disqualified, r.auto_replies, r.other
		FROM reply_stats r
		` + aliasJoin("r") + `
		WHERE ` + where + `
		ORDER BY r.date DESC, r.account, r.funnel,
			r.channel_type, r.channel_id`

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying replies: %w", err)
	}
	defer rows.Close()

	var out []metrics.ReplyRecord
	for rows.Next() {
		var r metrics.ReplyRecord
		if err := rows.Scan(
			&r.Date, &r.Account, &r.Funnel,
			&r.ChannelType, &r.ChannelIdentifier, &r.Origin,
			&r.Replies, &r.Qualified, &r.Interested,
			&r.NotInterested, &r.Booked, &r.Disqualified,
			&r.AutoReplies, &r.Other,
		); err != nil {
			return nil, fmt.Errorf("scanning reply row: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reply rows: %w", err)
	}
	return out, nil
}

// MetricRows returns sends joined with their replies, summed
// per account, origin, funnel, channel type and activity type.
// Only counters come from SQL; rates are derived in Go from the
// sums.
//
// Replies carry no activity type, so a day's replies join every
// activity row sent through the same channel that day.
func (db *DB) MetricRows(
	ctx context.Context, f Filter,
) ([]metrics.Row, error) {
	where, args := f.buildWhere("e")
	origin := originExpr("e")
	query := `SELECT e.account, ` + origin + `, e.funnel,
		e.channel_type, e.activity_type,
		SUM(e.sent), SUM(e.failed), SUM(e.limit_reached),
		COALESCE(SUM(r.replies), 0),
		COALESCE(SUM(r.qualified), 0),
		COALESCE(SUM(r.interested), 0),
		COALESCE(SUM(r.booked), 0)
		FROM send_stats e
		` + aliasJoin("e") + `
		LEFT JOIN reply_stats r ON (
			e.date = r.date AND
			e.account = r.account AND
			e.funnel = r.funnel AND
			e.channel_type = r.channel_type AND
			e.channel_id = r.channel_id
		)
		WHERE ` + where + `
		GROUP BY e.account, ` + origin + `, e.funnel,
			e.channel_type, e.activity_type
		ORDER BY e.account, ` + origin + `, e.funnel,
			e.channel_type, e.activity_type`

	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying metric rows: %w", err)
	}
	defer rows.Close()

	var out []metrics.Row
	for rows.Next() {
		var k metrics.Key
		var t metrics.Totals
		if err := rows.Scan(
			&k.Account, &k.Origin, &k.Funnel,
			&k.ChannelType, &k.ActivityType,
			&t.Sent, &t.Failed, &t.LimitReached,
			&t.Replies, &t.Qualified, &t.Interested, &t.Booked,
		); err != nil {
			return nil, fmt.Errorf("scanning metric row: %w", err)
		}
		out = append(out, metrics.NewRow(k, t))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating metric rows: %w", err)
	}
	return out, nil
}

// --- Filter options ---

// Accounts lists accounts with send activity on or after
// since, busiest first.
func (db *DB) Accounts(
	ctx context.Context, since string,
) ([]string, error) {
	query := `SELECT e.account, COUNT(*) AS n
		FROM send_stats e
		WHERE e.date >= ?
		GROUP BY e.account
		ORDER BY n DESC, e.account`
	return db.optionList(ctx, "accounts", query, since)
}

// Origins lists resolved origin labels with send activity on
// or after since, busiest first. An empty account means all
// accounts.
func (db *DB) Origins(
	ctx context.Context, since, account string,
) ([]string, error) {
	args := []any{since}
	acct := ""
	if account != "" {
		acct = " AND e.account = ?"
		args = append(args, account)
	}
	origin := originExpr("e")
	query := `SELECT ` + origin + ` AS origin, COUNT(*) AS n
		FROM send_stats e
		` + aliasJoin("e") + `
		WHERE e.date >= ?` + acct + `
		GROUP BY ` + origin + `
		ORDER BY n DESC, origin`
	return db.optionList(ctx, "origins", query, args...)
}

// Funnels lists funnels with send activity on or after since,
// busiest first. An empty account means all accounts.
func (db *DB) Funnels(
	ctx context.Context, since, account string,
) ([]string, error) {
	args := []any{since}
	acct := ""
	if account != "" {
		acct = " AND e.account = ?"
		args = append(args, account)
	}
	query := `SELECT e.funnel, COUNT(*) AS n
		FROM send_stats e
		WHERE e.date >= ?` + acct + `
		GROUP BY e.funnel
		ORDER BY n DESC, e.funnel`
	return db.optionList(ctx, "funnels", query, args...)
}

// optionList runs a (value, count) query and returns the
// values in order.
func (db *DB) optionList(
	ctx context.Context, what, query string, args ...any,
) ([]string, error) {
	rows, err := db.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", what, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var v string
		var n int64
		if err := rows.Scan(&v, &n); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", what, err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", what, err)
	}
	return out, nil
}
