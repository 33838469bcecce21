package db

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/wesm/outboundview/internal/metrics"
)

// Account is a row of the accounts table.
type Account struct {
	Account     string `json:"account"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Alias maps a channel identifier to a display name within an
// account.
type Alias struct {
	Account     string `json:"account"`
	ChannelType string `json:"channel_type"`
	Identifier  string `json:"identifier"`
	Alias       string `json:"alias"`
	Active      bool   `json:"active"`
}

// Batch is a set of rows written in one transaction.
type Batch struct {
	Accounts []Account
	Aliases  []Alias
	Sends    []metrics.SendRecord
	Replies  []metrics.ReplyRecord
}

// Len returns the total number of rows in the batch.
func (b Batch) Len() int {
	return len(b.Accounts) + len(b.Aliases) +
		len(b.Sends) + len(b.Replies)
}

const upsertAccount = `INSERT INTO accounts
	(account, full_name, description, active)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(account) DO UPDATE SET
		full_name = excluded.full_name,
		description = excluded.description,
		active = excluded.active`

const upsertAlias = `INSERT INTO channel_aliases
	(account, channel_type, identifier, alias, active)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(account, channel_type, identifier) DO UPDATE SET
		alias = excluded.alias,
		active = excluded.active`

const upsertSend = `INSERT INTO send_stats
	(date, account, funnel, channel_type, channel_id,
	 activity_type, sent, failed, limit_reached, last_sent_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(date, account, funnel, channel_type, channel_id,
		activity_type) DO UPDATE SET
		sent = excluded.sent,
		failed = excluded.failed,
		limit_reached = excluded.limit_reached,
		last_sent_at = excluded.last_sent_at`

const upsertReply = `INSERT INTO reply_stats
	(date, account, funnel, channel_type, channel_id,
	 replies, qualified, interested, not_interested, booked,
	 disqualified, auto_replies, other)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(date, account, funnel, channel_type,
		channel_id) DO UPDATE SET
		replies = excluded.replies,
		qualified = excluded.qualified,
		interested = excluded.interested,
		not_interested = excluded.not_interested,
		booked = excluded.booked,
		disqualified = excluded.disqualified,
		auto_replies = excluded.auto_replies,
		other = excluded.other`

// Import upserts every row of b in a single transaction.
// Rows are keyed by their natural primary keys, so importing
// the same batch twice leaves the store unchanged.
func (db *DB) Import(ctx context.Context, b Batch) error {
	return db.Update(func(tx *sql.Tx) error {
		stmt, err := db.prepare(ctx, tx, upsertAccount)
		if err != nil {
			return err
		}
		for _, a := range b.Accounts {
			if _, err := stmt.ExecContext(ctx,
				a.Account, a.FullName, a.Description, a.Active,
			); err != nil {
				return fmt.Errorf("upserting account %s: %w",
					a.Account, err)
			}
		}

		stmt, err = db.prepare(ctx, tx, upsertAlias)
		if err != nil {
			return err
		}
		for _, a := range b.Aliases {
			if _, err := stmt.ExecContext(ctx,
				a.Account, a.ChannelType, a.Identifier,
				a.Alias, a.Active,
			); err != nil {
				return fmt.Errorf("upserting alias %s: %w",
					a.Identifier, err)
			}
		}

		stmt, err = db.prepare(ctx, tx, upsertSend)
		if err != nil {
			return err
		}
		for _, s := range b.Sends {
			if _, err := stmt.ExecContext(ctx,
				s.Date, s.Account, s.Funnel,
				s.ChannelType, s.ChannelIdentifier,
				s.ActivityType, s.Sent, s.Failed,
				s.LimitReached, nullString(s.LastSentAt),
			); err != nil {
				return fmt.Errorf("upserting send %s/%s: %w",
					s.Date, s.ChannelIdentifier, err)
			}
		}

		stmt, err = db.prepare(ctx, tx, upsertReply)
		if err != nil {
			return err
		}
		for _, r := range b.Replies {
			if _, err := stmt.ExecContext(ctx,
				r.Date, r.Account, r.Funnel,
				r.ChannelType, r.ChannelIdentifier,
				r.Replies, r.Qualified, r.Interested,
				r.NotInterested, r.Booked, r.Disqualified,
				r.AutoReplies, r.Other,
			); err != nil {
				return fmt.Errorf("upserting reply %s/%s: %w",
					r.Date, r.ChannelIdentifier, err)
			}
		}
		return nil
	})
}

// prepare prepares a rebound statement on tx. The statement
// is closed with the transaction.
func (db *DB) prepare(
	ctx context.Context, tx *sql.Tx, query string,
) (*sql.Stmt, error) {
	stmt, err := tx.PrepareContext(ctx, db.Rebind(query))
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	return stmt, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
