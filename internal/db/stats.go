package db

import (
	"context"
	"fmt"
)

// Stats holds row counts for the health endpoint.
type Stats struct {
	Driver       string `json:"driver"`
	AccountCount int    `json:"account_count"`
	AliasCount   int    `json:"alias_count"`
	SendRows     int    `json:"send_rows"`
	ReplyRows    int    `json:"reply_rows"`
	LatestDate   string `json:"latest_date"`
}

// GetStats returns table row counts and the most recent date
// with send activity.
func (db *DB) GetStats(ctx context.Context) (Stats, error) {
	const query = `
		SELECT
			(SELECT COUNT(*) FROM accounts),
			(SELECT COUNT(*) FROM channel_aliases),
			(SELECT COUNT(*) FROM send_stats),
			(SELECT COUNT(*) FROM reply_stats),
			(SELECT COALESCE(MAX(date), '') FROM send_stats)`

	s := Stats{Driver: db.driver}
	err := db.reader.QueryRowContext(ctx, query).Scan(
		&s.AccountCount,
		&s.AliasCount,
		&s.SendRows,
		&s.ReplyRows,
		&s.LatestDate,
	)
	if err != nil {
		return Stats{}, fmt.Errorf("fetching stats: %w", err)
	}
	return s, nil
}
