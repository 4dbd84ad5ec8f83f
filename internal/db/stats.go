package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StatusRecorder receives the number of subscribers per status.
type StatusRecorder interface {
	SetSubscribers(status string, n int64)
}

// StartSubscriberStatsReporter counts subscribers per status every interval
// and hands the totals to rec until ctx is cancelled.
func StartSubscriberStatsReporter(
	ctx context.Context,
	db *sql.DB,
	interval time.Duration,
	rec StatusRecorder,
	log *zap.Logger,
) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := reportSubscriberStats(ctx, db, rec); err != nil {
					log.Error("failed to count subscribers", zap.Error(err))
				}
			}
		}
	}()
}

func reportSubscriberStats(ctx context.Context, db *sql.DB, rec StatusRecorder) error {
	rows, err := db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM subscriptions GROUP BY status
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		rec.SetSubscribers(status, n)
	}
	return rows.Err()
}
