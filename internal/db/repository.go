package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Repository handles database operations for the dispatch engine
type Repository struct {
	db     *DB
	logger *zap.Logger
}

// NewRepository creates a new dispatch repository
func NewRepository(db *DB, logger *zap.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListNotifiable returns every user that could receive a push this tick:
// notifications enabled and a device token on file. Time-of-day filtering
// happens in memory, per user, against the user's own timezone.
func (r *Repository) ListNotifiable(ctx context.Context) ([]*UserRecord, error) {
	query := `
		SELECT
			id, push_token, timezone, preferred_time,
			notifications_enabled, is_premium, last_sent_at
		FROM notification_users
		WHERE notifications_enabled = TRUE AND push_token IS NOT NULL
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query notifiable users: %w", err)
	}
	defer rows.Close()

	var users []*UserRecord
	for rows.Next() {
		var u UserRecord
		err := rows.Scan(
			&u.ID,
			&u.PushToken,
			&u.Timezone,
			&u.PreferredTime,
			&u.NotificationsEnabled,
			&u.IsPremium,
			&u.LastSentAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, &u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return users, nil
}

// NextQuote returns the least-recently-used static quote, never-used first.
// Returns nil when the pool is empty; an empty pool is not an error.
func (r *Repository) NextQuote(ctx context.Context) (*StaticQuote, error) {
	query := `
		SELECT id, text, author, last_sent_date
		FROM static_quotes
		ORDER BY last_sent_date ASC NULLS FIRST
		LIMIT 1
	`

	var q StaticQuote
	err := r.db.Pool().QueryRow(ctx, query).Scan(
		&q.ID,
		&q.Text,
		&q.Author,
		&q.LastSentDate,
	)

	if err == pgx.ErrNoRows {
		return nil, nil
	}

	if err != nil {
		r.logger.Error("failed to get next quote", zap.Error(err))
		return nil, fmt.Errorf("query next quote: %w", err)
	}

	return &q, nil
}

// CommitTick persists one tick's bookkeeping in a single transaction:
// last_sent_at for every attempted user, token clearing for invalid tokens,
// and the rotation cursor bump for the quote consumed this tick.
func (r *Repository) CommitTick(ctx context.Context, commit *TickCommit) error {
	if commit.Empty() {
		return nil
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(commit.AttemptedUserIDs) > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE notification_users SET last_sent_at = $1 WHERE id = ANY($2)`,
			commit.SentAt, commit.AttemptedUserIDs,
		)
		if err != nil {
			return fmt.Errorf("update last_sent_at: %w", err)
		}
	}

	if len(commit.InvalidTokenUserIDs) > 0 {
		_, err = tx.Exec(ctx,
			`UPDATE notification_users SET push_token = NULL WHERE id = ANY($1)`,
			commit.InvalidTokenUserIDs,
		)
		if err != nil {
			return fmt.Errorf("clear invalid tokens: %w", err)
		}
	}

	if commit.ConsumedQuoteID != nil {
		_, err = tx.Exec(ctx,
			`UPDATE static_quotes SET last_sent_date = $1 WHERE id = $2`,
			commit.SentAt, *commit.ConsumedQuoteID,
		)
		if err != nil {
			return fmt.Errorf("bump quote cursor: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	r.logger.Info("tick committed",
		zap.Int("attempted_users", len(commit.AttemptedUserIDs)),
		zap.Int("invalid_tokens", len(commit.InvalidTokenUserIDs)),
		zap.Bool("quote_consumed", commit.ConsumedQuoteID != nil),
	)

	return nil
}
