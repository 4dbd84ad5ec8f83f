package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/newsletter/internal/db"
	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/sentinel"
	"github.com/google/uuid"
)

// MaxTokenAttempts bounds how many fresh tokens are tried when a generated
// token collides with a stored one.
const MaxTokenAttempts = 5

// PostgresSubscriptionRepository stores subscribers and their confirmation tokens.
type PostgresSubscriptionRepository struct {
	// DB is the database handle for executing queries and transactions.
	DB *sql.DB
	// now is overridable in tests.
	now func() time.Time
}

// NewPostgresSubscriptionRepository creates a repository over db.
func NewPostgresSubscriptionRepository(db *sql.DB) *PostgresSubscriptionRepository {
	return &PostgresSubscriptionRepository{DB: db, now: time.Now}
}

// CreatePendingSubscription stores sub as pending together with a
// confirmation token, in a single transaction.
//
// If the email is already subscribed and still pending, a new token is
// issued for the existing subscriber. If it is already confirmed, nothing is
// written and the result carries an empty Token.
//
// newToken is called again when a generated token is already taken, up to
// MaxTokenAttempts times.
func (r *PostgresSubscriptionRepository) CreatePendingSubscription(
	ctx context.Context,
	sub models.NewSubscriber,
	newToken func() (string, error),
) (models.PendingSubscription, error) {
	var result models.PendingSubscription

	err := db.WithTx(ctx, r.DB, func(ctx context.Context, tx db.DBTX) error {
		id, status, existed, err := r.insertSubscriber(ctx, tx, sub)
		if err != nil {
			return err
		}
		result.SubscriberID = id
		result.Status = status
		result.Resent = existed && status == models.StatusPendingConfirmation

		if status == models.StatusConfirmed {
			return nil
		}

		token, err := storeToken(ctx, tx, id, newToken)
		if err != nil {
			return err
		}
		result.Token = token
		return nil
	})
	if err != nil {
		return models.PendingSubscription{}, err
	}
	return result, nil
}

func (r *PostgresSubscriptionRepository) insertSubscriber(ctx context.Context, tx db.DBTX, sub models.NewSubscriber) (uuid.UUID, models.SubscriptionStatus, bool, error) {
	id := uuid.New()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO subscriptions (id, email, name, subscribed_at, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (email) DO NOTHING
	`, id, sub.Email.String(), sub.Name.String(), r.now().UTC(), string(models.StatusPendingConfirmation))
	if err != nil {
		return uuid.Nil, "", false, fmt.Errorf("insert subscriber: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return uuid.Nil, "", false, fmt.Errorf("insert subscriber: %w", err)
	}
	if inserted == 1 {
		return id, models.StatusPendingConfirmation, false, nil
	}

	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT id, status FROM subscriptions WHERE email = $1
	`, sub.Email.String()).Scan(&id, &status)
	if err != nil {
		return uuid.Nil, "", false, fmt.Errorf("load existing subscriber: %w", err)
	}
	return id, models.SubscriptionStatus(status), true, nil
}

func storeToken(ctx context.Context, tx db.DBTX, subscriberID uuid.UUID, newToken func() (string, error)) (string, error) {
	for attempt := 0; attempt < MaxTokenAttempts; attempt++ {
		token, err := newToken()
		if err != nil {
			return "", fmt.Errorf("generate token: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO subscription_tokens (token, subscriber_id)
			VALUES ($1, $2)
			ON CONFLICT (token) DO NOTHING
		`, token, subscriberID)
		if err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
		stored, err := res.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("store token: %w", err)
		}
		if stored == 1 {
			return token, nil
		}
	}
	return "", fmt.Errorf("store token: %w: %d generated tokens already in use", sentinel.ErrConflict, MaxTokenAttempts)
}

// GetSubscriberIDByToken resolves a confirmation token. It returns
// sentinel.ErrNotFound when the token is unknown.
func (r *PostgresSubscriptionRepository) GetSubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := r.DB.QueryRowContext(ctx, `
		SELECT subscriber_id FROM subscription_tokens WHERE token = $1
	`, token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, sentinel.ErrNotFound
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("query subscription token: %w", err)
	}
	return id, nil
}

// ConfirmSubscriber marks the subscriber as confirmed. Confirming twice is a no-op.
func (r *PostgresSubscriptionRepository) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE subscriptions SET status = $1 WHERE id = $2
	`, string(models.StatusConfirmed), id)
	if err != nil {
		return fmt.Errorf("confirm subscriber: %w", err)
	}
	return nil
}

// GetConfirmedSubscriberEmails returns the raw stored email of every
// confirmed subscriber. Values are not re-validated here.
func (r *PostgresSubscriptionRepository) GetConfirmedSubscriberEmails(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT email FROM subscriptions WHERE status = $1
	`, string(models.StatusConfirmed))
	if err != nil {
		return nil, fmt.Errorf("query confirmed subscribers: %w", err)
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate confirmed subscribers: %w", err)
	}
	return emails, nil
}
