// Package repository provides PostgreSQL persistence for admin credentials
// and subscriptions.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/google/uuid"
)

// PostgresAuthRepository reads admin credentials from PostgreSQL.
type PostgresAuthRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewPostgresAuthRepository creates a new PostgresAuthRepository with the given database connection.
func NewPostgresAuthRepository(db *sql.DB) *PostgresAuthRepository {
	return &PostgresAuthRepository{DB: db}
}

// GetStoredCredentials returns the id and PHC password hash for username.
// A missing user is reported as found=false with a nil error.
func (r *PostgresAuthRepository) GetStoredCredentials(ctx context.Context, username string) (uuid.UUID, secret.Value, bool, error) {
	var (
		id   uuid.UUID
		hash string
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT id, password_hash FROM users WHERE username = $1
	`, username).Scan(&id, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, secret.Value{}, false, nil
	}
	if err != nil {
		return uuid.Nil, secret.Value{}, false, fmt.Errorf("query stored credentials: %w", err)
	}
	return id, secret.New(hash), true, nil
}
