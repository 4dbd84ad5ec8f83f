package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
)

const credentialsQuery = `SELECT id, password_hash FROM users WHERE username = $1`

func setupAuthMock(t *testing.T) (*PostgresAuthRepository, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open sqlmock database: %v", err)
	}
	repo := NewPostgresAuthRepository(db)
	cleanup := func() { db.Close() }
	return repo, mock, cleanup
}

func TestGetStoredCredentials_Found(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	id := uuid.New()
	hash := "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$a2V5"
	mock.ExpectQuery(regexp.QuoteMeta(credentialsQuery)).
		WithArgs("admin").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).AddRow(id.String(), hash))

	gotID, gotHash, found, err := repo.GetStoredCredentials(context.Background(), "admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !found {
		t.Fatal("expected user to be found")
	}
	if gotID != id {
		t.Errorf("id = %s; want %s", gotID, id)
	}
	if gotHash.ExposeString() != hash {
		t.Errorf("hash = %q; want %q", gotHash.ExposeString(), hash)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetStoredCredentials_NotFound(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(credentialsQuery)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}))

	_, hash, found, err := repo.GetStoredCredentials(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unknown username must not be an error, got %v", err)
	}
	if found {
		t.Error("expected found = false")
	}
	if !hash.IsEmpty() {
		t.Error("expected empty hash for unknown user")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestGetStoredCredentials_Error(t *testing.T) {
	repo, mock, cleanup := setupAuthMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta(credentialsQuery)).
		WithArgs("admin").
		WillReturnError(errors.New("connection reset"))

	_, _, found, err := repo.GetStoredCredentials(context.Background(), "admin")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if found {
		t.Error("expected found = false on error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}
