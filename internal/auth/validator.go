package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// decoyHash is verified against when the username is unknown, so that an
// unknown username costs the same as a wrong password.
const decoyHash = "$argon2id$v=19$m=19456,t=2,p=1$gZiV/M1gPc22ElAH/Jh1Hw$CWOrkoo7oJBQ/iyh7uJ0LO2aLEfrHwTWllSAxT0zRno"

// ErrorKind classifies a credential validation failure.
type ErrorKind int

const (
	// KindInvalidCredentials covers unknown usernames, wrong passwords and
	// unusable stored hashes. Callers must not tell them apart in responses.
	KindInvalidCredentials ErrorKind = iota + 1
	// KindUnexpected covers storage and infrastructure failures.
	KindUnexpected
)

// Error is returned by Validator.Validate.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Kind == KindInvalidCredentials {
		return "invalid credentials: " + e.Err.Error()
	}
	return "credential validation failed: " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsInvalidCredentials reports whether err is an *Error of kind
// KindInvalidCredentials.
func IsInvalidCredentials(err error) bool {
	var aErr *Error
	return errors.As(err, &aErr) && aErr.Kind == KindInvalidCredentials
}

// CredentialStore looks up stored credentials by username.
type CredentialStore interface {
	// GetStoredCredentials returns found=false with a nil error when the
	// username does not exist.
	GetStoredCredentials(ctx context.Context, username string) (userID uuid.UUID, passwordHash secret.Value, found bool, err error)
}

// Validator authenticates admin credentials.
type Validator struct {
	store    CredentialStore
	verifier *Verifier
	log      *zap.Logger
}

// NewValidator constructs a Validator.
func NewValidator(store CredentialStore, verifier *Verifier, log *zap.Logger) *Validator {
	return &Validator{store: store, verifier: verifier, log: log}
}

// Validate returns the user id when the username exists and the password
// matches its stored hash. The supplied password is wiped before returning.
func (v *Validator) Validate(ctx context.Context, creds models.Credentials) (uuid.UUID, error) {
	defer creds.Password.Wipe()

	userID, expected, found, err := v.store.GetStoredCredentials(ctx, creds.Username)
	if err != nil {
		return uuid.Nil, &Error{Kind: KindUnexpected, Err: fmt.Errorf("get stored credentials: %w", err)}
	}
	if !found {
		expected = secret.New(decoyHash)
	}

	if err := v.verifier.Verify(ctx, expected, creds.Password); err != nil {
		return uuid.Nil, v.mapVerifyError(err)
	}

	if !found {
		return uuid.Nil, &Error{Kind: KindInvalidCredentials, Err: errors.New("unknown username")}
	}
	return userID, nil
}

func (v *Validator) mapVerifyError(err error) error {
	switch {
	case errors.Is(err, ErrPasswordMismatch):
		return &Error{Kind: KindInvalidCredentials, Err: err}
	case errors.Is(err, ErrInvalidHash):
		v.log.Warn("stored password hash is not a valid PHC string", zap.Error(err))
		return &Error{Kind: KindInvalidCredentials, Err: err}
	default:
		return &Error{Kind: KindUnexpected, Err: fmt.Errorf("verify password: %w", err)}
	}
}
