// Package flash implements one-time messages carried in a signed cookie
// across a redirect.
package flash

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the name of the flash cookie.
	CookieName = "_flash"
	// DefaultTTL is how long an unread message stays valid.
	DefaultTTL = 5 * time.Minute
)

// ErrEmptyKey is returned by NewStore when no signing key is configured.
var ErrEmptyKey = errors.New("flash signing key is empty")

type claims struct {
	Message string `json:"msg"`
	jwt.RegisteredClaims
}

// Store writes and reads flash messages signed with HS256.
type Store struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewStore returns a Store signing with key.
func NewStore(key secret.Value) (*Store, error) {
	if key.IsEmpty() {
		return nil, ErrEmptyKey
	}
	return &Store{key: append([]byte(nil), key.Expose()...), ttl: DefaultTTL, now: time.Now}, nil
}

// Set attaches msg to the response as a flash cookie.
func (s *Store) Set(w http.ResponseWriter, msg string) error {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Message: msg,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return fmt.Errorf("sign flash message: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Pop returns the flash message of r, if any, and clears the cookie.
// Tampered or expired cookies are cleared and reported as absent.
func (s *Store) Pop(w http.ResponseWriter, r *http.Request) (string, bool) {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return "", false
	}
	s.clear(w)

	var c claims
	_, err = jwt.ParseWithClaims(cookie.Value, &c,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", false
	}
	return c.Message, true
}

func (s *Store) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
