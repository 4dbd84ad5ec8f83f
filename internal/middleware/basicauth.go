// Package middleware provides HTTP middlewares for credentials, logging and metrics.
package middleware

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/secret"
)

type ctxKey string

const credentialsKey ctxKey = "credentials"

// BasicCredentials extracts Basic-Auth credentials from the Authorization
// header and stores them in the request context.
//
// It never rejects a request: handlers decide when missing credentials
// become a 401, so that they can validate the request body first.
func BasicCredentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		creds, ok := ParseBasicAuth(r.Header.Get("Authorization"))
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), credentialsKey, creds)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CredentialsFromContext returns the credentials stored by BasicCredentials.
func CredentialsFromContext(ctx context.Context) (models.Credentials, bool) {
	creds, ok := ctx.Value(credentialsKey).(models.Credentials)
	return creds, ok
}

// ParseBasicAuth decodes an `Authorization: Basic ...` header value. The
// decoded payload must be UTF-8 and contain a colon; the password may itself
// contain colons.
func ParseBasicAuth(header string) (models.Credentials, bool) {
	encoded, ok := strings.CutPrefix(header, "Basic ")
	if !ok {
		return models.Credentials{}, false
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil || !utf8.Valid(decoded) {
		return models.Credentials{}, false
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return models.Credentials{}, false
	}
	return models.Credentials{Username: username, Password: secret.New(password)}, true
}
