package models

import (
	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/google/uuid"
)

// User represents an admin allowed to log in and publish newsletters.
type User struct {
	// ID is the unique identifier for the user.
	ID uuid.UUID
	// Username is the login name.
	Username string
	// PasswordHash is the Argon2id hash in PHC string format.
	PasswordHash secret.Value
}

// Credentials are supplied per request and never stored.
type Credentials struct {
	Username string
	Password secret.Value
}

// NewsletterIssue is the content sent to every confirmed subscriber.
type NewsletterIssue struct {
	Title       string
	HTMLContent string
	TextContent string
}
