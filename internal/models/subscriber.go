// Package models defines the core data structures for subscribers,
// admin users and newsletter issues.
package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/rivo/uniseg"
)

// MaxNameGraphemes is the upper bound on a subscriber name, counted in
// user-perceived characters rather than bytes or runes.
const MaxNameGraphemes = 256

// forbiddenNameChars are rejected anywhere in a subscriber name.
const forbiddenNameChars = `/\<>(){}"`

// emailFormat checks the address syntax only; no DNS lookups.
var emailFormat = validation.NewStringRule(govalidator.IsEmail, "must be a valid email address")

// SubscriptionStatus is the lifecycle state of a subscriber.
type SubscriptionStatus string

const (
	// StatusPendingConfirmation is set when the subscriber is created.
	StatusPendingConfirmation SubscriptionStatus = "pending_confirmation"
	// StatusConfirmed is set once the confirmation link has been followed.
	StatusConfirmed SubscriptionStatus = "confirmed"
)

// ValidationError reports which field of client input was rejected and why.
type ValidationError struct {
	// Field is the form/JSON field name.
	Field string
	// Err is the rule that failed.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// SubscriberName is a trimmed, validated subscriber name.
type SubscriberName struct {
	value string
}

// ParseSubscriberName trims s and validates it: non-empty UTF-8, at most
// MaxNameGraphemes grapheme clusters and free of forbidden characters.
func ParseSubscriberName(s string) (SubscriberName, error) {
	s = strings.TrimSpace(s)
	err := validation.Validate(s,
		validation.Required,
		validation.By(validUTF8),
		validation.By(maxGraphemes(MaxNameGraphemes)),
		validation.By(noneOf(forbiddenNameChars)),
	)
	if err != nil {
		return SubscriberName{}, &ValidationError{Field: "name", Err: fmt.Errorf("%q is not a valid name: %w", s, err)}
	}
	return SubscriberName{value: s}, nil
}

func (n SubscriberName) String() string {
	return n.value
}

// SubscriberEmail is a validated email address.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail validates s as an email address.
func ParseSubscriberEmail(s string) (SubscriberEmail, error) {
	err := validation.Validate(s, validation.Required, validation.By(validUTF8), emailFormat)
	if err != nil {
		return SubscriberEmail{}, &ValidationError{Field: "email", Err: fmt.Errorf("%q is not a valid email: %w", s, err)}
	}
	return SubscriberEmail{value: s}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}

// NewSubscriber is a validated subscription request that has not been stored yet.
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// ParseNewSubscriber validates the raw form values. The name is checked first.
func ParseNewSubscriber(name, email string) (NewSubscriber, error) {
	n, err := ParseSubscriberName(name)
	if err != nil {
		return NewSubscriber{}, err
	}
	e, err := ParseSubscriberEmail(email)
	if err != nil {
		return NewSubscriber{}, err
	}
	return NewSubscriber{Name: n, Email: e}, nil
}

// PendingSubscription is the outcome of storing a subscription request.
type PendingSubscription struct {
	// SubscriberID identifies the stored (or pre-existing) subscriber.
	SubscriberID uuid.UUID
	// Status is the subscriber status after the request.
	Status SubscriptionStatus
	// Token is the confirmation token issued by this request. It is empty
	// when the subscriber was already confirmed.
	Token string
	// Resent is true when the email belonged to an existing pending
	// subscriber and a fresh token was issued for it.
	Resent bool
}

func maxGraphemes(limit int) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if uniseg.GraphemeClusterCount(s) > limit {
			return fmt.Errorf("must be no more than %d characters", limit)
		}
		return nil
	}
}

func noneOf(chars string) validation.RuleFunc {
	return func(value interface{}) error {
		s, _ := value.(string)
		if i := strings.IndexAny(s, chars); i >= 0 {
			return fmt.Errorf("must not contain %q", s[i])
		}
		return nil
	}
}

func validUTF8(value interface{}) error {
	s, _ := value.(string)
	if !utf8.ValidString(s) {
		return errors.New("must be valid UTF-8")
	}
	return nil
}
