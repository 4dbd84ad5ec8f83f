// Package service provides the subscription and newsletter business logic,
// delegating persistence to repository interfaces and delivery to an
// EmailSender.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/sentinel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmationSubject is the subject line of the confirmation email.
const ConfirmationSubject = "Welcome to the Newsletter"

// SubscriptionRepository defines the persistence operations needed by the
// SubscriptionService.
type SubscriptionRepository interface {
	// CreatePendingSubscription stores the subscriber and a confirmation
	// token atomically. Token is empty when the email is already confirmed.
	CreatePendingSubscription(ctx context.Context, sub models.NewSubscriber, newToken func() (string, error)) (models.PendingSubscription, error)
	// GetSubscriberIDByToken returns sentinel.ErrNotFound for unknown tokens.
	GetSubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error)
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error
}

// EmailSender delivers a single email.
type EmailSender interface {
	Send(ctx context.Context, recipient models.SubscriberEmail, subject, htmlContent, textContent string) error
}

// RegistrationErrorKind classifies a failed registration.
type RegistrationErrorKind int

const (
	// RegistrationInvalid means the submitted name or email was rejected.
	RegistrationInvalid RegistrationErrorKind = iota + 1
	// RegistrationUnexpected covers storage and email failures.
	RegistrationUnexpected
)

// RegistrationError is returned by SubscriptionService.Register.
type RegistrationError struct {
	Kind RegistrationErrorKind
	Err  error
}

func (e *RegistrationError) Error() string {
	if e.Kind == RegistrationInvalid {
		return e.Err.Error()
	}
	return "register subscriber: " + e.Err.Error()
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// ConfirmErrorKind classifies a failed confirmation.
type ConfirmErrorKind int

const (
	// ConfirmInvalidToken means the token is not associated with any subscriber.
	ConfirmInvalidToken ConfirmErrorKind = iota + 1
	// ConfirmUnexpected covers storage failures.
	ConfirmUnexpected
)

// ConfirmError is returned by SubscriptionService.Confirm.
type ConfirmError struct {
	Kind ConfirmErrorKind
	Err  error
}

func (e *ConfirmError) Error() string {
	if e.Kind == ConfirmInvalidToken {
		return "invalid subscription token: " + e.Err.Error()
	}
	return "confirm subscription: " + e.Err.Error()
}

func (e *ConfirmError) Unwrap() error {
	return e.Err
}

// SubscriptionService registers subscribers and confirms them.
type SubscriptionService struct {
	repo    SubscriptionRepository
	sender  EmailSender
	baseURL string
	rec     Recorder
	log     *zap.Logger
}

// NewSubscriptionService constructs a SubscriptionService. baseURL is the
// public address used in confirmation links. rec may be nil.
func NewSubscriptionService(repo SubscriptionRepository, sender EmailSender, baseURL string, rec Recorder, log *zap.Logger) *SubscriptionService {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &SubscriptionService{
		repo:    repo,
		sender:  sender,
		baseURL: strings.TrimRight(baseURL, "/"),
		rec:     rec,
		log:     log,
	}
}

// Register validates the form values, stores a pending subscriber with a
// fresh token and sends the confirmation email after the data is committed.
// A subscriber that is already confirmed is left untouched and no email is sent.
func (s *SubscriptionService) Register(ctx context.Context, name, email string) error {
	sub, err := models.ParseNewSubscriber(name, email)
	if err != nil {
		s.rec.SubscriptionRequested(OutcomeInvalid)
		return &RegistrationError{Kind: RegistrationInvalid, Err: err}
	}

	pending, err := s.repo.CreatePendingSubscription(ctx, sub, GenerateToken)
	if err != nil {
		s.rec.SubscriptionRequested(OutcomeFailed)
		return &RegistrationError{Kind: RegistrationUnexpected, Err: fmt.Errorf("store subscriber: %w", err)}
	}

	if pending.Token == "" {
		s.log.Info("subscriber already confirmed",
			zap.String("subscriber_id", pending.SubscriberID.String()))
		s.rec.SubscriptionRequested(OutcomeAlreadyConfirmed)
		return nil
	}

	if err := s.sendConfirmationEmail(ctx, sub.Email, pending.Token); err != nil {
		s.rec.SubscriptionRequested(OutcomeFailed)
		return &RegistrationError{Kind: RegistrationUnexpected, Err: err}
	}

	s.log.Info("subscriber pending confirmation",
		zap.String("subscriber_id", pending.SubscriberID.String()))
	s.rec.SubscriptionRequested(outcomeFor(pending))
	return nil
}

// ConfirmationLink builds the link embedded in the confirmation email.
func (s *SubscriptionService) ConfirmationLink(token string) string {
	return s.baseURL + "/subscriptions/confirm?token=" + token
}

func (s *SubscriptionService) sendConfirmationEmail(ctx context.Context, to models.SubscriberEmail, token string) error {
	link := s.ConfirmationLink(token)
	htmlBody := fmt.Sprintf(`Welcome to our newsletter!<br />Click <a href="%s">here</a> to confirm your subscription.`, link)
	textBody := fmt.Sprintf("Welcome to our newsletter!\nVisit %s to confirm your subscription.", link)

	if err := s.sender.Send(ctx, to, ConfirmationSubject, htmlBody, textBody); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}
	return nil
}

// Confirm marks the subscriber owning token as confirmed. Confirming an
// already confirmed subscriber succeeds.
func (s *SubscriptionService) Confirm(ctx context.Context, token string) error {
	id, err := s.repo.GetSubscriberIDByToken(ctx, token)
	if errors.Is(err, sentinel.ErrNotFound) {
		return &ConfirmError{Kind: ConfirmInvalidToken, Err: err}
	}
	if err != nil {
		return &ConfirmError{Kind: ConfirmUnexpected, Err: fmt.Errorf("get subscriber id: %w", err)}
	}

	if err := s.repo.ConfirmSubscriber(ctx, id); err != nil {
		return &ConfirmError{Kind: ConfirmUnexpected, Err: err}
	}

	s.log.Info("subscriber confirmed", zap.String("subscriber_id", id.String()))
	s.rec.SubscriptionConfirmed()
	return nil
}

func outcomeFor(p models.PendingSubscription) string {
	if p.Resent {
		return OutcomeResent
	}
	return OutcomeCreated
}
