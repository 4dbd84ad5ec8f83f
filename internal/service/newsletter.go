package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/newsletter/internal/auth"
	"github.com/atinyakov/newsletter/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConfirmedSubscriberRepository lists the stored emails of confirmed subscribers.
type ConfirmedSubscriberRepository interface {
	GetConfirmedSubscriberEmails(ctx context.Context) ([]string, error)
}

// CredentialValidator authenticates the publishing admin.
type CredentialValidator interface {
	Validate(ctx context.Context, creds models.Credentials) (uuid.UUID, error)
}

// PublishErrorKind classifies a failed publish.
type PublishErrorKind int

const (
	// PublishAuth means the supplied credentials were rejected.
	PublishAuth PublishErrorKind = iota + 1
	// PublishUnexpected covers storage, hashing and delivery failures.
	PublishUnexpected
)

// PublishError is returned by NewsletterService.Publish.
type PublishError struct {
	Kind PublishErrorKind
	Err  error
}

func (e *PublishError) Error() string {
	if e.Kind == PublishAuth {
		return "authentication failed: " + e.Err.Error()
	}
	return "publish newsletter: " + e.Err.Error()
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// NewsletterService delivers newsletter issues to confirmed subscribers.
type NewsletterService struct {
	repo      ConfirmedSubscriberRepository
	validator CredentialValidator
	sender    EmailSender
	rec       Recorder
	log       *zap.Logger
}

// NewNewsletterService constructs a NewsletterService. rec may be nil.
func NewNewsletterService(repo ConfirmedSubscriberRepository, validator CredentialValidator, sender EmailSender, rec Recorder, log *zap.Logger) *NewsletterService {
	if rec == nil {
		rec = nopRecorder{}
	}
	return &NewsletterService{repo: repo, validator: validator, sender: sender, rec: rec, log: log}
}

// Publish authenticates creds and sends issue to every confirmed subscriber
// whose stored email is still valid. Invalid stored emails are logged and
// skipped. The first delivery failure aborts the fan-out.
func (s *NewsletterService) Publish(ctx context.Context, creds models.Credentials, issue models.NewsletterIssue) error {
	username := creds.Username
	userID, err := s.validator.Validate(ctx, creds)
	if err != nil {
		if auth.IsInvalidCredentials(err) {
			return &PublishError{Kind: PublishAuth, Err: err}
		}
		return &PublishError{Kind: PublishUnexpected, Err: err}
	}
	log := s.log.With(zap.String("username", username), zap.String("user_id", userID.String()))

	emails, err := s.repo.GetConfirmedSubscriberEmails(ctx)
	if err != nil {
		return &PublishError{Kind: PublishUnexpected, Err: fmt.Errorf("get confirmed subscribers: %w", err)}
	}

	delivered := 0
	for _, raw := range emails {
		email, err := models.ParseSubscriberEmail(raw)
		if err != nil {
			log.Warn("skipping a confirmed subscriber, the stored email is invalid", zap.Error(err))
			s.rec.NewsletterSkipped()
			continue
		}
		if err := s.sender.Send(ctx, email, issue.Title, issue.HTMLContent, issue.TextContent); err != nil {
			return &PublishError{Kind: PublishUnexpected, Err: fmt.Errorf("send newsletter to %s: %w", email, err)}
		}
		s.rec.NewsletterDelivered()
		delivered++
	}

	log.Info("newsletter published", zap.String("title", issue.Title), zap.Int("recipients", delivered))
	return nil
}
