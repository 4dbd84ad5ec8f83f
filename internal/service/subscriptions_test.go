package service_test

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/sentinel"
	"github.com/atinyakov/newsletter/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type mockSubscriptionRepo struct {
	CreatePendingSubscriptionFunc func(ctx context.Context, sub models.NewSubscriber, newToken func() (string, error)) (models.PendingSubscription, error)
	GetSubscriberIDByTokenFunc    func(ctx context.Context, token string) (uuid.UUID, error)
	ConfirmSubscriberFunc         func(ctx context.Context, id uuid.UUID) error
}

func (m *mockSubscriptionRepo) CreatePendingSubscription(ctx context.Context, sub models.NewSubscriber, newToken func() (string, error)) (models.PendingSubscription, error) {
	return m.CreatePendingSubscriptionFunc(ctx, sub, newToken)
}
func (m *mockSubscriptionRepo) GetSubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	return m.GetSubscriberIDByTokenFunc(ctx, token)
}
func (m *mockSubscriptionRepo) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	return m.ConfirmSubscriberFunc(ctx, id)
}

type sentEmail struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

type mockSender struct {
	sent []sentEmail
	err  error
	// failOn makes Send fail only for this recipient when set.
	failOn string
}

func (m *mockSender) Send(_ context.Context, to models.SubscriberEmail, subject, html, text string) error {
	if m.err != nil && (m.failOn == "" || m.failOn == to.String()) {
		return m.err
	}
	m.sent = append(m.sent, sentEmail{To: to.String(), Subject: subject, HTML: html, Text: text})
	return nil
}

type countingRecorder struct {
	requested map[string]int
	confirmed int
	delivered int
	skipped   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{requested: map[string]int{}}
}

func (r *countingRecorder) SubscriptionRequested(outcome string) { r.requested[outcome]++ }
func (r *countingRecorder) SubscriptionConfirmed()               { r.confirmed++ }
func (r *countingRecorder) NewsletterDelivered()                 { r.delivered++ }
func (r *countingRecorder) NewsletterSkipped()                   { r.skipped++ }

func issueToken(repo *mockSubscriptionRepo, status models.SubscriptionStatus, resent bool) *models.NewSubscriber {
	var stored models.NewSubscriber
	repo.CreatePendingSubscriptionFunc = func(_ context.Context, sub models.NewSubscriber, newToken func() (string, error)) (models.PendingSubscription, error) {
		stored = sub
		p := models.PendingSubscription{SubscriberID: uuid.New(), Status: status, Resent: resent}
		if status == models.StatusConfirmed {
			return p, nil
		}
		tok, err := newToken()
		if err != nil {
			return models.PendingSubscription{}, err
		}
		p.Token = tok
		return p, nil
	}
	return &stored
}

var linkPattern = regexp.MustCompile(`https://example\.com/subscriptions/confirm\?token=[A-Za-z0-9]{25}`)

func TestRegister_SendsConfirmationEmailWithLink(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	stored := issueToken(repo, models.StatusPendingConfirmation, false)
	sender := &mockSender{}
	rec := newCountingRecorder()
	svc := service.NewSubscriptionService(repo, sender, "https://example.com/", rec, zap.NewNop())

	if err := svc.Register(context.Background(), "  le guin ", "ursula_le_guin@gmail.com"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	if stored.Name.String() != "le guin" || stored.Email.String() != "ursula_le_guin@gmail.com" {
		t.Errorf("stored subscriber = %+v", stored)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("sent %d emails; want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Subject != service.ConfirmationSubject {
		t.Errorf("subject = %q; want %q", msg.Subject, service.ConfirmationSubject)
	}
	htmlLink := linkPattern.FindString(msg.HTML)
	textLink := linkPattern.FindString(msg.Text)
	if htmlLink == "" || htmlLink != textLink {
		t.Errorf("links differ or missing: html=%q text=%q", htmlLink, textLink)
	}
	if rec.requested[service.OutcomeCreated] != 1 {
		t.Errorf("created outcome count = %d; want 1", rec.requested[service.OutcomeCreated])
	}
}

func TestRegister_InvalidInput(t *testing.T) {
	cases := []struct {
		name, email, field string
	}{
		{"", "ursula_le_guin@gmail.com", "name"},
		{"Ursula", "", "email"},
		{"Ursula", "definitely-not-an-email", "email"},
		{"<script>", "ursula_le_guin@gmail.com", "name"},
		{strings.Repeat("a", 257), "ursula_le_guin@gmail.com", "name"},
	}
	for _, tc := range cases {
		repo := &mockSubscriptionRepo{
			CreatePendingSubscriptionFunc: func(context.Context, models.NewSubscriber, func() (string, error)) (models.PendingSubscription, error) {
				t.Fatal("repository must not be called for invalid input")
				return models.PendingSubscription{}, nil
			},
		}
		sender := &mockSender{}
		svc := service.NewSubscriptionService(repo, sender, "https://example.com", nil, zap.NewNop())

		err := svc.Register(context.Background(), tc.name, tc.email)
		var regErr *service.RegistrationError
		if !errors.As(err, &regErr) || regErr.Kind != service.RegistrationInvalid {
			t.Fatalf("Register(%q, %q) error = %v; want RegistrationInvalid", tc.name, tc.email, err)
		}
		var vErr *models.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != tc.field {
			t.Errorf("Register(%q, %q) field = %v; want %q", tc.name, tc.email, vErr, tc.field)
		}
		if len(sender.sent) != 0 {
			t.Errorf("no email expected, sent %d", len(sender.sent))
		}
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	wantErr := errors.New("db down")
	repo := &mockSubscriptionRepo{
		CreatePendingSubscriptionFunc: func(context.Context, models.NewSubscriber, func() (string, error)) (models.PendingSubscription, error) {
			return models.PendingSubscription{}, wantErr
		},
	}
	sender := &mockSender{}
	svc := service.NewSubscriptionService(repo, sender, "https://example.com", nil, zap.NewNop())

	err := svc.Register(context.Background(), "Ursula", "ursula_le_guin@gmail.com")
	var regErr *service.RegistrationError
	if !errors.As(err, &regErr) || regErr.Kind != service.RegistrationUnexpected {
		t.Fatalf("error = %v; want RegistrationUnexpected", err)
	}
	if !errors.Is(err, wantErr) {
		t.Errorf("error chain lost the cause: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("no email expected when storage fails")
	}
}

func TestRegister_EmailFailureIsUnexpected(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	issueToken(repo, models.StatusPendingConfirmation, false)
	sender := &mockSender{err: errors.New("503 from provider")}
	rec := newCountingRecorder()
	svc := service.NewSubscriptionService(repo, sender, "https://example.com", rec, zap.NewNop())

	err := svc.Register(context.Background(), "Ursula", "ursula_le_guin@gmail.com")
	var regErr *service.RegistrationError
	if !errors.As(err, &regErr) || regErr.Kind != service.RegistrationUnexpected {
		t.Fatalf("error = %v; want RegistrationUnexpected", err)
	}
	if rec.requested[service.OutcomeFailed] != 1 {
		t.Errorf("failed outcome not recorded")
	}
}

func TestRegister_AlreadyConfirmedSendsNothing(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	issueToken(repo, models.StatusConfirmed, false)
	sender := &mockSender{}
	rec := newCountingRecorder()
	svc := service.NewSubscriptionService(repo, sender, "https://example.com", rec, zap.NewNop())

	if err := svc.Register(context.Background(), "Ursula", "ursula_le_guin@gmail.com"); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if len(sender.sent) != 0 {
		t.Errorf("sent %d emails; want 0", len(sender.sent))
	}
	if rec.requested[service.OutcomeAlreadyConfirmed] != 1 {
		t.Errorf("already_confirmed outcome not recorded")
	}
}

func TestRegister_PendingDuplicateResendsEmail(t *testing.T) {
	repo := &mockSubscriptionRepo{}
	issueToken(repo, models.StatusPendingConfirmation, true)
	sender := &mockSender{}
	rec := newCountingRecorder()
	svc := service.NewSubscriptionService(repo, sender, "https://example.com", rec, zap.NewNop())

	for i := 0; i < 2; i++ {
		if err := svc.Register(context.Background(), "Ursula", "ursula_le_guin@gmail.com"); err != nil {
			t.Fatalf("Register returned error: %v", err)
		}
	}
	if len(sender.sent) != 2 {
		t.Fatalf("sent %d emails; want 2", len(sender.sent))
	}
	if sender.sent[0].Text == sender.sent[1].Text {
		t.Error("each request should carry a fresh token")
	}
	if rec.requested[service.OutcomeResent] != 2 {
		t.Errorf("resent outcome count = %d; want 2", rec.requested[service.OutcomeResent])
	}
}

func TestConfirm_Success(t *testing.T) {
	id := uuid.New()
	confirmed := uuid.Nil
	repo := &mockSubscriptionRepo{
		GetSubscriberIDByTokenFunc: func(_ context.Context, token string) (uuid.UUID, error) {
			if token != "abc" {
				t.Errorf("token = %q; want %q", token, "abc")
			}
			return id, nil
		},
		ConfirmSubscriberFunc: func(_ context.Context, got uuid.UUID) error {
			confirmed = got
			return nil
		},
	}
	rec := newCountingRecorder()
	svc := service.NewSubscriptionService(repo, &mockSender{}, "https://example.com", rec, zap.NewNop())

	if err := svc.Confirm(context.Background(), "abc"); err != nil {
		t.Fatalf("Confirm returned error: %v", err)
	}
	if confirmed != id {
		t.Errorf("confirmed id = %s; want %s", confirmed, id)
	}
	if rec.confirmed != 1 {
		t.Errorf("confirmation not recorded")
	}
}

func TestConfirm_UnknownToken(t *testing.T) {
	repo := &mockSubscriptionRepo{
		GetSubscriberIDByTokenFunc: func(context.Context, string) (uuid.UUID, error) {
			return uuid.Nil, sentinel.ErrNotFound
		},
		ConfirmSubscriberFunc: func(context.Context, uuid.UUID) error {
			t.Fatal("ConfirmSubscriber must not be called for unknown tokens")
			return nil
		},
	}
	svc := service.NewSubscriptionService(repo, &mockSender{}, "https://example.com", nil, zap.NewNop())

	err := svc.Confirm(context.Background(), "nope")
	var cErr *service.ConfirmError
	if !errors.As(err, &cErr) || cErr.Kind != service.ConfirmInvalidToken {
		t.Fatalf("error = %v; want ConfirmInvalidToken", err)
	}
}

func TestConfirm_StorageErrors(t *testing.T) {
	lookupFails := &mockSubscriptionRepo{
		GetSubscriberIDByTokenFunc: func(context.Context, string) (uuid.UUID, error) {
			return uuid.Nil, errors.New("timeout")
		},
	}
	updateFails := &mockSubscriptionRepo{
		GetSubscriberIDByTokenFunc: func(context.Context, string) (uuid.UUID, error) {
			return uuid.New(), nil
		},
		ConfirmSubscriberFunc: func(context.Context, uuid.UUID) error {
			return errors.New("read-only")
		},
	}
	for _, repo := range []*mockSubscriptionRepo{lookupFails, updateFails} {
		svc := service.NewSubscriptionService(repo, &mockSender{}, "https://example.com", nil, zap.NewNop())
		err := svc.Confirm(context.Background(), "abc")
		var cErr *service.ConfirmError
		if !errors.As(err, &cErr) || cErr.Kind != service.ConfirmUnexpected {
			t.Errorf("error = %v; want ConfirmUnexpected", err)
		}
	}
}

func TestGenerateToken(t *testing.T) {
	seen := map[string]bool{}
	valid := regexp.MustCompile(`^[A-Za-z0-9]{25}$`)
	for i := 0; i < 100; i++ {
		tok, err := service.GenerateToken()
		if err != nil {
			t.Fatalf("GenerateToken returned error: %v", err)
		}
		if !valid.MatchString(tok) {
			t.Fatalf("token %q is not 25 alphanumeric characters", tok)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}
