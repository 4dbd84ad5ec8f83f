package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/atinyakov/newsletter/internal/middleware"
	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/service"
	validation "github.com/go-ozzo/ozzo-validation"
	"go.uber.org/zap"
)

const (
	maxFormBytes       = 64 << 10
	maxNewsletterBytes = 1 << 20

	publishChallenge = `Basic realm="publish"`
)

// NewsletterPublisher sends an issue to all confirmed subscribers.
type NewsletterPublisher interface {
	// Publish returns a *service.PublishError on failure.
	Publish(ctx context.Context, creds models.Credentials, issue models.NewsletterIssue) error
}

// NewsletterHandler handles newsletter publishing.
type NewsletterHandler struct {
	Publisher NewsletterPublisher
	Log       *zap.Logger
}

type newsletterContent struct {
	HTML *string `json:"html"`
	Text *string `json:"text"`
}

func (c newsletterContent) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.HTML, validation.NotNil),
		validation.Field(&c.Text, validation.NotNil),
	)
}

type newsletterRequest struct {
	Title   *string            `json:"title"`
	Content *newsletterContent `json:"content"`
}

func (req *newsletterRequest) validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Title, validation.NotNil),
		validation.Field(&req.Content, validation.NotNil),
	)
}

// decodeJSON reads exactly one JSON value from body.
func decodeJSON(body io.Reader, v any) error {
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("unexpected data after the JSON body")
	}
	return nil
}

// Publish handles POST /newsletter.
// The JSON body is validated before the Basic-Auth credentials are checked.
func (h *NewsletterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req newsletterRequest
	if err := decodeJSON(http.MaxBytesReader(w, r.Body, maxNewsletterBytes), &req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	creds, ok := middleware.CredentialsFromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	issue := models.NewsletterIssue{
		Title:       *req.Title,
		HTMLContent: *req.Content.HTML,
		TextContent: *req.Content.Text,
	}
	err := h.Publisher.Publish(r.Context(), creds, issue)
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	var pErr *service.PublishError
	if errors.As(err, &pErr) && pErr.Kind == service.PublishAuth {
		h.Log.Info("newsletter publish rejected", zap.String("username", creds.Username), zap.Error(err))
		unauthorized(w)
		return
	}
	internalError(w, h.Log, "failed to publish newsletter", err)
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", publishChallenge)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}
