// Package http provides the HTTP handlers and routing of the newsletter service.
package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/atinyakov/newsletter/internal/service"
	"go.uber.org/zap"
)

// SubscriptionService defines the subscription operations required by the
// SubscriptionHandler.
type SubscriptionService interface {
	// Register returns a *service.RegistrationError on failure.
	Register(ctx context.Context, name, email string) error
	// Confirm returns a *service.ConfirmError on failure.
	Confirm(ctx context.Context, token string) error
}

// SubscriptionHandler handles subscription and confirmation requests.
type SubscriptionHandler struct {
	SubscriptionService SubscriptionService
	Log                 *zap.Logger
}

// Subscribe handles POST /subscriptions.
// It expects a form-encoded body with "name" and "email".
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	err := h.SubscriptionService.Register(r.Context(), r.PostForm.Get("name"), r.PostForm.Get("email"))
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	var regErr *service.RegistrationError
	if errors.As(err, &regErr) && regErr.Kind == service.RegistrationInvalid {
		http.Error(w, regErr.Error(), http.StatusBadRequest)
		return
	}
	internalError(w, h.Log, "failed to register subscriber", err)
}

// Confirm handles GET /subscriptions/confirm?token=...
func (h *SubscriptionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusBadRequest)
		return
	}

	err := h.SubscriptionService.Confirm(r.Context(), token)
	if err == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	var cErr *service.ConfirmError
	if errors.As(err, &cErr) && cErr.Kind == service.ConfirmInvalidToken {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	internalError(w, h.Log, "failed to confirm subscriber", err)
}
