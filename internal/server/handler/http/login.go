package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/newsletter/internal/auth"
	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InvalidCredentialsMessage is flashed after a rejected login.
const InvalidCredentialsMessage = "Invalid credentials"

// LoginFailedMessage is flashed when credentials could not be checked.
const LoginFailedMessage = "Something went wrong, please try again"

// CredentialValidator authenticates admin credentials.
type CredentialValidator interface {
	Validate(ctx context.Context, creds models.Credentials) (uuid.UUID, error)
}

// FlashStore carries a one-time message across a redirect.
type FlashStore interface {
	Set(w http.ResponseWriter, msg string) error
	Pop(w http.ResponseWriter, r *http.Request) (string, bool)
}

// LoginHandler serves the admin login form and processes submissions.
type LoginHandler struct {
	Validator CredentialValidator
	Flash     FlashStore
	Log       *zap.Logger
}

// Form handles GET /login, showing any pending flash message.
func (h *LoginHandler) Form(w http.ResponseWriter, r *http.Request) {
	msg, _ := h.Flash.Pop(w, r)
	render(w, h.Log, "login.html", loginPage{Flash: msg})
}

// Login handles POST /login.
// Valid credentials redirect to /. Any failure redirects back to /login with
// a flash message.
func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	creds := models.Credentials{
		Username: r.PostForm.Get("username"),
		Password: secret.New(r.PostForm.Get("password")),
	}
	userID, err := h.Validator.Validate(r.Context(), creds)
	if err == nil {
		h.Log.Info("admin logged in", zap.String("user_id", userID.String()))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	msg := InvalidCredentialsMessage
	if auth.IsInvalidCredentials(err) {
		h.Log.Info("login rejected", zap.String("username", creds.Username), zap.Error(err))
	} else {
		h.Log.Error("failed to validate credentials", zap.Error(err))
		msg = LoginFailedMessage
	}

	if err := h.Flash.Set(w, msg); err != nil {
		internalError(w, h.Log, "failed to set flash message", err)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
