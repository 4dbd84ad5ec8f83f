package http

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type loginPage struct {
	Flash string
}

func render(w http.ResponseWriter, log *zap.Logger, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		log.Error("failed to render page", zap.String("page", name), zap.Error(err))
	}
}

// HomeHandler serves the landing page.
type HomeHandler struct {
	Log *zap.Logger
}

// Home handles GET /.
func (h *HomeHandler) Home(w http.ResponseWriter, _ *http.Request) {
	render(w, h.Log, "home.html", nil)
}

// HealthCheck handles GET /health_check with an empty 200.
func HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// internalError logs err and answers with a generic 500.
func internalError(w http.ResponseWriter, log *zap.Logger, msg string, err error) {
	log.Error(msg, zap.Error(err))
	http.Error(w, "internal error", http.StatusInternalServerError)
}
