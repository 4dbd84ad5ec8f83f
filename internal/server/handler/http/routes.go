package http

import (
	"net/http"
	"time"

	"github.com/atinyakov/newsletter/internal/middleware"
	"go.uber.org/zap"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// Metrics exposes the registry and records served requests.
type Metrics interface {
	middleware.RequestObserver
	Handler() http.Handler
}

// NewRouter constructs and returns an HTTP handler that serves the
// newsletter service.
//
// Routes:
//
//	GET  /health_check           -> HealthCheck
//	GET  /                       -> homeHandler.Home
//	POST /subscriptions          -> subscriptionHandler.Subscribe
//	GET  /subscriptions/confirm  -> subscriptionHandler.Confirm
//	POST /newsletter             -> newsletterHandler.Publish (Basic-Auth credentials)
//	GET  /login                  -> loginHandler.Form
//	POST /login                  -> loginHandler.Login
//	GET  /metrics                -> Prometheus exposition
//
// Middleware chain (applied in order):
//  1. RequestID: tags the request for log correlation
//  2. WithRequestLogging(logger): logs every served request
//  3. WithMetrics(metrics): counts requests per route
//  4. Recoverer: turns handler panics into 500s
//  5. Timeout: cancels the request context after a minute
func NewRouter(
	subscriptionHandler *SubscriptionHandler,
	newsletterHandler *NewsletterHandler,
	loginHandler *LoginHandler,
	homeHandler *HomeHandler,
	metrics Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(middleware.WithMetrics(metrics))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(time.Minute))

	r.Get("/health_check", HealthCheck)
	r.Get("/", homeHandler.Home)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Post("/subscriptions", subscriptionHandler.Subscribe)
	r.Get("/subscriptions/confirm", subscriptionHandler.Confirm)

	r.With(middleware.BasicCredentials).Post("/newsletter", newsletterHandler.Publish)

	r.Get("/login", loginHandler.Form)
	r.Post("/login", loginHandler.Login)

	return r
}
