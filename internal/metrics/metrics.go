// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	SubscriptionRequests *prometheus.CounterVec
	Confirmations        prometheus.Counter
	DeliveredEmails      prometheus.Counter
	SkippedSubscribers   prometheus.Counter
	Subscribers          *prometheus.GaugeVec

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New creates the metrics and registers them with reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SubscriptionRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_subscription_requests_total",
			Help: "Subscription requests by outcome",
		}, []string{"outcome"}),

		Confirmations: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_confirmations_total",
			Help: "Subscriptions confirmed through a token link",
		}),

		DeliveredEmails: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_delivered_total",
			Help: "Newsletter emails accepted by the email API",
		}),

		SkippedSubscribers: factory.NewCounter(prometheus.CounterOpts{
			Name: "newsletter_skipped_total",
			Help: "Confirmed subscribers skipped because the stored email is invalid",
		}),

		Subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "newsletter_subscribers",
			Help: "Stored subscribers by status",
		}, []string{"status"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "newsletter_http_requests_total",
			Help: "HTTP requests by method, route and status code",
		}, []string{"method", "route", "status"}),

		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsletter_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"method", "route"}),

		gatherer: reg,
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// SubscriptionRequested counts one subscription request by outcome.
func (m *Metrics) SubscriptionRequested(outcome string) {
	m.SubscriptionRequests.WithLabelValues(outcome).Inc()
}

// SubscriptionConfirmed counts one followed confirmation link.
func (m *Metrics) SubscriptionConfirmed() {
	m.Confirmations.Inc()
}

// NewsletterDelivered counts one newsletter email handed to the email API.
func (m *Metrics) NewsletterDelivered() {
	m.DeliveredEmails.Inc()
}

// NewsletterSkipped counts one confirmed subscriber skipped for an invalid email.
func (m *Metrics) NewsletterSkipped() {
	m.SkippedSubscribers.Inc()
}

// SetSubscribers records the stored subscriber count for status.
func (m *Metrics) SetSubscribers(status string, n int64) {
	m.Subscribers.WithLabelValues(status).Set(float64(n))
}

// ObserveRequest records one served HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
