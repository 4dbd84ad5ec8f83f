// Package email sends transactional email through an HTTP email API.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds a single send request.
	DefaultTimeout = 10 * time.Second

	breakerName          = "email-api"
	breakerFailures      = 5
	breakerOpenTimeout   = 30 * time.Second
	breakerHalfOpenProbe = 1

	sendPath = "/v3.1/send"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("email api circuit breaker is open")

// StatusError reports a non-2xx response from the email API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("email api responded %d: %s", e.StatusCode, e.Body)
}

// Settings configures a Client.
type Settings struct {
	BaseURL   string
	Sender    models.SubscriberEmail
	APIKey    secret.Value
	APISecret secret.Value
	// Timeout defaults to DefaultTimeout when zero.
	Timeout time.Duration
}

// Client posts messages to the email API. Server errors and transport
// failures count towards the circuit breaker; 4xx responses do not.
type Client struct {
	http      *resty.Client
	cb        *gobreaker.CircuitBreaker
	baseURL   string
	sender    models.SubscriberEmail
	apiKey    secret.Value
	apiSecret secret.Value
}

// NewClient constructs a Client. The underlying resty client and breaker
// are shared by every call.
func NewClient(s Settings, log *zap.Logger) *Client {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cbSettings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: breakerHalfOpenProbe,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		http: resty.New().
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
		cb:        gobreaker.NewCircuitBreaker(cbSettings),
		baseURL:   strings.TrimRight(s.BaseURL, "/"),
		sender:    s.Sender,
		apiKey:    s.APIKey,
		apiSecret: s.APISecret,
	}
}

type address struct {
	Email string `json:"Email"`
}

type message struct {
	From     address   `json:"From"`
	To       []address `json:"To"`
	Subject  string    `json:"Subject"`
	TextPart string    `json:"TextPart"`
	HTMLPart string    `json:"HTMLPart"`
}

type sendRequest struct {
	Messages []message `json:"Messages"`
}

// Send delivers one email to recipient.
func (c *Client) Send(ctx context.Context, recipient models.SubscriberEmail, subject, htmlContent, textContent string) error {
	body := sendRequest{Messages: []message{{
		From:     address{Email: c.sender.String()},
		To:       []address{{Email: recipient.String()}},
		Subject:  subject,
		TextPart: textContent,
		HTMLPart: htmlContent,
	}}}

	result, err := c.cb.Execute(func() (any, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetBasicAuth(c.apiKey.ExposeString(), c.apiSecret.ExposeString()).
			SetBody(body).
			Post(c.baseURL + sendPath)
		if err != nil {
			return nil, fmt.Errorf("post %s: %w", sendPath, err)
		}
		if resp.IsSuccess() {
			return nil, nil
		}
		statusErr := &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return nil, statusErr
		}
		return statusErr, nil
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	if err != nil {
		return err
	}
	if statusErr, ok := result.(*StatusError); ok {
		return statusErr
	}
	return nil
}
