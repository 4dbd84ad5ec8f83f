// Package client implements the admin command-line client of the
// newsletter service.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/newsletter/internal/secret"
	"github.com/go-resty/resty/v2"
)

const (
	apiNewsletter    = "/newsletter"
	apiSubscriptions = "/subscriptions"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 30 * time.Second
)

// ErrUnauthorized is returned when the server rejects the admin credentials.
var ErrUnauthorized = errors.New("server rejected the credentials")

// StatusError reports an unexpected response status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Issue is the newsletter payload accepted by POST /newsletter.
type Issue struct {
	Title   string       `json:"title"`
	Content IssueContent `json:"content"`
}

// IssueContent holds both renderings of an issue.
type IssueContent struct {
	HTML string `json:"html"`
	Text string `json:"text"`
}

// Client talks to a running newsletter server.
type Client struct {
	http *resty.Client
}

// New returns a Client for the server at baseURL.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout),
	}
}

// Publish sends issue to every confirmed subscriber, authenticating as username.
func (c *Client) Publish(ctx context.Context, username string, password secret.Value, issue Issue) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(username, password.ExposeString()).
		SetHeader("Content-Type", "application/json").
		SetBody(issue).
		Post(apiNewsletter)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}
	return checkStatus(resp)
}

// Subscribe submits the public subscription form.
func (c *Client) Subscribe(ctx context.Context, name, email string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"name": name, "email": email}).
		Post(apiSubscriptions)
	if err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}
	return checkStatus(resp)
}

func checkStatus(resp *resty.Response) error {
	switch {
	case resp.IsSuccess():
		return nil
	case resp.StatusCode() == http.StatusUnauthorized:
		return ErrUnauthorized
	default:
		return &StatusError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
}
