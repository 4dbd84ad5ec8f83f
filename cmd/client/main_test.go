package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/atinyakov/newsletter/internal/client"
)

func issueInput() *client.Prompter {
	return client.NewPrompter(strings.NewReader("Weekly\n\n<p>body</p>\n\nbody\n"), io.Discard)
}

func TestPublish_ReturnsErrorOnRejectedCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()
	t.Setenv(passwordEnv, "wrong")

	err := publish(context.Background(), client.New(server.URL, time.Second), issueInput(), "admin")
	if err == nil || !strings.Contains(err.Error(), "publish rejected") {
		t.Errorf("publish error = %v; want rejected credentials", err)
	}
}

func TestPublish_UsesPasswordFromEnv(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "admin" || pass != "from-env" {
			t.Errorf("basic auth = %q/%q/%v", user, pass, ok)
		}
	}))
	defer server.Close()
	t.Setenv(passwordEnv, "from-env")

	if err := publish(context.Background(), client.New(server.URL, time.Second), issueInput(), "admin"); err != nil {
		t.Fatalf("publish: %v", err)
	}
}

func TestSubscribe_RequiresNameAndEmail(t *testing.T) {
	c := client.New("http://127.0.0.1:1", time.Second)
	if err := subscribe(context.Background(), c, "", "ursula@example.com"); err == nil {
		t.Error("expected error for missing name")
	}
	if err := subscribe(context.Background(), c, "Ursula", ""); err == nil {
		t.Error("expected error for missing email")
	}
}
