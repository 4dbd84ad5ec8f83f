package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/atinyakov/newsletter/internal/client"
	"github.com/atinyakov/newsletter/internal/secret"
)

// passwordEnv lets scripts publish without a terminal.
const passwordEnv = "NEWSLETTER_ADMIN_PASSWORD"

var (
	version   string
	buildDate string
)

// main parses command-line flags and dispatches to the publish or subscribe commands.
func main() {
	var (
		cmd      string
		baseURL  string
		username string
		name     string
		email    string
		showVer  bool
	)

	flag.StringVar(&cmd, "cmd", "", "command: publish | subscribe")
	flag.StringVar(&baseURL, "url", "http://localhost:8080", "server base URL")
	flag.StringVar(&username, "user", "admin", "admin username for publish")
	flag.StringVar(&name, "name", "", "subscriber name for subscribe")
	flag.StringVar(&email, "email", "", "subscriber email for subscribe")
	flag.BoolVar(&showVer, "version", false, "show build version and date")
	flag.Parse()

	if showVer {
		fmt.Printf("Newsletter Client\nVersion: %s\nBuild Date: %s\n", version, buildDate)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	c := client.New(baseURL, client.DefaultTimeout)

	var err error
	switch cmd {
	case "publish":
		err = publish(ctx, c, client.NewPrompter(os.Stdin, os.Stdout), username)
	case "subscribe":
		err = subscribe(ctx, c, name, email)
	default:
		err = fmt.Errorf("unknown command: %s", cmd)
	}
	stop()
	if err != nil {
		log.Fatal(err)
	}
}

// publish returns instead of exiting so the deferred wipe always runs.
func publish(ctx context.Context, c *client.Client, prompter *client.Prompter, username string) error {
	issue, err := prompter.PromptIssue()
	if err != nil {
		return err
	}

	password := secret.New(os.Getenv(passwordEnv))
	if password.IsEmpty() {
		if password, err = prompter.PromptPassword(); err != nil {
			return err
		}
	}
	defer password.Wipe()

	err = c.Publish(ctx, username, password, issue)
	if errors.Is(err, client.ErrUnauthorized) {
		return errors.New("publish rejected: check the username and password")
	}
	if err != nil {
		return err
	}
	fmt.Println("Newsletter published")
	return nil
}

func subscribe(ctx context.Context, c *client.Client, name, email string) error {
	if name == "" || email == "" {
		return errors.New("please provide -name and -email")
	}
	if err := c.Subscribe(ctx, name, email); err != nil {
		return err
	}
	fmt.Println("Subscription requested, check your inbox")
	return nil
}
