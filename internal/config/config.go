// Package config provides functionality for managing configuration options
// for the application using command-line flags, a JSON file and environment
// variables.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/atinyakov/newsletter/internal/models"
	"github.com/atinyakov/newsletter/internal/secret"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix prefixes every environment variable, e.g. NEWSLETTER_ADDRESS.
const EnvPrefix = "NEWSLETTER"

const (
	defaultAddress       = "localhost:8080"
	defaultBaseURL       = "http://localhost:8080"
	defaultLogLevel      = "info"
	defaultEmailTimeout  = 10 * time.Second
	defaultStatsInterval = time.Minute
)

var httpURL = regexp.MustCompile(`^https?://`)

// Duration is a time.Duration read from strings such as "10s" in both JSON
// and environment variables.
type Duration time.Duration

// UnmarshalJSON accepts a Go duration string.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}
	return d.Decode(s)
}

// Decode implements envconfig.Decoder.
func (d *Duration) Decode(value string) error {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// EmailOptions configure the email API client.
type EmailOptions struct {
	BaseURL   string       `json:"base_url" split_words:"true"`
	Sender    string       `json:"sender" split_words:"true"`
	APIKey    secret.Value `json:"api_key" split_words:"true"`
	APISecret secret.Value `json:"api_secret" split_words:"true"`
	Timeout   Duration     `json:"timeout" split_words:"true"`
}

// Options holds the configuration values for the application.
type Options struct {
	// Environment selects the log format: local or production.
	Environment string `json:"environment" split_words:"true"`

	// Address defines the server's listening address (ip:port).
	Address string `json:"address" split_words:"true"`

	// BaseURL is the public URL used in confirmation links.
	BaseURL string `json:"base_url" split_words:"true"`

	// DatabaseDSN holds the database connection string for the application.
	DatabaseDSN secret.Value `json:"database_dsn" split_words:"true"`

	LogLevel string `json:"log_level" split_words:"true"`

	// FlashKey signs flash message cookies.
	FlashKey secret.Value `json:"flash_key" split_words:"true"`

	// HashWorkers bounds concurrent password hashing; 0 means one per CPU.
	HashWorkers int `json:"hash_workers" split_words:"true"`

	// StatsInterval is how often the subscriber gauge is refreshed.
	StatsInterval Duration `json:"stats_interval" split_words:"true"`

	Email EmailOptions `json:"email" split_words:"true"`

	// Config is the path to the config file.
	Config string `json:"-" ignored:"true"`
}

func defaults() *Options {
	return &Options{
		Environment:   "local",
		Address:       defaultAddress,
		BaseURL:       defaultBaseURL,
		LogLevel:      defaultLogLevel,
		StatsInterval: Duration(defaultStatsInterval),
		Email:         EmailOptions{Timeout: Duration(defaultEmailTimeout)},
		Config:        "config.json",
	}
}

// Parse builds the configuration from os.Args and the environment.
func Parse() (*Options, error) {
	return Load(os.Args[1:])
}

// Load builds the configuration from args. Layers are applied in order,
// each overriding the previous one: defaults, flags, the JSON config file,
// environment variables. The result is validated.
func Load(args []string) (*Options, error) {
	options := defaults()

	fs := flag.NewFlagSet("newsletter", flag.ContinueOnError)
	fs.StringVar(&options.Address, "a", options.Address, "run on ip:port server")
	fs.Func("d", "db address", func(s string) error {
		options.DatabaseDSN = secret.New(s)
		return nil
	})
	fs.StringVar(&options.BaseURL, "b", options.BaseURL, "public base URL")
	fs.StringVar(&options.LogLevel, "l", options.LogLevel, "log level")
	fs.StringVar(&options.Config, "config", options.Config, "path to config file")
	fs.StringVar(&options.Config, "c", options.Config, "path to config file (shorthand)")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if err := loadFile(options.Config, options); err != nil {
			return nil, err
		}
	}

	if err := envconfig.Process(EnvPrefix, options); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := options.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return options, nil
}

// loadFile applies the JSON file at path. A missing file is not an error.
func loadFile(path string, options *Options) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := json.Unmarshal(data, options); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (o *Options) validate() error {
	err := validation.ValidateStruct(o,
		validation.Field(&o.Environment, validation.Required, validation.In("local", "production")),
		validation.Field(&o.Address, validation.Required),
		validation.Field(&o.BaseURL, validation.Required, validation.Match(httpURL)),
		validation.Field(&o.DatabaseDSN, validation.By(notEmptySecret)),
		validation.Field(&o.FlashKey, validation.By(notEmptySecret)),
		validation.Field(&o.HashWorkers, validation.Min(0)),
		validation.Field(&o.StatsInterval, validation.By(positiveDuration)),
	)
	if err != nil {
		return err
	}

	e := &o.Email
	err = validation.ValidateStruct(e,
		validation.Field(&e.BaseURL, validation.Required, validation.Match(httpURL)),
		validation.Field(&e.Sender, validation.Required, validation.By(validSender)),
		validation.Field(&e.APIKey, validation.By(notEmptySecret)),
		validation.Field(&e.APISecret, validation.By(notEmptySecret)),
		validation.Field(&e.Timeout, validation.By(positiveDuration)),
	)
	if err != nil {
		return fmt.Errorf("email: %w", err)
	}
	return nil
}

// SenderEmail returns the validated sender address.
func (o *Options) SenderEmail() models.SubscriberEmail {
	// validate already checked it.
	e, _ := models.ParseSubscriberEmail(o.Email.Sender)
	return e
}

func notEmptySecret(value interface{}) error {
	if v, ok := value.(secret.Value); ok && v.IsEmpty() {
		return errors.New("cannot be blank")
	}
	return nil
}

func positiveDuration(value interface{}) error {
	if d, ok := value.(Duration); ok && d <= 0 {
		return errors.New("must be a positive duration")
	}
	return nil
}

func validSender(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := models.ParseSubscriberEmail(s); err != nil {
		return errors.New("must be a valid email address")
	}
	return nil
}
