// Package main initializes and starts the newsletter HTTP server,
// setting up configuration, logging, database connections, repositories,
// services, handlers and metrics.
package main

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/newsletter/internal/auth"
	"github.com/atinyakov/newsletter/internal/config"
	"github.com/atinyakov/newsletter/internal/db"
	"github.com/atinyakov/newsletter/internal/email"
	"github.com/atinyakov/newsletter/internal/flash"
	"github.com/atinyakov/newsletter/internal/logger"
	"github.com/atinyakov/newsletter/internal/metrics"
	"github.com/atinyakov/newsletter/internal/repository"
	"github.com/atinyakov/newsletter/internal/server/handler/http"
	"github.com/atinyakov/newsletter/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Parse command-line, file and environment configuration.
	options, err := config.Parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel, options.Environment); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(1)
	}
	zapLogger := log.Log

	if err := run(options, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(options *config.Options, zapLogger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL connection.
	postgresDB, err := db.InitPostgres(options.DatabaseDSN.ExposeString(), db.PoolOptions{
		MaxOpenConns:    20,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer postgresDB.Close()

	// Metrics registry shared by the business counters and /metrics.
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewDBStatsCollector(postgresDB, "newsletter"),
	)
	appMetrics := metrics.New(registry)

	// Refresh the subscriber gauge in the background.
	db.StartSubscriberStatsReporter(ctx, postgresDB,
		time.Duration(options.StatsInterval),
		appMetrics,
		zapLogger,
	)

	// Initialize repositories.
	authRepo := repository.NewPostgresAuthRepository(postgresDB)
	subscriptionRepo := repository.NewPostgresSubscriptionRepository(postgresDB)

	// Outbound email with timeout and circuit breaker.
	emailClient := email.NewClient(email.Settings{
		BaseURL:   options.Email.BaseURL,
		Sender:    options.SenderEmail(),
		APIKey:    options.Email.APIKey,
		APISecret: options.Email.APISecret,
		Timeout:   time.Duration(options.Email.Timeout),
	}, zapLogger)

	// Credential validation shared by /login and /newsletter.
	validator := auth.NewValidator(authRepo, auth.NewVerifier(options.HashWorkers), zapLogger)

	// Initialize business-logic services.
	subscriptionService := service.NewSubscriptionService(subscriptionRepo, emailClient, options.BaseURL, appMetrics, zapLogger)
	newsletterService := service.NewNewsletterService(subscriptionRepo, validator, emailClient, appMetrics, zapLogger)

	flashStore, err := flash.NewStore(options.FlashKey)
	if err != nil {
		return fmt.Errorf("init flash store: %w", err)
	}

	// Build the router with middleware and routes.
	router := http.NewRouter(
		&http.SubscriptionHandler{SubscriptionService: subscriptionService, Log: zapLogger},
		&http.NewsletterHandler{Publisher: newsletterService, Log: zapLogger},
		&http.LoginHandler{Validator: validator, Flash: flashStore, Log: zapLogger},
		&http.HomeHandler{Log: zapLogger},
		appMetrics,
		zapLogger,
	)

	server := &nethttp.Server{
		Addr:              options.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zapLogger.Info("starting HTTP server", zap.String("addr", options.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
