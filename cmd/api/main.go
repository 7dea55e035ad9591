package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/crm-api/internal/config"
	"github.com/jwalitptl/crm-api/internal/email"
	authHandler "github.com/jwalitptl/crm-api/internal/handler/auth"
	"github.com/jwalitptl/crm-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/crm-api/internal/handler/notification"
	promHandler "github.com/jwalitptl/crm-api/internal/handler/prometheus"
	"github.com/jwalitptl/crm-api/internal/middleware"
	"github.com/jwalitptl/crm-api/internal/repository/postgres"
	"github.com/jwalitptl/crm-api/internal/router"
	authService "github.com/jwalitptl/crm-api/internal/service/auth"
	notificationService "github.com/jwalitptl/crm-api/internal/service/notification"
	"github.com/jwalitptl/crm-api/internal/stream"
	"github.com/jwalitptl/crm-api/pkg/auth"
	"github.com/jwalitptl/crm-api/pkg/logger"
	"github.com/jwalitptl/crm-api/pkg/messaging/redis"
	"github.com/jwalitptl/crm-api/pkg/metrics"
	"github.com/jwalitptl/crm-api/pkg/security"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	})
	log.Logger = appLogger.ZL
	zerolog.SetGlobalLevel(logger.ParseLevel(cfg.Log.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	registry := prometheus.NewRegistry()
	var m *metrics.Metrics
	var metricsHandler router.MetricsHandler
	if cfg.Monitoring.PrometheusEnabled {
		m = metrics.New(cfg.Monitoring.Namespace, registry)
		metricsHandler = promHandler.New(cfg.Monitoring.Namespace, registry)
	}

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	repos := notificationService.Repositories{
		Notifications: postgres.NewNotificationRepository(base),
		Employees:     postgres.NewEmployeeRepository(base),
		Leads:         postgres.NewLeadRepository(base),
		Tasks:         postgres.NewTaskRepository(base),
		Reminders:     postgres.NewReminderRepository(base),
	}

	hub := stream.NewHub(cfg.Stream.QueueSize, m)
	readiness := map[string]health.Pinger{}

	// With Redis every instance relays the shared channel into its own hub;
	// without it notifications only reach streams held by this process.
	var publisher notificationService.Publisher = stream.NewHubPublisher(hub)
	var broker *redis.RedisBroker
	if cfg.Redis.URL != "" {
		broker, err = redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			Buffer:       cfg.Stream.QueueSize,
		}, appLogger.ZL, m)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer broker.Close()

		publisher = stream.NewBrokerPublisher(broker, cfg.Redis.Channel, hub)
		readiness["redis"] = broker

		// Serve closes the hub when Redis stays unreachable, so streams end
		// rather than idle on pings.
		relay := stream.NewRelay(broker, hub, cfg.Redis.Channel, appLogger).
			WithRetry(cfg.Redis.MaxRetries, cfg.Redis.RetryBackoff)
		go func() {
			if err := relay.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("notification relay stopped")
			}
		}()
	}

	var emailSvc email.Service
	if cfg.Email.Enabled {
		emailSvc = email.NewSMTPService(email.Config{
			Host:     cfg.Email.Host,
			Port:     cfg.Email.Port,
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
		})
	}

	// Initialize services
	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry())
	authSvc := authService.NewService(repos.Employees, jwtSvc, security.NewBcryptHasher(0), time.Minute)
	notificationSvc := notificationService.NewService(repos, publisher, emailSvc, m)

	middleware.RegisterValidators()

	// Setup router
	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins

	notifications := notificationHandler.NewHandler(notificationSvc)
	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc),
		router.Handlers{
			Auth:         authHandler.NewHandler(authSvc),
			Notification: notifications,
			Internal:     notifications,
			Stream:       stream.NewHandler(hub, authSvc, cfg.Stream.PingInterval, m),
			Health:       health.NewHandler(db, readiness),
			Metrics:      metricsHandler,
		},
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RequestTimeout:   cfg.Server.RequestTimeout,
			CORSConfig:       corsConfig,
			Security:         middleware.DefaultSecurityConfig(),
			MetricsPath:      cfg.Monitoring.MetricsPath,
		},
	)
	r.Setup()

	// Only the header read is bounded: a read or write deadline on the
	// connection would end open notification streams.
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           middleware.TrailingSlash("/api/", r.Engine()),
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		MaxHeaderBytes:    cfg.Server.MaxHeaderBytes,
	}

	// Start server
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	// Closing the hub ends every open stream so Shutdown does not wait on them.
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
