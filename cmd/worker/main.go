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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jwalitptl/crm-api/internal/config"
	"github.com/jwalitptl/crm-api/internal/email"
	"github.com/jwalitptl/crm-api/internal/repository/postgres"
	notificationService "github.com/jwalitptl/crm-api/internal/service/notification"
	"github.com/jwalitptl/crm-api/internal/stream"
	"github.com/jwalitptl/crm-api/internal/worker"
	"github.com/jwalitptl/crm-api/pkg/logger"
	"github.com/jwalitptl/crm-api/pkg/messaging/redis"
	"github.com/jwalitptl/crm-api/pkg/metrics"
)

func setupHealthCheck(addr string, registry *prometheus.Registry, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.ZL.Error().Err(err).Msg("Health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	healthAddr := flag.String("health-addr", ":8081", "listen address for health and metrics")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	// Load config
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.NewLogger(nil).Fatal(err, "Failed to load config")
	}

	// Initialize logger
	log := logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Console:    cfg.Log.Console,
	}).WithFields(map[string]interface{}{"service": "reminder-worker"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "Failed to connect to database")
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Fatal(err, "Failed to migrate database")
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(cfg.Monitoring.Namespace, registry)

	// Reminders are always stored; Redis additionally pushes them to open
	// streams on the API instances.
	var publisher notificationService.Publisher
	if cfg.Redis.URL != "" {
		broker, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, log.ZL, m)
		if err != nil {
			log.Fatal(err, "Failed to create Redis broker")
		}
		defer broker.Close()
		publisher = stream.NewBrokerPublisher(broker, cfg.Redis.Channel, nil)
	} else {
		log.Warn("Redis not configured, reminders reach clients on their next list request")
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

	// Initialize repositories
	base := postgres.NewBaseRepository(db)
	repos := notificationService.Repositories{
		Notifications: postgres.NewNotificationRepository(base),
		Employees:     postgres.NewEmployeeRepository(base),
		Leads:         postgres.NewLeadRepository(base),
		Tasks:         postgres.NewTaskRepository(base),
		Reminders:     postgres.NewReminderRepository(base),
	}
	notificationSvc := notificationService.NewService(repos, publisher, emailSvc, m)

	sweeper := worker.NewReminderSweeper(
		repos.Reminders,
		repos.Tasks,
		notificationSvc,
		worker.ReminderSweeperConfig{
			BatchSize:    cfg.Reminders.BatchSize,
			PollInterval: cfg.Reminders.PollInterval,
		},
		log,
		m,
	)

	if *once {
		processed, err := sweeper.Sweep(ctx)
		if err != nil {
			log.Fatal(err, "Reminder sweep failed")
		}
		log.Info("Reminder sweep finished", "count", processed)
		return
	}

	// Setup health check endpoints
	healthSrv := setupHealthCheck(*healthAddr, registry, log)

	sweeper.Start(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := healthSrv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Health check server shutdown failed")
	}
}
