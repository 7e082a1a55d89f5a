// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"admission-engine/internal/api"
	awsclient "admission-engine/internal/common/aws"
	"admission-engine/internal/common/config"
	"admission-engine/internal/common/database"
	"admission-engine/internal/common/logger"
	"admission-engine/internal/common/observability"
	"admission-engine/internal/engine/admission"
	"admission-engine/internal/engine/eligibility"
	"admission-engine/internal/engine/fanout"
	"admission-engine/internal/store"
	"admission-engine/internal/store/memory"
	"admission-engine/internal/store/postgres"
	"admission-engine/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting admission engine...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Rebuild with the configured level/format now that config is available.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Store backend ---
	var stores store.Stores
	var mem *memory.Store

	switch cfg.Store.Backend {
	case "memory":
		mem = memory.New()
		stores = mem.Stores()
		zapLog.Info("Using in-memory store backend")

	default:
		var pg *database.PostgresClient
		err = retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
		if err != nil {
			zapLog.Fatal("postgres failed after retries", zap.Error(err))
		}
		defer pg.Close()
		zapLog.Info("PostgreSQL connected successfully")

		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			redis = database.NewRedis(cfg.Database.Redis)
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")
		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		stores = postgres.New(pg.DB, log, postgres.Options{
			Redis:    redis.Client,
			CacheTTL: time.Duration(cfg.Database.Redis.CacheTTL) * time.Second,
		})
	}

	// --- Candidate source ---
	var source fanout.CandidateSource = fanout.NewScanSource(stores.Candidates)
	if cfg.Matching.CandidateSource == "elasticsearch" {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
			if err != nil {
				return err
			}
			return esClient.Ping()
		}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		zapLog.Info("Elasticsearch connected successfully")

		source = fanout.NewElasticsearchSource(esClient.Client, cfg.Database.Elasticsearch.Index, stores.Profiles)
	}

	// --- Notification channels ---
	var sesClient fanout.SESService
	if cfg.Notifications.Email.Enabled {
		c, err := awsclient.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SES client failed", zap.Error(err))
		}
		sesClient = c
	}

	var snsClient fanout.SNSService
	if cfg.Notifications.SMS.Enabled {
		c, err := awsclient.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Fatal("SNS client failed", zap.Error(err))
		}
		snsClient = c
	}

	templates, err := registry.LoadRegistry(cfg.Notifications.TemplateRegistry)
	if err != nil {
		zapLog.Fatal("template registry load failed", zap.Error(err))
	}

	// --- Engine wiring ---
	notifier := fanout.NewNotifier(templates, sesClient, snsClient, fanout.NotifierConfig{
		EmailEnabled: cfg.Notifications.Email.Enabled,
		SMSEnabled:   cfg.Notifications.SMS.Enabled,
		FromEmail:    cfg.Notifications.Email.FromEmail,
	}, log)

	fan := fanout.New(source, stores.Notifications, notifier, fanout.Config{
		NotifyThreshold:       cfg.Matching.NotifyThreshold,
		HighPriorityThreshold: cfg.Matching.HighPriorityThreshold,
		Workers:               cfg.Matching.FanoutWorkers,
	}, log)

	gate := eligibility.NewGate(stores.Postings, stores.Applications, log)
	arbiter := admission.NewArbiter(stores.Applications, log)

	server := api.NewServer(gate, arbiter, fan, stores, obs, log)

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server.Router(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// pprof on the default mux, local only.
	go func() {
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			zapLog.Error("pprof server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("HTTP server shutdown failed", zap.Error(err))
	}

	zapLog.Info("Admission engine stopped gracefully")
}
