package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/finflow/transfer-service/internal/config"
	"github.com/finflow/transfer-service/internal/db"
	"github.com/finflow/transfer-service/internal/domain"
	"github.com/finflow/transfer-service/internal/events"
	"github.com/finflow/transfer-service/internal/httpapi"
	"github.com/finflow/transfer-service/internal/locker"
	"github.com/finflow/transfer-service/internal/storage/memory"
	"github.com/finflow/transfer-service/internal/transfer"
	"github.com/finflow/transfer-service/internal/worker"
)

func main() {
	// Optional .env for local runs; missing file is fine.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	cfg := config.Load()

	ctx := context.Background()

	var (
		accounts domain.AccountRepository
		ledger   domain.LedgerRepository
		tx       domain.TransactionManager
	)
	switch cfg.Store {
	case "memory":
		store := memory.NewStore()
		accounts, ledger, tx = store, store, store
		log.Warn().Msg("using in-memory store, state is lost on shutdown")
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create database pool")
		}
		defer pool.Close()
		accounts = db.NewAccountRepository(pool.Pool)
		ledger = db.NewLedgerRepository(pool.Pool)
		tx = db.NewTransactionManager(pool.Pool, log)
		log.Info().Msg("database connection pool initialized")
	}

	var notifier domain.Notifier
	switch cfg.Notifier {
	case "kafka":
		kafkaNotifier := events.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("kafka notifier initialized")
	case "log":
		notifier = events.NewLogNotifier(log)
	default:
		rabbitNotifier, err := events.NewRabbitMQNotifier(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create rabbitmq notifier")
		}
		defer rabbitNotifier.Close()
		notifier = rabbitNotifier
		log.Info().Str("exchange", cfg.RabbitMQ.Exchange).Msg("rabbitmq notifier initialized")
	}

	locks := locker.New(cfg.Engine.LockStripes)
	coordinator := transfer.New(accounts, ledger, tx, notifier, locks, transfer.Config{
		LockTimeout:  cfg.Engine.LockTimeout,
		LockAttempts: cfg.Engine.LockAttempts,
	}, log)

	pool := worker.NewPool(cfg.Engine.Workers, cfg.Engine.QueueSize, log)

	handler := httpapi.NewHandler(coordinator, pool, accounts, cfg.Engine.SupportedCurrencies, log)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: handler.Router(),
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("transfer service listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Wait for interrupt signal to gracefully shut down.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown failed")
	}
	// Queued but unstarted transfers are lost here; in-flight ones finish
	// or abandon silently when the pool context is cancelled.
	if err := pool.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("worker pool shutdown incomplete")
	}

	log.Info().Msg("stopped")
}
