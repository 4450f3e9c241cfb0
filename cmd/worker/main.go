package main

import (
	"context"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	mqcontracts "habitflow/contracts/mq"
	"habitflow/internal/config"
	"habitflow/internal/mqhandler"
	"habitflow/internal/repository"
	"habitflow/internal/service"
	"habitflow/pkg/db"
	"habitflow/pkg/logger"
	"habitflow/pkg/mq"
	"habitflow/pkg/redis"
	"habitflow/pkg/util"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting analytics worker...",
		zap.String("env", cfg.Env),
		zap.String("queue", cfg.Worker.Queue),
	)

	if cfg.Storage != config.StoragePostgres {
		log.Fatal("Worker needs postgres storage", zap.String("storage", cfg.Storage))
	}
	if cfg.MQ.URL == "" {
		log.Fatal("Worker needs mq.url")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Redis
	rdb := redis.NewRedisClient(cfg.Redis)
	if rdb == nil {
		log.Fatal("Worker needs redis for the report cache")
	}
	defer rdb.Close()
	if err := redis.Ping(ctx, rdb); err != nil {
		log.Fatal("Redis unreachable", zap.Error(err))
	}

	deduper := util.NewDeduper(rdb, cfg.Worker.DedupTTL, log)
	retryCounter := util.NewRetryCounter(rdb, cfg.Worker.RetryTTL)

	// DB
	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("DB connection failed", zap.Error(err))
	}
	defer pool.Close()

	routines := repository.NewRoutineRepository(pool, log)
	completions := repository.NewCompletionRepository(pool, log)
	analyticsService := service.NewAnalyticsService(routines, completions, service.NewRedisReportCache(rdb, cfg.Analytics.CacheTTL), log)

	refreshHandler := mqhandler.NewAnalyticsRefreshHandler(analyticsService, deduper, log)

	// DLQ publisher for exhausted and non-retryable messages
	dlq, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("DLQ publisher init failed", zap.Error(err))
	}
	defer dlq.Close()

	log.Info("Init consumer",
		zap.String("queue", cfg.Worker.Queue),
		zap.Strings("routing_keys", mqcontracts.RoutingKeys),
	)
	consumer, err := mq.NewConsumer(cfg.MQ.URL, cfg.Worker.Queue, mqcontracts.RoutingKeys, log)
	if err != nil {
		log.Fatal("Consumer init failed", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(refreshHandler.Handle)
	if err := consumer.SetRetryPolicy(&mq.RetryPolicy{
		Counter:    retryCounter,
		MaxRetries: cfg.MQ.MaxRetries,
		DLQ:        dlq,
		Name:       cfg.Worker.Queue,
	}); err != nil {
		log.Fatal("DLQ declaration failed", zap.Error(err))
	}

	log.Info("Worker running")
	if err := consumer.StartConsuming(ctx); err != nil {
		log.Error("Consumer stopped with error", zap.Error(err))
	}
	log.Info("Worker shutdown complete")
}
