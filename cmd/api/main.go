package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habitflow/internal/config"
	"habitflow/internal/handler"
	"habitflow/internal/httpserver"
	"habitflow/internal/repository"
	"habitflow/internal/service"
	"habitflow/pkg/circuitbreaker"
	"habitflow/pkg/db"
	"habitflow/pkg/logger"
	"habitflow/pkg/mq"
	"habitflow/pkg/outbox"
	"habitflow/pkg/redis"
)

// stores is the persistence backend selected by cfg.Storage.
type stores struct {
	pool        *pgxpool.Pool // nil with memory storage
	users       service.UserStore
	routines    service.RoutineStore
	completions service.CompletionStore
	ready       func(ctx context.Context) error
	close       func()
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	if cfg.Storage == config.StorageMemory {
		log.Warn("Using in-memory storage; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			users:       mem.Users(),
			routines:    mem.Routines(),
			completions: mem.Completions(),
			close:       func() {},
		}, nil
	}

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, pool, log); err != nil {
		pool.Close()
		return nil, err
	}
	return &stores{
		pool:        pool,
		users:       repository.NewUserRepository(pool, log),
		routines:    repository.NewRoutineRepository(pool, log),
		completions: repository.NewCompletionRepository(pool, log),
		ready:       pool.Ping,
		close:       pool.Close,
	}, nil
}

// newEventPublisher picks how habit events leave the API: through the
// outbox table when enabled, directly to RabbitMQ otherwise, or nowhere
// when MQ is not configured. The returned func stops background work.
func newEventPublisher(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *zap.Logger) (service.EventPublisher, func()) {
	if cfg.MQ.URL == "" {
		log.Info("MQ disabled, events are not published")
		return service.NoopPublisher{}, func() {}
	}
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Warn("RabbitMQ unavailable, events are not published", zap.Error(err))
		return service.NoopPublisher{}, func() {}
	}

	if cfg.Outbox.Enabled && pool != nil {
		repo := outbox.NewRepository(pool)
		dispatcher := outbox.NewDispatcher(repo, publisher, log).
			WithInterval(cfg.Outbox.Interval).
			WithBatchSize(cfg.Outbox.BatchSize).
			WithMaxRetries(cfg.Outbox.MaxRetries)

		dispatchCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			dispatcher.Start(dispatchCtx)
		}()
		return service.NewOutboxPublisher(repo, log), func() {
			cancel()
			<-done
			publisher.Close()
		}
	}

	breaker := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("Event publisher breaker changed state",
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return service.NewBrokerPublisher(publisher, breaker, log), publisher.Close
}

func newReportCache(rdb *goredis.Client, ttl time.Duration) service.ReportCache {
	if rdb == nil {
		return service.NoopReportCache{}
	}
	return service.NewRedisReportCache(rdb, ttl)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.NewLogger().Fatal("Failed to load config", zap.Error(err))
	}

	log := logger.NewLoggerWithLevel(cfg.LogLevel)
	defer log.Sync()

	log.Info("Starting habitflow API...",
		zap.String("env", cfg.Env),
		zap.String("storage", cfg.Storage),
		zap.String("port", cfg.Server.Port),
	)

	ctx := context.Background()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to init storage", zap.Error(err))
	}
	defer st.close()

	rdb := redis.NewRedisClient(cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		if err := redis.Ping(ctx, rdb); err != nil {
			log.Warn("Redis unreachable, analytics cache will miss", zap.Error(err))
		}
	}

	events, closeEvents := newEventPublisher(ctx, cfg, st.pool, log)
	defer closeEvents()

	authService := service.NewAuthService(st.users, cfg.JWT.Secret, cfg.JWT.TTL, log)
	analyticsService := service.NewAnalyticsService(st.routines, st.completions, newReportCache(rdb, cfg.Analytics.CacheTTL), log)
	routineService := service.NewRoutineService(st.routines, events, analyticsService, log)
	completionService := service.NewCompletionService(st.completions, events, analyticsService, log)

	router := httpserver.NewRouter(httpserver.Handlers{
		Auth:        handler.NewAuthHandler(authService, log),
		Routines:    handler.NewRoutineHandler(routineService, log),
		Completions: handler.NewCompletionHandler(completionService, log),
		Analytics:   handler.NewAnalyticsHandler(analyticsService, log),
	}, httpserver.Options{
		JWTSecret:      cfg.JWT.Secret,
		RateLimitRPS:   cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst: cfg.RateLimit.Burst,
		Ready:          st.ready,
		Logger:         log,
	})

	srv := httpserver.NewServer(":"+cfg.Server.Port, router, log)
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down habitflow API gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}
	log.Info("habitflow API shutdown complete")
}
