package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/byrgyin/server-counter/internal/api"
	"github.com/byrgyin/server-counter/internal/core/service"
	"github.com/byrgyin/server-counter/internal/infrastructure/config"
	mongodb "github.com/byrgyin/server-counter/internal/infrastructure/db/mongo"
	redisdb "github.com/byrgyin/server-counter/internal/infrastructure/db/redis"
	httpserver "github.com/byrgyin/server-counter/internal/infrastructure/http"
	"github.com/byrgyin/server-counter/internal/infrastructure/http/handlers"
	"github.com/byrgyin/server-counter/internal/infrastructure/queue"
	"github.com/byrgyin/server-counter/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("server exited")
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := zerolog.New(os.Stderr).With().Timestamp().Logger()
	cfg, err := config.Load(ctx, bootLog)
	if err != nil {
		logger.Init(logger.Options{Level: "info", Service: "timetrack"})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "timetrack",
	})

	// --- Storage ---
	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:         cfg.Mongo.URI,
		Database:    cfg.Mongo.Database,
		MaxPoolSize: cfg.Mongo.MaxPoolSize,
	})
	if err != nil {
		return err
	}
	var rdb *goredis.Client
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mongoClient.Disconnect(disconnectCtx); err != nil {
			log.Error().Err(err).Msg("mongo disconnect")
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Error().Err(err).Msg("redis close")
			}
		}
	}()

	users := mongodb.NewUserRepository(db, cfg.Mongo.OpTimeout)
	sessions := mongodb.NewSessionRepository(db, cfg.Mongo.OpTimeout)
	timers := mongodb.NewTimerRepository(db, cfg.Mongo.OpTimeout)
	if err := mongodb.EnsureIndexes(ctx, users, sessions, timers); err != nil {
		return err
	}

	checks := map[string]handlers.Check{"mongodb": handlers.MongoCheck(db)}

	var cache service.SessionCache
	if cfg.Session.CacheEnabled {
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, session cache disabled")
		} else {
			rdb = client
			cache = redisdb.NewSessionCache(rdb, cfg.Session.CacheTTL)
			checks["redis"] = handlers.RedisCheck(rdb)
		}
	}

	// --- Progress writer ---
	// Runs on its own context so queued batches can drain after the
	// shutdown signal.
	progress := queue.NewDispatcher(cfg.Progress.Workers, cfg.Progress.QueueSize, timers, logger.Component("progress"))
	progress.Start(context.Background())

	// --- Services ---
	authService := service.NewAuthService(users, sessions, service.NewBcryptHasher(0), cache, logger.Component("auth"))
	resolver := service.NewSessionResolver(sessions, users, cache, logger.Component("session"))
	timerService := service.NewTimerService(timers, progress, logger.Component("timer"))

	router := api.NewRouter(api.Dependencies{
		Log:            log,
		AuthService:    authService,
		TimerService:   timerService,
		Resolver:       resolver,
		Readiness:      handlers.NewHealthDependenciesHandler(checks),
		AllowedOrigins: cfg.WS.AllowedOrigins,
		EnableSwagger:  !cfg.IsProduction(),
		Registerer:     prometheus.DefaultRegisterer,
		Gatherer:       prometheus.DefaultGatherer,
	})

	srv := httpserver.NewServer(router, cfg.Port, cfg.ShutdownTimeout, log)
	runErr := srv.Run(ctx)

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := progress.Shutdown(drainCtx); err != nil {
		log.Warn().Err(err).Msg("progress writer did not drain")
	}

	log.Info().Msg("server stopped")
	return runErr
}
