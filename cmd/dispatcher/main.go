package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/auralabs/aura-dispatch/internal/api"
	"github.com/auralabs/aura-dispatch/internal/circuitbreaker"
	"github.com/auralabs/aura-dispatch/internal/config"
	"github.com/auralabs/aura-dispatch/internal/db"
	"github.com/auralabs/aura-dispatch/internal/engine"
	"github.com/auralabs/aura-dispatch/internal/events"
	"github.com/auralabs/aura-dispatch/internal/observ"
	"github.com/auralabs/aura-dispatch/internal/push"
	"github.com/auralabs/aura-dispatch/internal/quote"
	"github.com/auralabs/aura-dispatch/internal/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting aura dispatcher",
		zap.String("env", cfg.Env),
		zap.Int("port", cfg.Port),
		zap.Duration("tick_interval", cfg.TickInterval),
	)

	ctx := context.Background()

	database, err := db.New(ctx, db.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	repo := db.NewRepository(database, logger)

	// Redis backs the dispatch-time sent guard; the engine works without it.
	var guard *redis.SentGuard
	redisClient, err := redis.New(ctx, redis.Config{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, logger)
	if err != nil {
		logger.Warn("redis unavailable, sent guard disabled",
			zap.Error(err),
			zap.String("host", cfg.RedisHost),
		)
	} else {
		guard = redis.NewSentGuard(redisClient, logger)
		defer redisClient.Close()
	}

	// Generative quote client, premium users only. Disabled without an API
	// key; every user then takes the static pool.
	var generator quote.Generator
	var breaker *circuitbreaker.CircuitBreaker
	if cfg.AIEnabled {
		client, err := quote.NewClient(quote.ClientConfig{
			APIKey: cfg.OpenAIAPIKey,
			Model:  cfg.OpenAIModel,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to create quote client: %w", err)
		}
		generator = client
		breaker = circuitbreaker.New(circuitbreaker.DefaultConfig("openai"), logger)
	} else {
		logger.Info("quote generation disabled, static pool only")
	}
	quotes := quote.NewSource(generator, breaker, logger)

	var pusher push.Pusher
	switch cfg.PushDriver {
	case config.PushDriverSNS:
		pusher, err = push.NewSNSPusher(ctx, push.SNSConfig{Region: cfg.AWSRegion}, logger)
		if err != nil {
			return fmt.Errorf("failed to create SNS pusher: %w", err)
		}
	default:
		logger.Info("using log pusher (development mode)")
		pusher = push.NewLogPusher(logger)
	}

	eng := engine.New(repo, quotes, pusher, engine.Config{
		Interval: cfg.TickInterval,
		Workers:  cfg.TickWorkers,
	}, logger)
	if guard != nil {
		eng.WithGuard(guard)
	}

	if cfg.SQSEventsURL != "" {
		publisher, err := events.NewPublisher(ctx, events.Config{
			Region:   cfg.SQSRegion,
			QueueURL: cfg.SQSEventsURL,
		}, logger)
		if err != nil {
			logger.Warn("tick event feed unavailable", zap.Error(err))
		} else {
			eng.WithEvents(publisher)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go eng.Run(runCtx)

	handler := api.NewHandler(logger, eng, database)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual tick trigger waits for the tick
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("ops server listening", zap.Int("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("ops server failed: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
