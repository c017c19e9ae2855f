package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/pulseai/backend/internal/cache"
	"github.com/pulseai/backend/internal/config"
	"github.com/pulseai/backend/internal/db"
	httpapi "github.com/pulseai/backend/internal/http"
	"github.com/pulseai/backend/internal/metrics"
	"github.com/pulseai/backend/internal/ml"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg)
	ctx := context.Background()

	var store db.Repository
	if cfg.DatabaseURL == "" {
		store = db.NewMemoryStore()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
	} else {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer pg.Close()
		if cfg.DBAutoMigrate {
			if err := pg.Migrate(ctx); err != nil {
				logger.Fatal().Err(err).Msg("failed to migrate db")
			}
		}
		store = pg
	}

	var adapter ml.Adapter
	if cfg.MLServiceURL == "" {
		adapter = ml.MockAdapter{}
		logger.Info().Msg("using mock ML adapter")
	} else {
		adapter = ml.NewHTTPAdapter(cfg.MLServiceURL, cfg.MLTimeout)
	}

	predictionCache, err := cache.Connect(ctx, cfg.RedisURL, cfg.PredictionTTL())
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, prediction cache disabled")
	}
	defer func() { _ = predictionCache.Close() }()

	metrics.MustRegister()

	router := httpapi.Router(cfg, httpapi.Deps{Store: store, ML: adapter, Cache: predictionCache}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctxShutdown)
	logger.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		})
	}
	return log.Output(out).Level(level).With().Str("service", "pulse-backend").Logger()
}
