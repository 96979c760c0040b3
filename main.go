package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"credit-risk/config"
	httpLayer "credit-risk/http"
	"credit-risk/logging"
	"credit-risk/metrics"
	"credit-risk/ml"
	"credit-risk/repository"
	"credit-risk/service"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		File:   cfg.Log.File,
	})
	defer logger.Sync()

	m := metrics.New()

	holder, err := ml.NewHolder(cfg.Model.Path, logger)
	if err != nil {
		logger.Fatal("load model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}
	holder.OnReload(m.ObserveReload)
	m.ObserveReload(nil)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	if cfg.Model.Watch {
		go func() {
			if err := holder.Watch(ctx); err != nil {
				logger.Warn("model watcher stopped", zap.Error(err))
			}
		}()
	}

	assessmentRepo, closeRepo := newAssessmentRepository(cfg, logger)
	defer closeRepo()
	cache, closeCache := newCache(cfg, logger)
	defer closeCache()

	narrator := service.NewNarrativeService(service.NarrativeConfig{
		Enabled: cfg.Narrative.Enabled,
		APIURL:  cfg.Narrative.APIURL,
		APIKey:  cfg.Narrative.APIKey,
		Model:   cfg.Narrative.Model,
		Timeout: cfg.Narrative.Timeout,
	}, logger)

	assessmentService := service.NewAssessmentService(holder, assessmentRepo, cache, narrator, m, logger)

	rateLimiter := httpLayer.NewRateLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Refill)
	defer rateLimiter.Stop()

	router := httpLayer.NewRouter(httpLayer.RouterDeps{
		Assessments: assessmentService,
		Export:      service.NewExportService(),
		Models:      holder,
		Metrics:     m,
		Limiter:     rateLimiter,
		Logger:      logger,
		Timeout:     cfg.Http.WriteTimeout,
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Http.ReadTimeout,
		WriteTimeout: cfg.Http.WriteTimeout,
		IdleTimeout:  cfg.Http.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("cache", cfg.Cache.Driver),
			zap.Bool("narrative", narrator.Enabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		logger.Error("server failed", zap.Error(err))
		return
	case <-quit:
		logger.Info("shutting down server")
	}

	stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}

func newAssessmentRepository(cfg *config.Config, logger *zap.Logger) (repository.AssessmentRepository, func()) {
	if cfg.Storage.Driver != "sqlite" {
		return repository.NewAssessmentRepositoryMemory(), func() {}
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0o755); err != nil {
		logger.Fatal("create storage directory", zap.Error(err))
	}
	repo, err := repository.NewAssessmentRepositorySQLite(cfg.Storage.Path)
	if err != nil {
		logger.Fatal("open sqlite", zap.String("path", cfg.Storage.Path), zap.Error(err))
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			logger.Warn("close sqlite", zap.Error(err))
		}
	}
}

// newCache falls back to the in-process cache when Redis is unreachable.
func newCache(cfg *config.Config, logger *zap.Logger) (repository.CacheRepository, func()) {
	switch cfg.Cache.Driver {
	case "redis":
		cache, err := repository.NewRedisCache(repository.RedisOptions{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
			TTL:      cfg.Cache.TTL,
		})
		if err == nil {
			return cache, func() { _ = cache.Close() }
		}
		logger.Warn("redis unavailable, using in-process cache", zap.String("addr", cfg.Cache.Redis.Addr), zap.Error(err))
		return repository.NewLRUCache(cfg.Cache.Size, cfg.Cache.TTL), func() {}
	case "lru":
		return repository.NewLRUCache(cfg.Cache.Size, cfg.Cache.TTL), func() {}
	default:
		return repository.NewNoopCache(), func() {}
	}
}
