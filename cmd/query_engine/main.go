package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gcbaptista/forum-query-engine/api"
	"github.com/gcbaptista/forum-query-engine/config"
	"github.com/gcbaptista/forum-query-engine/internal/cache"
	"github.com/gcbaptista/forum-query-engine/internal/engine"
	"github.com/gcbaptista/forum-query-engine/internal/logging"
	"github.com/gcbaptista/forum-query-engine/internal/refresh"
	"github.com/gcbaptista/forum-query-engine/internal/source"
)

const version = "v1.0.0"

func main() {
	// Define command-line flags
	var (
		help       = flag.Bool("help", false, "Show help message")
		showVer    = flag.Bool("version", false, "Show version information")
		configPath = flag.String("config", "", "Path to a YAML config file (default: ./config.yaml if present)")
		port       = flag.Int("port", 0, "Port to run the server on (overrides config)")
		dataDir    = flag.String("data-dir", "", "Directory to persist snapshots in (overrides config)")
	)

	flag.Parse()

	if *help {
		fmt.Printf("Forum Query Engine - list and search over forum content\n\n")
		fmt.Printf("Usage: %s [options]\n\n", os.Args[0])
		fmt.Printf("Options:\n")
		flag.PrintDefaults()
		fmt.Printf("\nEnvironment variables with the %s_ prefix override the config file,\n", config.EnvPrefix)
		fmt.Printf("e.g. %s_SOURCE_KIND=postgres %s_SOURCE_DATABASE_URL=postgres://...\n", config.EnvPrefix, config.EnvPrefix)
		fmt.Printf("\nExamples:\n")
		fmt.Printf("  %s                          # Start server with ./config.yaml or defaults\n", os.Args[0])
		fmt.Printf("  %s --port 9000              # Start server on port 9000\n", os.Args[0])
		fmt.Printf("  %s --data-dir /tmp/qe       # Persist snapshots in /tmp/qe\n", os.Args[0])
		return
	}

	if *showVer {
		fmt.Printf("Forum Query Engine %s\n", version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	logging.Init(cfg.Log)
	logger := logging.L()

	ctx, cancel := context.WithCancel(logging.WithLogger(context.Background(), *logger))
	defer cancel()

	src, err := source.New(ctx, cfg.Source)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open content source")
	}
	logger.Info().Str(logging.FieldSource, src.Name()).Msg("content source ready")

	var responseCache cache.ResponseCache = cache.NoopCache{}
	cachePrefix := ""
	if cfg.Redis.Enabled {
		redisCache, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("response cache disabled")
		} else {
			responseCache = redisCache
			cachePrefix = redisCache.Prefix()
			logger.Info().Str("address", cfg.Redis.Address).Msg("connected to redis response cache")
		}
	}

	queryEngine, err := engine.New(engine.Options{
		Settings:    &cfg.Engine,
		Source:      src,
		Cache:       responseCache,
		CachePrefix: cachePrefix,
		DataDir:     cfg.DataDir,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create query engine")
	}

	if !queryEngine.Status().Ready {
		jobID, err := queryEngine.Reindex(ctx, "startup")
		if err != nil {
			logger.Error().Err(err).Msg("initial reindex not started")
		} else {
			logger.Info().Str(logging.FieldJobID, jobID).Msg("initial reindex started")
		}
	}

	var refresher *refresh.Refresher
	if cfg.Refresh.Enabled {
		refresher, err = refresh.New(queryEngine, cfg.Refresh.Schedule)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to create refresh scheduler")
		}
		if err := refresher.Start(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to start refresh scheduler")
		}
	}

	if logging.ParseLevel(cfg.Log.Level) > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		logging.GinMiddleware(*logger),
		api.CORSMiddleware(),
		api.RequestSizeLimitMiddleware(cfg.Server.MaxBodyBytes),
	)
	api.SetupRoutes(router, queryEngine, cfg.Auth.JWTSecret)
	if cfg.Auth.JWTSecret == "" {
		logger.Warn().Msg("auth.jwt_secret is empty, only anonymous queries are accepted")
	}

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("query engine listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down query engine")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if refresher != nil {
		refresher.Stop()
	}
	cancel()
	if err := queryEngine.Close(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("query engine did not close cleanly")
	}

	logger.Info().Msg("query engine stopped")
}
