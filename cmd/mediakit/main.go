package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"

	mediakit "github.com/mediakit/mediakit-go"
	"github.com/mediakit/mediakit-go/internal/handlers"
	"github.com/mediakit/mediakit-go/internal/rqueue"
	"github.com/mediakit/mediakit-go/internal/server"
	"github.com/mediakit/mediakit-go/internal/storage"
	"github.com/mediakit/mediakit-go/internal/store"
)

func main() {
	logger := initLogger()
	engineLog := server.WrapLogger(logger)

	cfg := mediakit.ConfigFromEnv(engineLog)
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Config file ignored")
		}
	}
	if err := cfg.Validate(); err != nil {
		logger.Warn().Err(err).Msg("Config validation failed; continuing with current values")
	}
	if cfg.APIKey == "" {
		logger.Fatal().Msg("API_KEY environment variable is mandatory")
	}

	baseURL := cfg.PublicURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}
	provider, err := storage.NewLocal(cfg.StoragePath, baseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Storage provider init failed")
	}

	jobs, err := store.Open(cfg.JobStorePath, cfg.JobRetention, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Job store init failed")
	}
	defer jobs.Close()

	opts := []mediakit.EngineOption{
		mediakit.WithLogger(engineLog),
		mediakit.WithAdmissionHook(jobs.JobAdmitted),
		mediakit.WithCompletionHook(jobs.JobCompleted),
	}

	// The Redis backend rebinds work through the engine's operation
	// registry; the closure resolves against the engine built right after.
	var engine *mediakit.Engine
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		resolve := func(endpoint string) (mediakit.Operation, bool) {
			return engine.Operation(endpoint)
		}
		opts = append(opts, mediakit.WithQueue(rqueue.New(rdb, cfg.QueueName, resolve, engineLog)))
		logger.Info().Str("addr", cfg.RedisAddr).Str("queue", cfg.QueueName).Msg("Using Redis queue backend")
	}
	engine = mediakit.NewEngine(cfg, opts...)

	toolkit := handlers.NewToolkitHandler(cfg.APIKey, provider, jobs, logger)
	media := handlers.NewMediaHandler(provider, filepath.Join(os.TempDir(), "mediakit"), logger)

	engine.Start()
	defer engine.Stop()

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepLoop(sweepCtx, jobs)

	srv := server.New(cfg, logger, engine, toolkit, media, provider.Dir())
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Shutdown error")
	}
}

// sweepLoop purges expired job records once a minute.
func sweepLoop(ctx context.Context, jobs *store.Store) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			jobs.Sweep()
		}
	}
}

func initLogger() arbor.ILogger {
	logger := arbor.NewLogger().WithConsoleWriter(models.WriterConfiguration{
		Type:             models.LogWriterTypeConsole,
		TimeFormat:       "15:04:05",
		TextOutput:       true,
		DisableTimestamp: false,
	})
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		logger = logger.WithLevelFromString(level)
	}
	return logger
}
