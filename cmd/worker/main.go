package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/maraichr/tablescan/internal/config"
	"github.com/maraichr/tablescan/internal/graph"
	"github.com/maraichr/tablescan/internal/jobs"
	"github.com/maraichr/tablescan/internal/remediation"
	"github.com/maraichr/tablescan/internal/store"
	minioclient "github.com/maraichr/tablescan/internal/store/minio"
	"github.com/maraichr/tablescan/internal/store/postgres"
	vk "github.com/maraichr/tablescan/internal/store/valkey"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Mapping
	holder, err := remediation.LoadScanner(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load table mapping", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Database
	pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()
	s := store.New(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		logger.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Valkey
	vkClient, err := vk.NewClient(ctx, cfg.Valkey)
	if err != nil {
		logger.Error("failed to connect to valkey", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer vkClient.Close()
	logger.Info("connected to valkey")

	scans := remediation.NewService(holder, vk.NewMatchCache(vkClient, cfg.Valkey.CacheTTL), cfg.Scan.Workers, logger)

	// MinIO (optional)
	var archive jobs.Archiver
	if cfg.MinIO.Enabled {
		minioClient, err := minioclient.NewClient(cfg.MinIO)
		if err != nil {
			logger.Warn("minio connection failed, report archive disabled", slog.String("error", err.Error()))
		} else if err := minioClient.EnsureBucket(ctx); err != nil {
			logger.Warn("minio ensure bucket failed, report archive disabled", slog.String("error", err.Error()))
		} else {
			archive = minioClient
			logger.Info("connected to minio", slog.String("bucket", minioClient.Bucket()))
		}
	}

	// Neo4j (optional)
	var usages jobs.UsageSyncer
	if cfg.Neo4j.Enabled {
		graphClient, err := graph.NewClient(cfg.Neo4j)
		if err != nil {
			logger.Warn("neo4j connection failed, usage sync disabled", slog.String("error", err.Error()))
		} else {
			defer graphClient.Close(context.Background())
			if err := graphClient.EnsureIndexes(ctx); err != nil {
				logger.Warn("neo4j ensure indexes failed, sync may be slow", slog.String("error", err.Error()))
			}
			usages = graphClient
			logger.Info("connected to neo4j")
		}
	}

	processor := jobs.NewProcessor(scans, s, archive, usages, logger)

	consumer := jobs.NewConsumer(vkClient, cfg.Worker.ID, cfg.Worker.ClaimIdle, logger)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Error("failed to ensure consumer group", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var wg sync.WaitGroup

	if cfg.Mapping.Watch {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := remediation.WatchMapping(ctx, cfg, holder, logger); err != nil && ctx.Err() == nil {
				logger.Error("mapping watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("starting scan worker, consuming from stream",
			slog.String("stream", jobs.StreamName),
			slog.String("consumer", cfg.Worker.ID))
		if err := consumer.Consume(ctx, processor.Handle); err != nil {
			if ctx.Err() == nil {
				logger.Error("consumer error", slog.String("error", err.Error()))
			}
		}
	}()

	wg.Wait()
	logger.Info("worker stopped")
}
