package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/maraichr/tablescan/internal/api"
	apihandler "github.com/maraichr/tablescan/internal/api/handler"
	"github.com/maraichr/tablescan/internal/auth"
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

	// Mapping (required)
	holder, err := remediation.LoadScanner(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to load table mapping", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Mapping.Watch {
		go func() {
			if err := remediation.WatchMapping(ctx, cfg, holder, logger); err != nil && ctx.Err() == nil {
				logger.Error("mapping watcher stopped", slog.String("error", err.Error()))
			}
		}()
		logger.Info("mapping hot reload enabled", slog.String("path", cfg.Mapping.Source))
	}

	deps := api.RouterDeps{
		Scanners: holder,
		Limits: apihandler.Limits{
			MaxUnits:     cfg.Scan.MaxUnits,
			MaxUnitBytes: cfg.Scan.MaxUnitBytes,
			MaxBodyBytes: cfg.Server.MaxBodyBytes,
		},
		CORS: cfg.Server.CORSOrigins,
	}

	// Postgres (optional, enables reports and scan jobs)
	if cfg.Database.Enabled {
		pool, err := postgres.NewPool(ctx, cfg.Database.DSN(), cfg.Database.MaxConns, cfg.Database.MinConns)
		if err != nil {
			logger.Warn("database connection failed, reports disabled", slog.String("error", err.Error()))
		} else {
			defer pool.Close()
			s := store.New(pool)
			if err := s.EnsureSchema(ctx); err != nil {
				logger.Error("failed to ensure schema", slog.String("error", err.Error()))
				os.Exit(1)
			}
			deps.DB = s
			deps.Reports = s
			logger.Info("connected to database")
		}
	}

	// Valkey (optional, enables the match cache and job queue)
	var cache remediation.MatchCache
	if cfg.Valkey.Enabled {
		vkClient, err := vk.NewClient(ctx, cfg.Valkey)
		if err != nil {
			logger.Warn("valkey connection failed, cache and job queue disabled", slog.String("error", err.Error()))
		} else {
			defer vkClient.Close()
			cache = vk.NewMatchCache(vkClient, cfg.Valkey.CacheTTL)
			deps.Producer = jobs.NewProducer(vkClient)
			logger.Info("connected to valkey")
		}
	}
	deps.Scans = remediation.NewService(holder, cache, cfg.Scan.Workers, logger)

	// MinIO (optional, serves archived reports)
	if cfg.MinIO.Enabled {
		mc, err := minioclient.NewClient(cfg.MinIO)
		if err != nil {
			logger.Warn("minio connection failed, report archive disabled", slog.String("error", err.Error()))
		} else {
			deps.Archive = mc
			logger.Info("connected to minio")
		}
	}

	// Neo4j (optional, enables table usage queries)
	if cfg.Neo4j.Enabled {
		graphClient, err := graph.NewClient(cfg.Neo4j)
		if err != nil {
			logger.Warn("neo4j connection failed, usage queries disabled", slog.String("error", err.Error()))
		} else {
			defer graphClient.Close(context.Background())
			deps.Graph = graphClient
			logger.Info("connected to neo4j")
		}
	}

	// Auth (optional, requires AUTH_ENABLED=true + valid issuer URL)
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.PublicIssuer, cfg.Auth.Audience)
		if err != nil {
			logger.Error("failed to init OIDC verifier", slog.String("error", err.Error()))
			os.Exit(1)
		}
		deps.Verifier = verifier
		logger.Info("OIDC auth enabled", slog.String("issuer", cfg.Auth.IssuerURL))
	}

	router := api.NewRouter(logger, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("starting API server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}

	logger.Info("server stopped")
}
