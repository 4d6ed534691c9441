package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkauth "github.com/modelcontextprotocol/go-sdk/auth"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/modelcontextprotocol/go-sdk/oauthex"
	"github.com/valkey-io/valkey-go"

	"github.com/maraichr/tablescan/internal/auth"
	"github.com/maraichr/tablescan/internal/config"
	"github.com/maraichr/tablescan/internal/graph"
	"github.com/maraichr/tablescan/internal/mcp"
	"github.com/maraichr/tablescan/internal/mcp/tools"
	"github.com/maraichr/tablescan/internal/remediation"
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
	}

	// Valkey (optional for sessions and the match cache)
	var vkClient valkey.Client
	var cache remediation.MatchCache
	if cfg.Valkey.Enabled {
		vkClient, err = vk.NewClient(ctx, cfg.Valkey)
		if err != nil {
			logger.Warn("valkey unavailable, sessions disabled", slog.String("error", err.Error()))
			vkClient = nil
		} else {
			defer vkClient.Close()
			cache = vk.NewMatchCache(vkClient, cfg.Valkey.CacheTTL)
			logger.Info("connected to valkey")
		}
	}

	// Neo4j (optional for program usage)
	var programs tools.ProgramFinder
	if cfg.Neo4j.Enabled {
		graphClient, err := graph.NewClient(cfg.Neo4j)
		if err != nil {
			logger.Warn("neo4j unavailable, program usage disabled", slog.String("error", err.Error()))
		} else {
			defer graphClient.Close(context.Background())
			programs = graphClient
		}
	}

	mcpServer := mcp.NewServer(mcp.ServerDeps{
		Scans:        remediation.NewService(holder, cache, cfg.Scan.Workers, logger),
		Scanners:     holder,
		ValkeyClient: vkClient,
		Logger:       logger,
	})

	var sessions tools.SessionStore
	if mcpServer.Session != nil {
		sessions = mcpServer.Session
	}

	// Wire tool handlers (in cmd to avoid import cycle mcp <-> mcp/tools)
	scanCode := tools.NewScanCodeHandler(mcpServer.Scans, sessions, logger)
	lookupTable := tools.NewLookupTableHandler(mcpServer.Scanners, programs, sessions, logger)

	sdkServer := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "tablescan", Version: "1.0.0"}, nil)

	tools.Register(sdkServer, scanCode, lookupTable)

	// Stateless mode: app-level sessions live in Valkey via the session_id tool param.
	sdkHandler := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return sdkServer },
		&sdkmcp.StreamableHTTPOptions{Stateless: true},
	)

	mux := http.NewServeMux()

	var mcpHandler http.Handler = sdkHandler
	if cfg.Auth.Enabled {
		verifier, err := auth.NewVerifier(ctx, cfg.Auth.IssuerURL, cfg.Auth.PublicIssuer, cfg.Auth.Audience)
		if err != nil {
			logger.Error("failed to init OIDC verifier for MCP", slog.String("error", err.Error()))
			os.Exit(1)
		}

		// SDK auth middleware with RFC 9728 support
		resourceMetadataURL := ""
		if cfg.MCP.BaseURL != "" {
			resourceMetadataURL = cfg.MCP.BaseURL + "/.well-known/oauth-protected-resource"

			authServerURL := cfg.Auth.PublicIssuer
			if authServerURL == "" {
				authServerURL = cfg.Auth.IssuerURL
			}

			prm := &oauthex.ProtectedResourceMetadata{
				Resource:               cfg.MCP.BaseURL,
				AuthorizationServers:   []string{authServerURL},
				ScopesSupported:        []string{"openid", auth.ScopeRead, auth.ScopeWrite},
				BearerMethodsSupported: []string{"header"},
				ResourceName:           "Tablescan MCP Server",
			}
			mux.Handle("/.well-known/oauth-protected-resource", sdkauth.ProtectedResourceMetadataHandler(prm))
			logger.Info("RFC 9728 metadata endpoint enabled", slog.String("url", resourceMetadataURL))
		}

		mcpHandler = sdkauth.RequireBearerToken(auth.NewMCPTokenVerifier(verifier), &sdkauth.RequireBearerTokenOptions{
			ResourceMetadataURL: resourceMetadataURL,
		})(sdkHandler)
		logger.Info("MCP OIDC auth enabled", slog.String("issuer", cfg.Auth.IssuerURL))
	} else {
		mcpHandler = auth.DevModeMiddleware(logger)(sdkHandler)
	}

	mux.Handle("/mcp", mcpHandler)
	mux.Handle("/", mcpHandler)

	httpServer := &http.Server{Addr: cfg.MCP.Addr, Handler: mux}

	go func() {
		logger.Info("MCP server listening", slog.String("addr", cfg.MCP.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("MCP HTTP server error", slog.String("error", err.Error()))
		}
	}()

	<-ctx.Done()
	logger.Info("MCP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("MCP HTTP shutdown", slog.String("error", err.Error()))
	}
	logger.Info("MCP server stopped")
}
