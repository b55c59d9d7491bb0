package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tbellamy/maestro/internal/adapter/agents"
	maestrohttp "github.com/tbellamy/maestro/internal/adapter/http"
	"github.com/tbellamy/maestro/internal/adapter/mcp"
	natsadapter "github.com/tbellamy/maestro/internal/adapter/nats"
	"github.com/tbellamy/maestro/internal/adapter/natskv"
	maestrotel "github.com/tbellamy/maestro/internal/adapter/otel"
	"github.com/tbellamy/maestro/internal/adapter/ristretto"
	"github.com/tbellamy/maestro/internal/adapter/tiered"
	"github.com/tbellamy/maestro/internal/adapter/ws"
	"github.com/tbellamy/maestro/internal/config"
	"github.com/tbellamy/maestro/internal/domain/intent"
	"github.com/tbellamy/maestro/internal/logger"
	"github.com/tbellamy/maestro/internal/middleware"
	"github.com/tbellamy/maestro/internal/port/a2a"
	"github.com/tbellamy/maestro/internal/port/cache"
	"github.com/tbellamy/maestro/internal/port/messagequeue"
	"github.com/tbellamy/maestro/internal/secrets"
	"github.com/tbellamy/maestro/internal/service"
)

const (
	serviceName    = "maestro"
	serviceVersion = "0.1.0"

	researchBucket    = "maestro_research"
	idempotencyBucket = "maestro_idempotency"
	idempotencyTTL    = 24 * time.Hour

	secretEnvPrefix = "MAESTRO_SECRET_"
	secretMCPAPIKey = "mcp_api_key"
)

func main() {
	bootstrap := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(bootstrap)

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	cfg, cfgPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	holder := config.NewHolder(cfg, cfgPath)

	log, logCloser := logger.New(cfg.Logging)
	slog.SetDefault(log)
	defer logCloser.Close()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"nats_enabled", cfg.NATS.Enabled,
		"mcp_enabled", cfg.MCP.Enabled,
	)

	ctx := context.Background()

	// --- Telemetry ---

	otelShutdown, err := maestrotel.Setup(ctx, cfg.Telemetry, serviceName)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	metrics, err := maestrotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	// --- NATS (optional) ---

	// queue stays a nil interface when NATS is disabled; lifecycle
	// publishes are then skipped.
	var (
		queue     messagequeue.Queue
		natsQueue *natsadapter.Queue
	)
	if cfg.NATS.Enabled {
		natsQueue, err = natsadapter.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		queue = natsQueue
		defer func() {
			if err := natsQueue.Drain(); err != nil {
				slog.Warn("nats drain failed", "error", err)
			}
		}()
	}

	// --- Research cache ---

	var researchCache cache.Cache
	if cfg.Cache.Enabled {
		l1, cacheErr := ristretto.New(cfg.Cache.MaxSizeMB << 20)
		if cacheErr != nil {
			return fmt.Errorf("cache: %w", cacheErr)
		}
		researchCache = l1

		// With NATS available the in-process cache becomes L1 over a
		// shared JetStream KV bucket, so replicas share research hits.
		if natsQueue != nil {
			kv, kvErr := natsQueue.KeyValue(ctx, researchBucket, cfg.Cache.ResearchTTL)
			if kvErr != nil {
				return fmt.Errorf("research cache bucket: %w", kvErr)
			}
			researchCache = tiered.New(l1, natskv.New(kv), cfg.Cache.ResearchTTL)
		}
	}

	// --- Services ---

	hub := ws.NewHub()

	registry := service.NewCapabilityRegistry()
	registry.Register(agents.NewFileHandler())
	registry.Register(agents.NewResearchHandler(cfg.Research, cfg.Cache.ResearchTTL, researchCache))
	registry.Register(agents.NewAnalysisHandler())
	registry.Register(agents.NewMailHandler())
	registry.Register(agents.NewCalendarHandler())

	policy, err := intent.LoadFromFile(cfg.Routing.PolicyFile)
	if err != nil {
		return fmt.Errorf("intent policy: %w", err)
	}

	planner := service.NewIntentPlanner(policy)
	engine := service.NewExecutionEngine(registry, planner, hub, queue, metrics)
	orch := service.NewOrchestratorService(engine, registry, service.NewResponseNormalizer(), hub, queue, metrics)

	// --- HTTP ---

	handlers := &maestrohttp.Handlers{
		Orchestrator: orch,
		Uploads:      cfg.Uploads,
	}
	if cfg.RateLimit.Enabled {
		rl := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		stopCleanup := rl.StartCleanup(time.Minute, 10*time.Minute)
		defer stopCleanup()
		handlers.RateLimiter = rl
	}
	if natsQueue != nil {
		kv, kvErr := natsQueue.KeyValue(ctx, idempotencyBucket, idempotencyTTL)
		if kvErr != nil {
			return fmt.Errorf("idempotency bucket: %w", kvErr)
		}
		handlers.IdempotencyKV = kv
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(maestrohttp.CORS(cfg.Server.CORSOrigin))
	r.Use(maestrohttp.SecurityHeaders)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(maestrohttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(maestrotel.HTTPMiddleware(serviceName))

	// WebSocket endpoint
	r.Get("/ws", hub.HandleWS)

	// A2A discovery card
	a2a.NewHandler(cfg.Server.BaseURL, orch.GetCapabilities).MountRoutes(r)

	// API routes
	maestrohttp.MountRoutes(r, handlers)

	// --- MCP (optional) ---

	var (
		mcpSrv   *mcp.Server
		keyVault *secrets.Vault
	)
	if cfg.MCP.Enabled {
		// Secrets come from MAESTRO_SECRET_* variables, with the config
		// value on top. The loader re-reads the holder, so a SIGHUP reload
		// rotates MCP credentials without a restart.
		keyVault, err = secrets.NewVault(func() (map[string]string, error) {
			vals, err := secrets.EnvLoader(secretEnvPrefix)()
			if err != nil {
				return nil, err
			}
			if k := holder.Get().MCP.APIKey; k != "" {
				vals[secretMCPAPIKey] = k
			}
			return vals, nil
		})
		if err != nil {
			return fmt.Errorf("mcp key vault: %w", err)
		}

		mcpSrv = mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    serviceName,
			Version: serviceVersion,
			APIKey:  func() string { return keyVault.Get(secretMCPAPIKey) },
		}, mcp.ServerDeps{
			Runner:       orch,
			Capabilities: orch,
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
	}

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// SIGHUP revalidates and swaps the config; listener-bound settings
	// still need a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			if keyVault != nil {
				if err := keyVault.Reload(); err != nil {
					slog.Error("mcp key reload failed", "error", err)
				}
			}
			slog.Info("config reloaded", "path", cfgPath, "log_level", holder.Get().Logging.Level)
		}
	}()

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("http shutdown failed", "error", err)
	}
	if mcpSrv != nil {
		if err := mcpSrv.Stop(shutdownCtx); err != nil {
			slog.Warn("mcp shutdown failed", "error", err)
		}
	}
	hub.CloseAll()

	if err := otelShutdown(shutdownCtx); err != nil {
		slog.Warn("telemetry shutdown failed", "error", err)
	}

	return nil
}
