// Package main is the entry point for the agent console server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/message-whisperer/agent-console/internal/apiclient"
	"github.com/message-whisperer/agent-console/internal/config"
	"github.com/message-whisperer/agent-console/internal/handler"
	"github.com/message-whisperer/agent-console/internal/llm"
	"github.com/message-whisperer/agent-console/internal/mediacache"
	"github.com/message-whisperer/agent-console/internal/middleware"
	"github.com/message-whisperer/agent-console/internal/model"
	natsclient "github.com/message-whisperer/agent-console/internal/nats"
	"github.com/message-whisperer/agent-console/internal/notify"
	"github.com/message-whisperer/agent-console/internal/service"
	"github.com/message-whisperer/agent-console/pkg/logger"
	"github.com/message-whisperer/agent-console/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var log *logger.Logger
	var err error
	if cfg.Environment == "development" {
		log, err = logger.NewDevelopment()
	} else {
		log, err = logger.New(cfg.LogLevel)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting agent console")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "agent-console", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Backend client. An expired session cannot be renewed from here, so the
	// server shuts down and the agent logs in again.
	backend, err := apiclient.New(apiclient.Config{
		BaseURL:    cfg.APIBaseURL,
		Token:      cfg.APIToken,
		BusinessID: cfg.BusinessID,
		Timeout:    cfg.HTTPTimeout,
	},
		apiclient.WithLogger(log),
		apiclient.WithSessionExpired(func() {
			log.Warn("backend session expired, log in again")
			select {
			case quit <- syscall.SIGTERM:
			default:
			}
		}),
	)
	if err != nil {
		log.Fatal("failed to create backend client", zap.Error(err))
	}

	agentID, agentName := cfg.AgentID, cfg.AgentName
	if claims, err := backend.Claims(); err == nil {
		agentID = claims.AgentID()
		if claims.Name != "" {
			agentName = claims.Name
		}
		if backend.BusinessID() == "" && claims.BusinessID != "" {
			backend.SetBusinessID(claims.BusinessID)
		}
	} else if cfg.APIToken != "" {
		log.Warn("could not read session token claims", zap.Error(err))
	}

	var opts []service.Option
	opts = append(opts, service.WithNotifier(notify.NewLogNotifier(log)))

	// NATS is optional; without it notifications stay local.
	var natsClient *natsclient.Client
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
			Name:     "agent-console-" + agentID,
		}, log)
		if err != nil {
			log.Fatal("failed to connect to NATS", zap.Error(err))
		}
		defer natsClient.Close()

		streamManager := natsclient.NewStreamManager(natsClient)
		if err := streamManager.EnsureStream(ctx); err != nil {
			log.Fatal("failed to ensure stream", zap.Error(err))
		}
		opts = append(opts, service.WithNotifier(notify.NewPublisher(streamManager, log)))
	}

	// Media cache: in-process LRU in front of an optional shared Redis tier
	tiers := []mediacache.Cache{mediacache.NewLRU(cfg.MediaCacheSize, cfg.MediaCacheTTL)}
	var redisCache *mediacache.Redis
	if cfg.RedisURL != "" {
		redisCache, err = mediacache.NewRedis(ctx, cfg.RedisURL, cfg.MediaCacheTTL)
		if err != nil {
			log.Warn("failed to connect to Redis, media cache is local only", zap.Error(err))
		} else {
			defer redisCache.Close()
			tiers = append(tiers, redisCache)
		}
	}
	opts = append(opts, service.WithMediaLoader(mediacache.NewLoader(backend, log, tiers...)))

	// Reply drafting
	if llmClient := newLLMClient(cfg, log); llmClient != nil {
		var draftOpts []llm.DrafterOption
		if cfg.DraftModel != "" {
			draftOpts = append(draftOpts, llm.WithModel(cfg.DraftModel))
		}
		opts = append(opts, service.WithDrafter(llm.NewDrafter(llmClient, log, draftOpts...)))
	}

	filter, ok := model.ParseFilter(cfg.DefaultFilter)
	if !ok {
		log.Warn("unknown default filter, showing all", zap.String("filter", cfg.DefaultFilter))
		filter = model.FilterAll
	}

	console, err := service.New(backend, service.Config{
		AgentID:      agentID,
		AgentName:    agentName,
		PageSize:     cfg.PageSize,
		PollInterval: cfg.PollInterval,
		Filter:       filter,
		FeedSize:     cfg.NotificationFeedSize,
	}, log, opts...)
	if err != nil {
		log.Fatal("failed to create console", zap.Error(err))
	}
	defer console.Close()

	if backend.BusinessID() != "" {
		if err := console.Refresh(ctx); err != nil {
			log.Warn("initial conversation load failed", zap.Error(err))
		}
	}

	// Initialize handlers
	checks := map[string]handler.ReadinessCheck{
		"backend": func(context.Context) error {
			if !backend.Authenticated() {
				return apiclient.ErrUnauthorized
			}
			return nil
		},
	}
	if natsClient != nil {
		checks["nats"] = natsClient.Ready
	}
	if redisCache != nil {
		checks["redis"] = redisCache.Ping
	}
	healthHandler := handler.NewHealthHandler(checks)
	conversationHandler := handler.NewConversationHandler(console, log)
	messageHandler := handler.NewMessageHandler(console, log)
	streamHandler := handler.NewStreamHandler(console, log, handler.DefaultHeartbeat)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.ConsoleJWTSecret != "" {
			r.Use(middleware.Auth(cfg.ConsoleJWTSecret, agentID))
		} else {
			log.Warn("CONSOLE_JWT_SECRET not set, console API is unauthenticated")
		}
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Put("/tenant", conversationHandler.SetTenant)
		r.Put("/filter", conversationHandler.SetFilter)
		r.Put("/selection", conversationHandler.Select)
		r.Get("/agents", conversationHandler.Agents)
		r.Get("/notifications", messageHandler.Notifications)
		r.Post("/preview", handler.Preview)
		r.Get("/media/{id}", messageHandler.Media)

		r.Route("/conversations", func(r chi.Router) {
			r.Get("/", conversationHandler.List)
			r.Post("/refresh", conversationHandler.Refresh)
			r.Post("/more", conversationHandler.LoadMore)

			r.Route("/{id}", func(r chi.Router) {
				r.Post("/assign", conversationHandler.Assign)
				r.Put("/resolve", conversationHandler.Resolve)
				r.Patch("/ai", conversationHandler.ToggleAI)
				r.Post("/messages", messageHandler.Send)
				r.Post("/draft", messageHandler.Draft)
			})
		})

		r.Get("/thread", messageHandler.Thread)
		r.Get("/thread/stream", streamHandler.Thread)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort), zap.String("agent_id", agentID))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}

// newLLMClient picks the drafting provider from DRAFT_PROVIDER and the
// configured keys. Drafting stays off when nothing is configured.
func newLLMClient(cfg *config.Config, log *logger.Logger) llm.Client {
	provider, key, err := llm.SelectProvider(cfg.DraftProvider, llm.Keys{
		Anthropic: cfg.AnthropicAPIKey,
		OpenAI:    cfg.OpenAIAPIKey,
	})
	if errors.Is(err, llm.ErrNoProvider) && cfg.DraftProvider == "" {
		log.Info("no LLM API key configured, reply drafting disabled")
		return nil
	}
	if err != nil {
		log.Warn("reply drafting disabled", zap.Error(err))
		return nil
	}

	client, err := llm.NewClient(provider, key)
	if err != nil {
		log.Warn("failed to create LLM client, reply drafting disabled", zap.String("provider", string(provider)), zap.Error(err))
		return nil
	}
	log.Info("reply drafting enabled", zap.String("provider", client.Name()))
	return client
}
