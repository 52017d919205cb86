// Package main is the entry point for the API server.
package main

import (
	"context"
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

	"github.com/branchline-ai/conversation-tree/internal/config"
	"github.com/branchline-ai/conversation-tree/internal/handler"
	"github.com/branchline-ai/conversation-tree/internal/middleware"
	natsclient "github.com/branchline-ai/conversation-tree/internal/nats"
	"github.com/branchline-ai/conversation-tree/internal/service"
	"github.com/branchline-ai/conversation-tree/internal/store"
	"github.com/branchline-ai/conversation-tree/internal/ws"
	"github.com/branchline-ai/conversation-tree/pkg/logger"
	"github.com/branchline-ai/conversation-tree/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "conversation-tree", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS when mirroring is configured
	var natsClient *natsclient.Client
	var mirror *natsclient.Mirror
	if cfg.NATSURL != "" {
		natsClient, err = natsclient.Connect(ctx, natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()

		mirror = natsclient.NewMirror(natsClient)
		if err := mirror.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure stream", zap.Error(err))
			os.Exit(1)
		}
	} else {
		log.Info("NATS_URL not set, event mirroring disabled")
	}

	// Initialize store and services
	entityStore := store.NewMemoryStore()
	resolver := service.NewResolver(entityStore)
	conversationSvc := service.NewConversationService(entityStore, log)
	branchSvc := service.NewBranchService(entityStore, resolver, log)

	// Live session layer
	hub := ws.NewHub(log)
	wsHandler := ws.NewHandler(hub, conversationSvc, branchSvc, log, cfg.WSSendBuffer)
	notifier := handler.NewNotifier(hub, mirror)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient)
	conversationHandler := handler.NewConversationHandler(conversationSvc, log)
	messageHandler := handler.NewMessageHandler(branchSvc, resolver, hub, notifier, log)
	leafHandler := handler.NewLeafHandler(branchSvc, log)
	wikiHandler := handler.NewWikiHandler(conversationSvc, log)
	completionHandler := handler.NewCompletionHandler(log)

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
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Link", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health endpoints
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes
	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Post("/chat/completions", completionHandler.Create)
		r.Get("/wiki/{concept}", wikiHandler.GetOrCreate)

		r.Route("/conversations", func(r chi.Router) {
			r.Post("/", conversationHandler.Create)
			r.Get("/", conversationHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", conversationHandler.Get)
				r.Put("/", conversationHandler.Update)
				r.Delete("/", conversationHandler.Delete)

				// Live sessions
				r.Get("/ws", wsHandler.Conversation)

				// Messages
				r.Get("/messages", messageHandler.List)
				r.Post("/messages", messageHandler.Append)
				r.Post("/messages/prune", messageHandler.Prune)
				r.Route("/messages/{messageID}", func(r chi.Router) {
					r.Put("/", messageHandler.Update)
					r.Delete("/", messageHandler.Delete)
					r.Get("/versions", messageHandler.Versions)
					r.Put("/version", messageHandler.Navigate)
					r.Get("/editors", messageHandler.Editors)
				})

				// Leaves
				r.Get("/leaves", leafHandler.List)
				r.Post("/leaves", leafHandler.Create)
				r.Get("/leaves/active", leafHandler.Active)
				r.Put("/leaves/active", leafHandler.Switch)
				r.Delete("/leaves/{leafID}", leafHandler.Delete)
				r.Get("/leaves/{leafID}/ws", wsHandler.LeafDocument)
			})
		})
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
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
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
