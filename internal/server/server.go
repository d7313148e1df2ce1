// Package server sets up the HTTP server, router, and all route
// definitions.
//
// This is the composition root: main.go creates the leaf dependencies
// (logger, sandbox executor, LLM client), and New wires the whole chain —
// database → services → handlers → routes — in one place. Handlers never
// touch the database, services never touch HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashan/pytutor/internal/auth"
	"github.com/ashan/pytutor/internal/chat"
	"github.com/ashan/pytutor/internal/handler"
	"github.com/ashan/pytutor/internal/middleware"
	sqliteRepo "github.com/ashan/pytutor/internal/repository/sqlite"
	"github.com/ashan/pytutor/internal/sandbox"
	"github.com/ashan/pytutor/internal/service"
	"github.com/ashan/pytutor/internal/stream"
)

// Config holds server configuration.
type Config struct {
	Port   int
	DBPath string
	// AuthSecret enables session-token auth on the API when non-empty.
	AuthSecret string
}

// Server owns the router and the resources that must be released on
// shutdown (the database connection).
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New creates a Server and wires the full dependency chain.
//
// exec may be nil (sandbox runtime unavailable — /api/execute reports 503)
// and llm may be nil (no LLM configured — chat endpoints report 503). The
// server starts either way; degraded beats down.
func New(cfg Config, logger *slog.Logger, exec sandbox.Executor, llm chat.Client) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(exec, llm); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware, builds the service layer, and mounts
// all route handlers.
func (s *Server) setupRoutes(exec sandbox.Executor, llm chat.Client) error {
	// Global middleware, in order: request IDs for tracing, real client
	// IPs behind proxies, panic recovery, then our slog request logging.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// Service layer. The cancellation registry is shared between the chat
	// service (which polls it between deltas) and the cancel endpoint.
	execService := service.NewExecutionService(exec, s.db, s.logger)

	var chatService *chat.Service
	if llm != nil {
		registry := stream.NewRegistry()
		chatService = chat.NewService(llm, registry, s.logger)
	}

	executeHandler := handler.NewExecuteHandler(execService, s.logger)
	historyHandler := handler.NewHistoryHandler(execService, s.logger)
	chatHandler := handler.NewChatHandler(chatService, s.logger)

	s.router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"healthy","sandbox":%t,"chat":%t}`, exec != nil, llm != nil)
	})

	// Session-token auth is optional: with no secret configured the API is
	// open, which is the right default for local use.
	var requireSession func(http.Handler) http.Handler
	if s.config.AuthSecret != "" {
		tokens, err := auth.NewTokenService(s.config.AuthSecret)
		if err != nil {
			return fmt.Errorf("creating token service: %w", err)
		}
		sessionHandler := handler.NewSessionHandler(tokens, s.logger)
		s.router.Post("/api/session", sessionHandler.HandleCreate)
		requireSession = auth.RequireSession(tokens)
	}

	s.router.Route("/api", func(r chi.Router) {
		if requireSession != nil {
			r.Use(requireSession)
		}

		r.Post("/execute", executeHandler.HandleExecute)
		r.Get("/executions", historyHandler.HandleList)
		r.Get("/executions/{id}", historyHandler.HandleGetByID)

		r.Post("/chat", chatHandler.HandleStream)
		r.Post("/chat/{requestID}/cancel", chatHandler.HandleCancel)
		r.Post("/explain", chatHandler.HandleExplain)
		r.Post("/quiz", chatHandler.HandleQuiz)
		r.Post("/check-answer", chatHandler.HandleCheckAnswer)
	})

	return nil
}

// Start starts the HTTP server and blocks until shutdown.
//
// Graceful shutdown order: stop accepting connections, give in-flight
// requests 30 seconds, then close the database so the WAL is flushed and
// the file lock released.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:        fmt.Sprintf(":%d", s.config.Port),
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: /api/chat holds its response open for the whole
		// stream, and a write deadline would sever it mid-answer.
		IdleTimeout: 60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
