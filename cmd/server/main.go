// Package main is the entry point for the tutoring backend.
//
// main stays minimal: read configuration from the environment, create the
// leaf dependencies (logger, sandbox executor, LLM client), hand them to
// the server package, and block. All actual logic lives in internal/.
package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/ashan/pytutor/internal/chat"
	"github.com/ashan/pytutor/internal/sandbox"
	"github.com/ashan/pytutor/internal/sandbox/docker"
	"github.com/ashan/pytutor/internal/server"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	// Configuration comes from env vars. Simple and standard for a
	// single-binary deployment; a config file would be overkill here.
	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		var err error
		port, err = strconv.Atoi(portStr)
		if err != nil {
			logger.Error("invalid PORT value", slog.String("value", portStr))
			os.Exit(1)
		}
	}

	// DB_PATH overrides the default history database location.
	// Example: DB_PATH=/var/lib/pytutor/prod.db
	dbPath := "data/pytutor.db"
	if envDB := os.Getenv("DB_PATH"); envDB != "" {
		dbPath = envDB
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		logger.Error("failed to create database directory",
			slog.String("dir", filepath.Dir(dbPath)),
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	// The sandbox executor is optional — without a Docker daemon the
	// server still starts, and /api/execute reports 503.
	sandboxCfg := docker.DefaultConfig()
	if image := os.Getenv("SANDBOX_IMAGE"); image != "" {
		sandboxCfg.Image = image
	}

	var exec sandbox.Executor
	dockerExec, err := docker.New(sandboxCfg, logger)
	if err != nil {
		logger.Warn("sandbox executor unavailable — /api/execute will return 503",
			slog.String("error", err.Error()),
		)
	} else {
		exec = dockerExec
		defer dockerExec.Close()
	}

	// The LLM client is optional too: without LLM_API_KEY the chat
	// endpoints report 503 but execution still works.
	var llm chat.Client
	if apiKey := os.Getenv("LLM_API_KEY"); apiKey != "" {
		baseURL := os.Getenv("LLM_BASE_URL")
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		model := os.Getenv("LLM_MODEL")
		if model == "" {
			model = "gpt-4o-mini"
		}
		llm = chat.NewClient(baseURL, apiKey, model)
		logger.Info("chat client configured",
			slog.String("baseURL", baseURL),
			slog.String("model", model),
		)
	} else {
		logger.Warn("LLM_API_KEY not set — chat endpoints will return 503")
	}

	// AUTH_SECRET enables session-token auth on /api. Use:
	//   AUTH_SECRET=$(openssl rand -hex 32)
	// If unset, the API is open (fine for local use).
	authSecret := os.Getenv("AUTH_SECRET")
	if authSecret == "" {
		logger.Warn("AUTH_SECRET not set — API authentication is disabled")
	}

	cfg := server.Config{
		Port:       port,
		DBPath:     dbPath,
		AuthSecret: authSecret,
	}

	srv, err := server.New(cfg, logger, exec, llm)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until the server is shut down (Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
