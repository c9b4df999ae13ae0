package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"siachat-backend/internal/api"
	"siachat-backend/internal/config"
	"siachat-backend/internal/handlers"
	"siachat-backend/internal/llm"
	"siachat-backend/internal/services"
	"siachat-backend/internal/store/postgres"
	"siachat-backend/pkg/zlog"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		zlog.Fatal("failed to load configuration", zap.Error(err))
	}
	if err := zlog.Init(cfg.LogLevel); err != nil {
		zlog.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer zlog.Sync()

	zlog.Info("starting sia chat backend")

	// 2. Initialize Database Connection Pool
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("unable to create database connection pool", zap.Error(err))
	}
	defer dbpool.Close()

	if err := dbpool.Ping(dbCtx); err != nil {
		zlog.Fatal("unable to ping database", zap.Error(err))
	}
	zlog.Info("database connection pool established")

	// 3. Initialize Dependencies (Store, Backend, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool)

	backend := llm.NewClient(llm.ClientConfig{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Temperature: cfg.LLMTemperature,
		TopP:        cfg.LLMTopP,
		MaxTokens:   cfg.LLMMaxTokens,
		Timeout:     cfg.LLMTimeout,
	})
	prompts := llm.NewPromptBuilder(llm.PromptConfig{
		DemoBookingURL:       cfg.DemoBookingURL,
		FallbackContactEmail: cfg.FallbackContactEmail,
		HistoryLimit:         cfg.HistoryLimit,
	})

	chatService := services.NewChatService(pgStore, backend, prompts)
	statsService := services.NewStatsService(pgStore)

	chatHandler := handlers.NewChatHandlers(chatService)
	statsHandler := handlers.NewStatsHandlers(statsService)

	// 4. Setup Router & Inject Dependencies
	router := api.NewRouter(api.RouterDependencies{
		ChatHandler:  chatHandler,
		StatsHandler: statsHandler,
		Config:       cfg,
	})

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		zlog.Info("server listening", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-stopChan
	zlog.Info("shutdown signal received, draining connections")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
	}

	zlog.Info("server shutdown complete")
}
