package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/JaeTrim/Traffic-AI/internal/api"
	"github.com/JaeTrim/Traffic-AI/internal/auth"
	"github.com/JaeTrim/Traffic-AI/internal/config"
	"github.com/JaeTrim/Traffic-AI/internal/database"
	"github.com/JaeTrim/Traffic-AI/internal/inference"
	"github.com/JaeTrim/Traffic-AI/internal/metrics"
	"github.com/JaeTrim/Traffic-AI/internal/repository"
	"github.com/JaeTrim/Traffic-AI/internal/service"
	"github.com/JaeTrim/Traffic-AI/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the last migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.LogConfig{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info().Msg("Starting Traffic AI server...")

	m, err := metrics.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	// The connection is opened lazily and shared by every request
	provider := database.NewProvider(&cfg.Database, log)
	defer provider.Close()

	// Run migrations
	db, err := provider.Conn(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if *rollback {
		if err := db.MigrateDown(cfg.Database.MigrationsPath); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		return
	}
	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Initialize repositories and services
	repos := repository.New(provider)
	services := service.NewServices(service.Deps{
		Repos:     repos,
		Inference: inference.NewClient(cfg.Inference, m, log),
		Tokens:    auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Metrics:   m,
		Config:    cfg,
	}, log)

	// Initialize router
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(services, cfg, provider, m, log)

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("inference_url", cfg.Inference.BaseURL).
			Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited gracefully")
}
