package main

import (
	"context"
	"flag"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"deployd/internal/api"
	"deployd/internal/api/handlers"
	"deployd/internal/api/middleware"
	"deployd/internal/engine/deploy"
	"deployd/internal/pkg/logger"
	"deployd/internal/platform/auth"
	"deployd/internal/platform/config"
	"deployd/internal/platform/database"
	"deployd/internal/platform/repositories"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "Path to config file")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Logging, *logLevel)

	db, err := database.Open(cfg.History)
	if err != nil {
		stdlog.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()

	repo := repositories.NewDeployRunRepository(db)
	metrics := handlers.NewMetrics()
	deploySvc := deploy.NewService(deploy.NewRunner(), repo)
	tokenSvc := auth.NewTokenService(cfg.Admin)

	router := api.NewRouter(&api.Dependencies{
		Config:         cfg,
		DeployHandler:  handlers.NewDeployHandler(deploySvc, metrics),
		HistoryHandler: handlers.NewHistoryHandler(repo),
		HealthHandler:  handlers.NewHealthHandler(db),
		Metrics:        metrics,
		SignatureMW:    middleware.NewSignatureMiddleware(cfg.Security),
		AuthMW:         middleware.NewAuthMiddleware(tokenSvc),
		RateLimiter:    middleware.NewRateLimiter(),
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
		// WriteTimeout bounds the whole response, and a deploy script
		// can legitimately run for minutes.
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	for _, app := range cfg.Apps {
		log.Info().Str("app", app.Name).Str("endpoint", app.Endpoint).Msg("registered deploy endpoint")
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}
