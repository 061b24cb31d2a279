package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media_gateway/internal/config"
	"media_gateway/internal/httpapi"
	"media_gateway/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLogger := logging.New("production")
		bootLogger.Fatal().Err(err).Msg("Failed to load config")
	}

	logger := logging.New(cfg.AppEnv)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mux, deps, err := httpapi.NewRouter(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build router")
	}

	addr := ":" + cfg.HTTPPort
	server := &http.Server{
		Addr:    addr,
		Handler: mux,
		// Generation calls can legitimately run for minutes; the write
		// timeout must outlast the provider submit timeout.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.Provider.SubmitTimeout + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("Media gateway listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop the invalidation listener and drain the audit queue before
	// closing the database.
	cancel()
	deps.Close()

	logger.Info().Msg("Server exited")
}
