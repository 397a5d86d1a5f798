package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	handler "github.com/quietbit/parley/internal/adapter/driving/http"
	"github.com/quietbit/parley/internal/config"
	"github.com/quietbit/parley/internal/core/service"
)

func main() {
	w := zerolog.ConsoleWriter{Out: os.Stdout}
	l := zerolog.New(w).With().Timestamp().Caller().Logger()

	cfg, err := config.FromEnv()
	if err != nil {
		l.Fatal().Err(err).Msg("Invalid configuration")
	}

	registry := service.NewRegistry()
	directory := service.NewDirectory()
	router := service.NewRouter(registry, directory)
	supervisor := service.NewSupervisor(registry, router)

	h := handler.NewHandler(cfg, supervisor)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: h.NewRouter(),
	}

	go func() {
		l.Info().Str("addr", cfg.ListenAddr).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			l.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	l.Info().Msg("Shutting down server...")

	// New connections are rejected from here on; established sessions
	// drain through the shutdown timeout.
	registry.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		l.Error().Err(err).Msg("Server forced to shutdown")
	}

	l.Info().Msg("Server exited")
}
