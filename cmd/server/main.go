package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eatdecider/backend/internal/app"
	"eatdecider/backend/internal/config"
	"eatdecider/backend/internal/httpapi"
	"eatdecider/backend/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Error().Err(err).Msg("invalid configuration")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	application, err := app.Build(ctx, cfg)
	cancel()
	if err != nil {
		logging.Error().Err(err).Msg("startup failed")
		os.Exit(1)
	}

	api := httpapi.New(application.Service, httpapi.Options{
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		RequestsPerMin: cfg.Server.RequestsPerMin,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", cfg.Address()).Msg("eat-decider backend listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case s := <-sig:
		logging.Info().Str("signal", s.String()).Msg("shutting down")
	case err := <-serverErr:
		if err != nil {
			logging.Error().Err(err).Msg("server error")
			exitCode = 1
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("shutdown error")
	}
	if err := application.Close(); err != nil {
		logging.Warn().Err(err).Msg("close error")
	}

	logging.Info().Msg("server stopped")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
