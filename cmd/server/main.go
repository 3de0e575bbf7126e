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

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/sketch-duel/internal/config"
	"github.com/DoyleJ11/sketch-duel/internal/events"
	"github.com/DoyleJ11/sketch-duel/internal/httpapi"
	"github.com/DoyleJ11/sketch-duel/internal/hub"
	"github.com/DoyleJ11/sketch-duel/internal/lobby"
	"github.com/DoyleJ11/sketch-duel/internal/logging"
	"github.com/DoyleJ11/sketch-duel/internal/rating"
)

func main() {
	cfg, log, err := setup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sketch-duel: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// setup loads configuration and builds the logger.
func setup(envFiles ...string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, log, nil
}

func run(cfg config.Config, log *zap.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var ratings rating.Store = rating.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		gs, err := rating.OpenGormStore(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, gs.Close()) }()
		ratings = gs
		log.Info("ratings stored in postgres")
	}

	var pub events.Publisher = events.Nop{}
	if cfg.NATSURL != "" {
		np, err := events.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			return err
		}
		pub = np
		log.Info("publishing round results", zap.String("subject", cfg.NATSSubject))
	}
	defer func() { err = multierr.Append(err, pub.Close()) }()

	h := hub.NewHub(ctx, lobby.Config{
		RoundDuration: cfg.RoundLength,
		Grace:         cfg.RoundGrace,
		Ratings:       ratings,
		Publisher:     pub,
		Logger:        log,
	})

	// Build the router *with* the hub injected
	srv := &http.Server{
		Addr: cfg.Addr(),
		Handler: httpapi.SetupRoutes(httpapi.Deps{
			Hub:            h,
			Ratings:        ratings,
			AllowedOrigins: cfg.CORSOrigins,
			Logger:         log,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	// The hub and its rooms share ctx and are already stopping.
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
