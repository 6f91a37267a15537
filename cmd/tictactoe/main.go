package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/jaminalder/timetravel-tic-tac-toe/internal/app"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/config"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/domain"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/logging"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/repository"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/session"
	"github.com/jaminalder/timetravel-tic-tac-toe/internal/web"
)

const shutdownTimeout = 10 * time.Second

func main() {
	defer func() {
		if err := recover(); err != nil {
			fmt.Fprintf(os.Stderr, "recovered from panic: %v\n", err)
			os.Exit(1)
		}
	}()

	path := flag.String("config", envOr("CONFIG_PATH", "config.yml"), "path to the yaml config file")
	flag.Parse()

	conf := config.MustLoad(*path)
	log := logging.New(conf.LogLevel, os.Stdout)

	if err := run(log, conf); err != nil {
		log.Error().Err(err).Msg("app run failed")
		os.Exit(1)
	}
}

func run(log zerolog.Logger, conf *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, repository.Options{
		Driver:    conf.Store.Driver,
		RedisAddr: conf.Store.Redis.GetRedisAddr(),
		TTL:       conf.Store.TTL,
	})
	if err != nil {
		return fmt.Errorf("could not open game store: %w", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			log.Error().Err(err).Msg("could not close game store")
		}
	}()

	order, err := domain.ParseOrder(conf.DefaultOrder)
	if err != nil {
		return fmt.Errorf("invalid default order: %w", err)
	}
	seed := conf.BotSeed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	svc := app.NewService(repo,
		app.WithLogger(log),
		app.WithDefaultOrder(order),
		app.WithBot(session.NewBot(seed)),
	)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", conf.HTTPPort),
		Handler:           web.NewServer(svc, log, conf.HeartbeatInterval),
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", conf.HTTPPort).Str("store", conf.Store.Driver).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err = <-errCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info().Msg("received signal, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
