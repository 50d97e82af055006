package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/auth"
	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/gateway"
	apphttp "financas/internal/http"
	"financas/internal/live"
	applog "financas/internal/log"
	"financas/internal/services"
)

const (
	shutdownTimeout = 30 * time.Second
	cleanupInterval = 5 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

// run wires the store, the write gateway and the HTTP server, and blocks
// until a shutdown signal or a server failure.
func run(cfg *config.Config, logger *applog.Logger) (err error) {
	ctx, cancel := cli.SignalContext(logger.Slog())
	defer cancel()

	res, bcfg, err := cli.OpenBackend(ctx, logger.WithComponent(applog.ComponentBackend).Slog(), cfg)
	if err != nil {
		return fmt.Errorf("initialize %s store: %w", cfg.DataBackend, err)
	}
	defer func() {
		if cerr := res.Cleanup(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close store: %w", cerr))
		}
	}()
	store := res.Store

	hub := live.NewHub(store, logger.WithComponent(applog.ComponentLive).Slog())
	notifiers := []gateway.Notifier{hub}

	if cfg.AMQPEnabled() {
		amqpLogger := logger.WithComponent(applog.ComponentAMQP).Slog()
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, amqpLogger)
		if err != nil {
			return fmt.Errorf("connect to AMQP: %w", err)
		}
		defer client.Close()
		notifiers = append(notifiers, amqp.NewChangeNotifier(client, amqpLogger))
		logger.Info("Publishing ledger changes", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP not configured, spreadsheet sync disabled")
	}

	dispatcher := gateway.NewDispatcher(store, gateway.Options{
		QueueSize: cfg.MutationQueueSize,
		Notifiers: notifiers,
		Logger:    logger.WithComponent(applog.ComponentGateway).Slog(),
	})
	dispatcher.Start()

	authSvc := auth.NewService(store, auth.Options{
		SessionTTL:  cfg.SessionTTL,
		MaxSessions: cfg.SessionCacheSize,
		Logger:      logger.WithComponent(applog.ComponentAuth).Slog(),
	})

	deps := apphttp.Deps{
		Ledger:             services.NewLedgerService(dispatcher, store),
		Auth:               authSvc,
		Hub:                hub,
		Feed:               dispatcher.Feed(),
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SessionTTL:         cfg.SessionTTL,
	}
	if p, ok := store.(backend.Pinger); ok {
		deps.Ready = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)

	caches := cache.NewManager(logger.WithComponent(applog.ComponentCache).Slog())
	caches.Register("sessions", authSvc)
	caches.Register("rate_limit", srv.RateLimiter())
	caches.StartCleanup(cleanupInterval)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting financas server", "port", cfg.Port, "backend", bcfg.Type)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	// Pending writes are applied before the store closes.
	dispatcher.Stop()
	caches.Stop()
	return err
}
