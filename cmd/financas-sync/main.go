package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"financas/internal/amqp"
	"financas/internal/backend"
	"financas/internal/cli"
	"financas/internal/config"
	applog "financas/internal/log"
	"financas/internal/worker"
)

const shutdownTimeout = 30 * time.Second

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the sync worker")
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Sync worker failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Sync worker shutdown complete")
}

// run mirrors ledger changes into the spreadsheet until a shutdown signal
// arrives or the consumer gives up.
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

	if bcfg.Type == backend.MemoryBackend {
		logger.Warn("Memory backend is private to this process, every message will name an unknown user")
	}

	writer, err := backend.NewFactory(logger.WithComponent(applog.ComponentSheets).Slog()).CreateLedgerWriter(ctx, bcfg)
	if err != nil {
		return fmt.Errorf("initialize ledger writer: %w", err)
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue,
		logger.WithComponent(applog.ComponentAMQP).Slog())
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	w := worker.NewSyncWorker(res.Store, writer, logger.Slog())
	if err := w.Start(ctx, client); err != nil {
		return err
	}
	logger.Info("Sync worker running",
		"queue", cfg.AMQPQueue,
		"spreadsheet", cfg.SheetsEnabled(),
		"backend", bcfg.Type)

	var g errgroup.Group
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-w.Done():
			// The consumer stopped on its own; take the process down with it.
			cancel()
		}
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return w.Stop(stopCtx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	if err := w.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
