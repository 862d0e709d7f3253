package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contas/internal/amqp"
	"contas/internal/cli"
	"contas/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting recurring-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	// Cache-invalidation publisher; without it the worker still runs, the
	// downstream caches just go stale until their TTLs expire.
	var publisher services.Invalidator
	var consumer services.Consumer
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without invalidation", "error", err)
		} else {
			defer client.Close()
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
			publisher = client
			consumer = client
		}
	} else {
		logger.Info("AMQP disabled - cache invalidation will not be published")
	}

	hub := services.NewInvalidation(publisher)
	generator := services.NewScheduleGenerator(repo)
	processor := services.NewRecurringProcessor(repo, generator, hub, cfg.GenerationHorizon, cfg.WorkerConcurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Evict local cache entries when another process publishes an
	// invalidation for the same exchange.
	if consumer != nil {
		go func() {
			if err := hub.Listen(ctx, consumer); err != nil && ctx.Err() == nil {
				logger.Error("Invalidation consumer stopped", "error", err)
			}
		}()
	}

	logger.Info("Recurring schedule processor configured",
		"interval", cfg.WorkerInterval,
		"horizon", cfg.GenerationHorizon,
		"sqlite_db", cfg.SQLiteDBPath)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	// Run initial pass on startup
	logger.Info("Running initial recurring schedule pass...")
	if result, err := processor.ProcessAll(ctx, time.Now()); err != nil {
		logger.Error("Initial pass failed", "error", err)
	} else {
		logger.Info("Initial pass complete",
			"tenants", result.Tenants,
			"materialized", result.Materialized,
			"overdue", result.Overdue)
	}

	// Start periodic processing
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Running recurring schedule pass...")
				result, err := processor.ProcessAll(ctx, now)
				if err != nil {
					logger.Error("Periodic pass failed", "error", err)
				} else {
					logger.Info("Periodic pass complete",
						"tenants", result.Tenants,
						"materialized", result.Materialized,
						"overdue", result.Overdue,
						"next_check", now.Add(cfg.WorkerInterval).Format("15:04:05"))
				}
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down recurring-worker...")
	cancel()
	logger.Info("Recurring-worker shutdown complete")
}
