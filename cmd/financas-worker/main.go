package main

import (
	"context"
	"errors"
	"os"
	"time"

	"financas/internal/backend"
	"financas/internal/cli"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/worker"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := cli.LoadConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	cli.MustValidate(logger, cfg.ValidateWorker)

	logger.Info("Starting financas-worker",
		"backend", cfg.DataBackend,
		"schedule", cfg.RecurringSchedule,
		"events", cfg.AMQPURL != "")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()

	w := worker.NewEventWorker(services.NewRecurringProcessor(res.Store), res.Store)

	ctx, done := cli.GracefulShutdown(logger, cfg.ShutdownTimeout, nil)

	// catch up on anything missed while the worker was down
	w.RunRecurring(ctx)
	w.CleanupSessions(ctx)

	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := scheduler.AddFunc(cfg.RecurringSchedule, func() { w.RunRecurring(ctx) }); err != nil {
		logger.Error("Invalid recurring schedule", applog.FieldError, err)
		os.Exit(1)
	}
	if _, err := scheduler.AddFunc("@hourly", func() { w.CleanupSessions(ctx) }); err != nil {
		logger.Error("Invalid cleanup schedule", applog.FieldError, err)
		os.Exit(1)
	}
	scheduler.Start()

	g, gctx := errgroup.WithContext(ctx)
	if res.Events != nil {
		g.Go(func() error {
			return res.Events.Consume(gctx, w.HandleEvent)
		})
	} else {
		logger.Info("AMQP disabled, relying on the schedule only")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Event consumption failed", applog.FieldError, err)
	}

	<-ctx.Done()
	stopCtx := scheduler.Stop()
	select {
	case <-stopCtx.Done():
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("Scheduled jobs still running at shutdown")
	}
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
