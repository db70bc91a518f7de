package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/olga-ai/atendimento/internal/api"
	"github.com/olga-ai/atendimento/internal/config"
	"github.com/olga-ai/atendimento/internal/customer"
	"github.com/olga-ai/atendimento/internal/notify"
	"github.com/olga-ai/atendimento/internal/pg"
	"github.com/olga-ai/atendimento/internal/queue"
	"github.com/olga-ai/atendimento/internal/router"
	"github.com/olga-ai/atendimento/internal/session"
	"github.com/olga-ai/atendimento/internal/worker"
	"github.com/olga-ai/atendimento/internal/workflow"
)

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	pool, err := pg.Connect(ctx, cfg.PG)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pg.Migrate(ctx, pool, cfg.PG, slog.Default()); err != nil {
		return err
	}

	q := queue.NewPostgresQueue(pool,
		queue.WithMaxRetries(cfg.Queue.MaxRetries),
		queue.WithAvgWaitPerItem(cfg.Queue.AvgWaitPerItem),
	)
	customers := customer.NewLookup(pool)
	rt := router.New(customers)

	var notifier workflow.Notifier
	if cfg.Webhook.URL != "" {
		notifier = notify.NewWebhook(cfg.Webhook.URL)
	}
	runners := workflow.Runners(workflow.NewPostgresSinistroRepo(pool), notifier)

	var sessions session.Store
	if cfg.Redis.Enabled() {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		sessions = session.NewRedisStore(rdb, cfg.Redis.SessionTTL)
	}

	w, err := worker.New(q, rt, runners, sessions, worker.Options{
		Interval:    cfg.Worker.Interval,
		BatchSize:   cfg.Worker.BatchSize,
		Concurrency: cfg.Worker.Concurrency,
	})
	if err != nil {
		return err
	}
	if cfg.Worker.Autostart {
		w.Start()
		defer w.Stop()
	}

	handler := api.NewHandler(q, rt, customers, w, sessions, pg.Healthcheck(pool))
	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: api.Router(handler),
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "address", cfg.Server.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
