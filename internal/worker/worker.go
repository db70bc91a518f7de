// Package worker runs the background loop that drains the atendimento
// queue: claim a batch, route each item, run the selected workflow, then
// record the outcome back on the queue.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/olga-ai/atendimento/internal/model"
	"github.com/olga-ai/atendimento/internal/queue"
	"github.com/olga-ai/atendimento/internal/router"
	"github.com/olga-ai/atendimento/internal/session"
	"github.com/olga-ai/atendimento/internal/workflow"
)

type Options struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

type Worker struct {
	id       uuid.UUID
	queue    queue.Queue
	router   *router.Router
	runners  map[string]workflow.Runner
	sessions session.Store // optional

	interval    time.Duration
	batchSize   int
	concurrency int

	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func New(q queue.Queue, r *router.Router, runners map[string]workflow.Runner, sessions session.Store, opts Options) (*Worker, error) {
	if q == nil {
		return nil, errors.New("queue must not be nil")
	}
	if r == nil {
		return nil, errors.New("router must not be nil")
	}
	if len(runners) == 0 {
		return nil, errors.New("at least one workflow runner is required")
	}
	if opts.Interval <= 0 {
		return nil, errors.New("interval must be > 0")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.New("batch size must be > 0")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	return &Worker{
		id:          uuid.New(),
		queue:       q,
		router:      r,
		runners:     runners,
		sessions:    sessions,
		interval:    opts.Interval,
		batchSize:   opts.BatchSize,
		concurrency: opts.Concurrency,
		done:        make(chan struct{}),
	}, nil
}

func (w *Worker) Start() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running.Load() {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})
	w.running.Store(true)

	go func() {
		defer close(w.done)

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		slog.Info("worker started",
			"worker_id", w.id.String(),
			"interval", w.interval.String(),
			"batch_size", w.batchSize,
		)

		w.safeTick(ctx)

		for {
			select {
			case <-ctx.Done():
				slog.Info("worker stopping", "worker_id", w.id.String())
				return
			case <-ticker.C:
				w.safeTick(ctx)
			}
		}
	}()

	return true
}

func (w *Worker) Stop() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running.Load() {
		return false
	}

	w.cancel()
	<-w.done
	w.running.Store(false)

	slog.Info("worker stopped", "worker_id", w.id.String())
	return true
}

func (w *Worker) IsRunning() bool {
	return w.running.Load()
}

func (w *Worker) safeTick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("worker tick panic recovered", "panic", r)
		}
	}()

	start := time.Now()
	processed := w.Tick(ctx)
	if processed > 0 {
		slog.Info("worker tick completed",
			"processed", processed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Tick claims one batch and processes every claimed item. It returns the
// number of items claimed; fewer than the batch size just means the queue
// had no more claimable work.
func (w *Worker) Tick(ctx context.Context) int {
	items, err := w.queue.ClaimBatch(ctx, w.batchSize)
	if err != nil {
		slog.Error("claim batch failed", "error", err)
		return 0
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, item := range items {
		g.Go(func() error {
			w.process(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return len(items)
}

// process runs one claimed item to a terminal outcome. Workflow failures go
// through the queue's bounded-retry path; they are never an error of the
// worker itself.
func (w *Worker) process(ctx context.Context, item model.QueueItem) {
	dec, err := w.router.Route(ctx, item.Phone, item.Message)
	if err != nil {
		w.fail(ctx, item, "route: "+err.Error())
		return
	}

	runner, ok := w.runners[dec.Flow]
	if !ok {
		w.fail(ctx, item, "no runner for flow "+dec.Flow)
		return
	}

	state := &workflow.State{
		Phone:    item.Phone,
		Message:  item.Message,
		Decision: dec,
	}
	if err := runner.Run(ctx, state); err != nil {
		w.fail(ctx, item, err.Error())
		return
	}

	result := state.Result()
	if err := w.queue.Complete(ctx, item.ID, result); err != nil {
		slog.Error("complete failed", "item_id", item.ID, "error", err)
		return
	}
	w.saveSession(ctx, item.Phone, result)

	slog.Info("item processed",
		"worker_id", w.id.String(),
		"item_id", item.ID,
		"flow", dec.Flow,
	)
}

func (w *Worker) fail(ctx context.Context, item model.QueueItem, reason string) {
	if err := w.queue.Fail(ctx, item.ID, reason); err != nil {
		slog.Error("fail recording failed", "item_id", item.ID, "error", err)
		return
	}
	slog.Warn("item failed",
		"worker_id", w.id.String(),
		"item_id", item.ID,
		"retry_count", item.RetryCount+1,
		"reason", reason,
	)
}

func (w *Worker) saveSession(ctx context.Context, phone string, data map[string]any) {
	if w.sessions == nil {
		return
	}
	if err := w.sessions.Save(ctx, phone, data); err != nil {
		slog.Warn("session save failed", "phone", phone, "error", err)
	}
}
