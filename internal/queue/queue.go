package queue

import (
	"context"

	"github.com/olga-ai/atendimento/internal/model"
)

const (
	// DefaultPriority is the mid-value priority; lower values are more urgent.
	DefaultPriority = 5

	// DefaultMaxRetries is how many failures an item survives before it is
	// marked FAILED permanently.
	DefaultMaxRetries = 3
)

// EnqueueResult is what the caller gets back after adding work. Position is
// how many WAITING items would be claimed before this one; EstimatedWait is a
// coarse display estimate derived from it.
type EnqueueResult struct {
	ID            int64  `json:"queue_id"`
	Position      int    `json:"position"`
	EstimatedWait string `json:"estimated_wait"`
}

// Queue is the durable work queue. All mutation of queue items goes through
// this interface; no other component writes them.
type Queue interface {
	// Enqueue adds a new WAITING item, or returns the existing one if a
	// WAITING item for the same phone already exists (de-dup by identity,
	// not message content).
	Enqueue(ctx context.Context, phone, message string, priority int) (EnqueueResult, error)

	// ClaimBatch atomically moves up to n WAITING items to PROCESSING and
	// returns them ordered by (priority ASC, created_at ASC). Items locked
	// by a concurrent claim are skipped, never waited on; fewer than n
	// items is not an error.
	ClaimBatch(ctx context.Context, n int) ([]model.QueueItem, error)

	// Complete marks an item DONE and records its result.
	Complete(ctx context.Context, id int64, result map[string]any) error

	// Fail records the error and increments retry_count. The item returns
	// to WAITING at its original ordering key, or becomes FAILED once the
	// retry budget is exhausted.
	Fail(ctx context.Context, id int64, reason string) error
}
