package queue

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/olga-ai/atendimento/internal/model"
)

// MemoryQueue implements Queue with an in-process map. It exists for tests
// and local development; ordering, de-dup and retry semantics match the
// Postgres implementation exactly, with a mutex standing in for row locks.
type MemoryQueue struct {
	mu         sync.Mutex
	items      map[int64]*model.QueueItem
	nextID     int64
	maxRetries int
	avgWait    time.Duration

	now func() time.Time
}

type MemoryOption func(*MemoryQueue)

func MemoryWithMaxRetries(n int) MemoryOption {
	return func(q *MemoryQueue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

func MemoryWithClock(now func() time.Time) MemoryOption {
	return func(q *MemoryQueue) {
		if now != nil {
			q.now = now
		}
	}
}

func NewMemoryQueue(opts ...MemoryOption) *MemoryQueue {
	q := &MemoryQueue{
		items:      make(map[int64]*model.QueueItem),
		maxRetries: DefaultMaxRetries,
		avgWait:    DefaultAvgWaitPerItem,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *MemoryQueue) Enqueue(ctx context.Context, phone, message string, priority int) (EnqueueResult, error) {
	if phone == "" {
		return EnqueueResult{}, ErrEmptyPhone
	}
	if message == "" {
		return EnqueueResult{}, ErrEmptyMessage
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if existing := q.earliestWaiting(phone); existing != nil {
		pos := q.positionLocked(existing.ID)
		return EnqueueResult{
			ID:            existing.ID,
			Position:      pos,
			EstimatedWait: EstimateWait(pos, q.avgWait),
		}, nil
	}

	q.nextID++
	it := &model.QueueItem{
		ID:        q.nextID,
		Phone:     phone,
		Message:   message,
		Priority:  priority,
		Status:    model.Waiting,
		CreatedAt: q.now().UTC(),
	}
	q.items[it.ID] = it

	pos := q.positionLocked(it.ID)
	return EnqueueResult{
		ID:            it.ID,
		Position:      pos,
		EstimatedWait: EstimateWait(pos, q.avgWait),
	}, nil
}

func (q *MemoryQueue) earliestWaiting(phone string) *model.QueueItem {
	var found *model.QueueItem
	for _, it := range q.items {
		if it.Phone != phone || it.Status != model.Waiting {
			continue
		}
		if found == nil || it.CreatedAt.Before(found.CreatedAt) ||
			(it.CreatedAt.Equal(found.CreatedAt) && it.ID < found.ID) {
			found = it
		}
	}
	return found
}

func (q *MemoryQueue) positionLocked(id int64) int {
	target, ok := q.items[id]
	if !ok {
		return 0
	}
	pos := 0
	for _, it := range q.items {
		if it.Status != model.Waiting || it.ID == id {
			continue
		}
		if it.Priority < target.Priority ||
			(it.Priority == target.Priority && it.CreatedAt.Before(target.CreatedAt)) {
			pos++
		}
	}
	return pos
}

func (q *MemoryQueue) ClaimBatch(ctx context.Context, n int) ([]model.QueueItem, error) {
	if n <= 0 {
		return nil, ErrBatchSize
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	var waiting []*model.QueueItem
	for _, it := range q.items {
		if it.Status.CanTransition(model.Processing) {
			waiting = append(waiting, it)
		}
	}
	sort.Slice(waiting, func(i, j int) bool {
		if waiting[i].Priority != waiting[j].Priority {
			return waiting[i].Priority < waiting[j].Priority
		}
		if !waiting[i].CreatedAt.Equal(waiting[j].CreatedAt) {
			return waiting[i].CreatedAt.Before(waiting[j].CreatedAt)
		}
		return waiting[i].ID < waiting[j].ID
	})
	if len(waiting) > n {
		waiting = waiting[:n]
	}

	now := q.now().UTC()
	claimed := make([]model.QueueItem, 0, len(waiting))
	for _, it := range waiting {
		it.Status = model.Processing
		startedAt := now
		it.StartedAt = &startedAt
		claimed = append(claimed, *it)
	}
	return claimed, nil
}

func (q *MemoryQueue) Complete(ctx context.Context, id int64, result map[string]any) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[id]
	if !ok {
		return ErrNotFound
	}

	now := q.now().UTC()
	it.Status = model.Done
	it.CompletedAt = &now
	it.Result = result
	return nil
}

func (q *MemoryQueue) Fail(ctx context.Context, id int64, reason string) error {
	if reason == "" {
		reason = "unknown"
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[id]
	if !ok {
		return ErrNotFound
	}

	it.RetryCount++
	it.LastError = &reason
	if it.RetryCount >= q.maxRetries {
		it.Status = model.Failed
	} else {
		// created_at and priority are untouched: the item resumes its
		// original ordering key when it goes back to WAITING.
		it.Status = model.Waiting
	}
	return nil
}

// Item returns a copy of the stored item, for tests and inspection.
func (q *MemoryQueue) Item(id int64) (model.QueueItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	it, ok := q.items[id]
	if !ok {
		return model.QueueItem{}, false
	}
	return *it, true
}

// Position reports the current queue position of a WAITING item.
func (q *MemoryQueue) Position(id int64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.positionLocked(id)
}
