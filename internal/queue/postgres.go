package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olga-ai/atendimento/internal/model"
)

// PostgresQueue implements Queue on top of a pgx connection pool. Mutual
// exclusion between concurrent claimers is delegated entirely to the store's
// FOR UPDATE SKIP LOCKED read mode; the engine holds no in-process locks.
type PostgresQueue struct {
	pool       *pgxpool.Pool
	maxRetries int
	avgWait    time.Duration
}

type PostgresOption func(*PostgresQueue)

func WithMaxRetries(n int) PostgresOption {
	return func(q *PostgresQueue) {
		if n > 0 {
			q.maxRetries = n
		}
	}
}

func WithAvgWaitPerItem(d time.Duration) PostgresOption {
	return func(q *PostgresQueue) {
		if d > 0 {
			q.avgWait = d
		}
	}
}

func NewPostgresQueue(pool *pgxpool.Pool, opts ...PostgresOption) *PostgresQueue {
	q := &PostgresQueue{
		pool:       pool,
		maxRetries: DefaultMaxRetries,
		avgWait:    DefaultAvgWaitPerItem,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *PostgresQueue) Enqueue(ctx context.Context, phone, message string, priority int) (EnqueueResult, error) {
	if phone == "" {
		return EnqueueResult{}, ErrEmptyPhone
	}
	if message == "" {
		return EnqueueResult{}, ErrEmptyMessage
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return EnqueueResult{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var id int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM atendimento_queue
		WHERE phone = $1 AND status = 'WAITING'
		ORDER BY created_at ASC
		LIMIT 1
	`, phone).Scan(&id)
	switch {
	case err == nil:
		// De-dup: an item for this phone is already waiting.
	case errors.Is(err, pgx.ErrNoRows):
		// No WAITING row for this phone, open a new item. The table holds
		// no uniqueness constraint on (phone, WAITING): a retry re-queue
		// legitimately puts a claimed item back to WAITING next to a newer
		// message from the same phone, so a racing enqueue slipping in a
		// second row is tolerated the same way.
		err = tx.QueryRow(ctx, `
			INSERT INTO atendimento_queue (phone, message, priority, status)
			VALUES ($1, $2, $3, 'WAITING')
			RETURNING id
		`, phone, message, priority).Scan(&id)
		if err != nil {
			return EnqueueResult{}, err
		}
	default:
		return EnqueueResult{}, err
	}

	pos, err := position(ctx, tx, id)
	if err != nil {
		return EnqueueResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return EnqueueResult{}, err
	}

	return EnqueueResult{
		ID:            id,
		Position:      pos,
		EstimatedWait: EstimateWait(pos, q.avgWait),
	}, nil
}

// position counts WAITING items that sort strictly before the target under
// (priority, created_at) lexicographic order. This is the same total order
// ClaimBatch uses, so the count equals "claims that would happen first".
func position(ctx context.Context, tx pgx.Tx, id int64) (int, error) {
	var pos int
	err := tx.QueryRow(ctx, `
		WITH target AS (
		  SELECT priority, created_at FROM atendimento_queue WHERE id = $1
		)
		SELECT COUNT(*) FROM atendimento_queue q, target t
		WHERE q.status = 'WAITING'
		  AND (q.priority < t.priority OR
		       (q.priority = t.priority AND q.created_at < t.created_at))
	`, id).Scan(&pos)
	return pos, err
}

func (q *PostgresQueue) ClaimBatch(ctx context.Context, n int) ([]model.QueueItem, error) {
	if n <= 0 {
		return nil, ErrBatchSize
	}

	rows, err := q.pool.Query(ctx, `
		WITH claimed AS (
			UPDATE atendimento_queue
			SET status = 'PROCESSING', started_at = now()
			WHERE id IN (
			  SELECT id FROM atendimento_queue
			  WHERE status = 'WAITING'
			  ORDER BY priority ASC, created_at ASC, id ASC
			  FOR UPDATE SKIP LOCKED
			  LIMIT $1
			)
			RETURNING id, phone, message, priority, status, retry_count, created_at, started_at
		)
		SELECT id, phone, message, priority, status, retry_count, created_at, started_at
		FROM claimed
		ORDER BY priority ASC, created_at ASC, id ASC
	`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []model.QueueItem
	for rows.Next() {
		var it model.QueueItem
		var status string
		var startedAt time.Time
		if err := rows.Scan(
			&it.ID,
			&it.Phone,
			&it.Message,
			&it.Priority,
			&status,
			&it.RetryCount,
			&it.CreatedAt,
			&startedAt,
		); err != nil {
			return nil, err
		}
		st := model.Status(status)
		if !st.Valid() {
			return nil, fmt.Errorf("claimed row %d carries unknown status %q", it.ID, status)
		}
		it.Status = st
		it.StartedAt = &startedAt
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// RETURNING order is not guaranteed by Postgres; the CTE re-sort above
	// covers it, this keeps the contract explicit even if the SQL changes.
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority < items[j].Priority
		}
		if !items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (q *PostgresQueue) Complete(ctx context.Context, id int64, result map[string]any) error {
	var payload []byte
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			return err
		}
		payload = b
	}

	tag, err := q.pool.Exec(ctx, `
		UPDATE atendimento_queue
		SET status = 'DONE',
		    completed_at = now(),
		    result = $2
		WHERE id = $1
	`, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *PostgresQueue) Fail(ctx context.Context, id int64, reason string) error {
	if reason == "" {
		reason = "unknown"
	}

	// Re-queued items keep their original created_at and priority, so a
	// flaky item resumes its natural position instead of cutting ahead or
	// falling to the back.
	tag, err := q.pool.Exec(ctx, `
		UPDATE atendimento_queue
		SET status = CASE WHEN retry_count + 1 >= $3 THEN 'FAILED' ELSE 'WAITING' END,
		    last_error = $2,
		    retry_count = retry_count + 1
		WHERE id = $1
	`, id, reason, q.maxRetries)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
