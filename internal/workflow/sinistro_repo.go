package workflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olga-ai/atendimento/internal/model"
)

// PostgresSinistroRepo stores claims in the sinistros table. Protocol
// numbers are derived from the row id so they are unique and monotonic.
type PostgresSinistroRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresSinistroRepo(pool *pgxpool.Pool) *PostgresSinistroRepo {
	return &PostgresSinistroRepo{pool: pool}
}

func (r *PostgresSinistroRepo) Create(ctx context.Context, customerID *int64, payload map[string]any) (*model.Sinistro, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	sin := &model.Sinistro{
		CustomerID: customerID,
		Status:     model.SinistroOpen,
		Payload:    payload,
	}
	if err := tx.QueryRow(ctx, `
		INSERT INTO sinistros (customer_id, status, payload)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, customerID, string(sin.Status), body).Scan(&sin.ID, &sin.CreatedAt, &sin.UpdatedAt); err != nil {
		return nil, err
	}

	sin.Protocol = fmt.Sprintf("SIN%06d", sin.ID)
	if _, err := tx.Exec(ctx, `
		UPDATE sinistros SET protocol = $2, updated_at = now() WHERE id = $1
	`, sin.ID, sin.Protocol); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return sin, nil
}
