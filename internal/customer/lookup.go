package customer

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/olga-ai/atendimento/internal/model"
)

// Lookup is the read-only customer fetch. It never writes.
type Lookup struct {
	pool *pgxpool.Pool
}

func NewLookup(pool *pgxpool.Pool) *Lookup {
	return &Lookup{pool: pool}
}

// FindByPhone returns the customer with an active-policy flag, or nil when
// the phone is unknown.
func (l *Lookup) FindByPhone(ctx context.Context, phone string) (*model.Customer, error) {
	var c model.Customer
	err := l.pool.QueryRow(ctx, `
		SELECT
		  c.id,
		  c.name,
		  EXISTS(
		    SELECT 1 FROM policies p
		    WHERE p.customer_id = c.id AND p.status = 'ACTIVE'
		  ) AS has_active_policy
		FROM customers c
		WHERE c.phone = $1
		LIMIT 1
	`, phone).Scan(&c.ID, &c.Name, &c.HasActivePolicy)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Count reports the number of registered customers.
func (l *Lookup) Count(ctx context.Context) (int64, error) {
	var n int64
	err := l.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n)
	return n, err
}
