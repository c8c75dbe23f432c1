package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/consulta/internal/db"
	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Timestamp and numeric parameters are cast through text so soft-failed date
// cells reach Postgres verbatim and are rejected there.
const insertOrderSQL = `INSERT INTO orders (referencia, ultima_ocorrencia, data_ultima_ocorrencia, status, valor_mercadoria)
 VALUES ($1, $2, $3::text::timestamp, $4, $5::text::numeric)`

const selectOrderColumns = `SELECT id, referencia, ultima_ocorrencia, data_ultima_ocorrencia, status, valor_mercadoria, status_updated_at, created_at
 FROM orders`

type orderRepository struct {
	conn *db.Connection
}

// NewOrderRepository wires a repository backed by the connection pool.
func NewOrderRepository(conn *db.Connection) OrderRepository {
	return &orderRepository{conn: conn}
}

func (r *orderRepository) InsertBatch(ctx context.Context, orders []domain.Order) error {
	if r.conn == nil || r.conn.Pool == nil {
		return fmt.Errorf("order repository not initialized")
	}
	if len(orders) == 0 {
		return nil
	}

	batch := buildInsertBatch(orders)
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		results := tx.SendBatch(ctx, batch)
		for _, order := range orders {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("failed to insert order %s: %w", order.Reference, err)
			}
		}
		if err := results.Close(); err != nil {
			return fmt.Errorf("failed to close insert batch: %w", err)
		}
		return nil
	})
}

func buildInsertBatch(orders []domain.Order) *pgx.Batch {
	batch := &pgx.Batch{}
	for _, order := range orders {
		status := order.Status
		if status == "" {
			status = domain.StatusPending
		}
		batch.Queue(insertOrderSQL,
			order.Reference,
			order.LastEvent,
			order.LastEventAt,
			string(status),
			order.MerchandiseValue.String(),
		)
	}
	return batch
}

func (r *orderRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	if r.conn == nil || r.conn.Pool == nil {
		return nil, fmt.Errorf("order repository not initialized")
	}

	rows, err := r.conn.Pool.Query(ctx,
		selectOrderColumns+` WHERE created_at >= $1 ORDER BY created_at, referencia`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return collectOrders(rows)
}

func (r *orderRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Order, error) {
	if r.conn == nil || r.conn.Pool == nil {
		return nil, fmt.Errorf("order repository not initialized")
	}
	if len(ids) == 0 {
		return []domain.Order{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	rows, err := r.conn.Pool.Query(ctx,
		selectOrderColumns+` WHERE id = ANY($1::text[]::uuid[])`,
		keys,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders by id: %w", err)
	}
	return collectOrders(rows)
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, at time.Time) error {
	if r.conn == nil || r.conn.Pool == nil {
		return fmt.Errorf("order repository not initialized")
	}

	tag, err := r.conn.Pool.Exec(ctx,
		`UPDATE orders SET status = $2, status_updated_at = $3 WHERE id = $1`,
		id, string(status), at,
	)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	return nil
}

func collectOrders(rows pgx.Rows) ([]domain.Order, error) {
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		var (
			order           domain.Order
			status          string
			lastEventAt     pgtype.Timestamp
			value           pgtype.Numeric
			statusUpdatedAt pgtype.Timestamptz
			createdAt       pgtype.Timestamptz
		)
		if err := rows.Scan(
			&order.ID,
			&order.Reference,
			&order.LastEvent,
			&lastEventAt,
			&status,
			&value,
			&statusUpdatedAt,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		order.Status = domain.Status(status)
		if lastEventAt.Valid {
			order.LastEventAt = lastEventAt.Time.Format(domain.CanonicalLayout)
		}
		order.MerchandiseValue = numericToDecimal(value)
		if statusUpdatedAt.Valid {
			updated := statusUpdatedAt.Time
			order.StatusUpdatedAt = &updated
		}
		if createdAt.Valid {
			order.CreatedAt = createdAt.Time
		}

		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate orders: %w", err)
	}
	return orders, nil
}

func numericToDecimal(value pgtype.Numeric) decimal.Decimal {
	if !value.Valid || value.NaN || value.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(value.Int, value.Exp)
}
