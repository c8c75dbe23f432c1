package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
)

// ErrOrderNotFound is returned when an update targets an id that does not exist.
var ErrOrderNotFound = errors.New("order not found")

// OrderRepository persists shipment orders.
type OrderRepository interface {
	InsertBatch(ctx context.Context, orders []domain.Order) error
	ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Order, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, at time.Time) error
}

// ImportLogRepository stores import diagnostics for operators.
type ImportLogRepository interface {
	Record(ctx context.Context, entry domain.ImportLogEntry) error
	List(ctx context.Context, batchID uuid.UUID, limit int, offset int) ([]domain.ImportLogEntry, error)
}
