package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// valor_mercadoria is numeric(14,2).
const merchandiseScale = 2

var merchandiseLimit = decimal.New(1, 12)

// MemoryOrderRepository keeps orders in process memory. It backs local runs
// without Postgres and the package tests of the layers above.
type MemoryOrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]domain.Order
	now    func() time.Time
	seq    time.Duration
}

// NewMemoryOrderRepository returns an empty repository stamping created_at with now.
func NewMemoryOrderRepository(now func() time.Time) *MemoryOrderRepository {
	if now == nil {
		now = time.Now
	}
	return &MemoryOrderRepository{orders: make(map[uuid.UUID]domain.Order), now: now}
}

func (r *MemoryOrderRepository) InsertBatch(ctx context.Context, orders []domain.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, order := range orders {
		if _, err := time.Parse(domain.CanonicalLayout, order.LastEventAt); err != nil {
			return fmt.Errorf("failed to insert order %s: invalid timestamp %q", order.Reference, order.LastEventAt)
		}
		if order.Status != "" && !order.Status.Valid() {
			return fmt.Errorf("failed to insert order %s: status %q violates check constraint", order.Reference, order.Status)
		}
		if order.MerchandiseValue.Round(merchandiseScale).Abs().Cmp(merchandiseLimit) >= 0 {
			return fmt.Errorf("failed to insert order %s: value %s overflows numeric(14,2)", order.Reference, order.MerchandiseValue)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	created := r.now()
	for _, order := range orders {
		order.ID = uuid.New()
		order.MerchandiseValue = order.MerchandiseValue.Round(merchandiseScale)
		if order.Status == "" {
			order.Status = domain.StatusPending
		}
		// Keep insertion order observable when the clock does not advance.
		order.CreatedAt = created.Add(r.seq)
		r.seq += time.Microsecond
		r.orders[order.ID] = order
	}
	return nil
}

func (r *MemoryOrderRepository) ListCreatedSince(ctx context.Context, since time.Time) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []domain.Order{}
	for _, order := range r.orders {
		if !order.CreatedAt.Before(since) {
			orders = append(orders, order)
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].Reference < orders[j].Reference
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func (r *MemoryOrderRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := make([]domain.Order, 0, len(ids))
	for _, id := range ids {
		if order, ok := r.orders[id]; ok {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (r *MemoryOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if !status.Valid() {
		return fmt.Errorf("failed to update order %s: status %q violates check constraint", id, status)
	}
	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrOrderNotFound, id)
	}
	r.orders[id] = order.WithStatus(status, at)
	return nil
}

// Len reports the number of stored orders.
func (r *MemoryOrderRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

// MemoryImportLogRepository keeps import diagnostics in process memory.
type MemoryImportLogRepository struct {
	mu      sync.Mutex
	entries []domain.ImportLogEntry
}

// NewMemoryImportLogRepository returns an empty log.
func NewMemoryImportLogRepository() *MemoryImportLogRepository {
	return &MemoryImportLogRepository{}
}

func (r *MemoryImportLogRepository) Record(ctx context.Context, entry domain.ImportLogEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	r.entries = append(r.entries, entry)
	return nil
}

func (r *MemoryImportLogRepository) List(ctx context.Context, batchID uuid.UUID, limit int, offset int) ([]domain.ImportLogEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	matched := []domain.ImportLogEntry{}
	for _, entry := range r.entries {
		if entry.BatchID == batchID {
			matched = append(matched, entry)
		}
	}
	if offset >= len(matched) {
		return []domain.ImportLogEntry{}, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], nil
}
