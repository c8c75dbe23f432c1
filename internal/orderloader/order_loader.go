package orderloader

import (
	"context"
	"fmt"
	"time"

	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/gateway"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"
)

// Source loads display copies by id.
type Source interface {
	Load(ctx context.Context, ids []uuid.UUID) ([]domain.DisplayOrder, error)
}

// OrderLoader batches and memoizes order lookups made while serving one request.
type OrderLoader struct {
	Loader *dataloader.Loader
}

func NewOrderLoader(source Source) *OrderLoader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// Convert keys to []uuid.UUID, remembering which result slot each belongs to
		ids := make([]uuid.UUID, 0, len(keys))
		slots := make([]int, 0, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: fmt.Errorf("invalid UUID: %w", err)}
				continue
			}
			ids = append(ids, id)
			slots = append(slots, i)
		}
		if len(ids) == 0 {
			return results
		}

		orders, err := source.Load(ctx, ids)
		if err != nil {
			for _, slot := range slots {
				results[slot] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Map UUID -> order for ordering
		orderMap := make(map[uuid.UUID]domain.DisplayOrder, len(orders))
		for _, o := range orders {
			orderMap[o.ID] = o
		}

		for n, id := range ids {
			if o, ok := orderMap[id]; ok {
				results[slots[n]] = &dataloader.Result{Data: o}
			} else {
				results[slots[n]] = &dataloader.Result{Error: fmt.Errorf("%w: %s", gateway.ErrOrderNotFound, id)}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(5*time.Millisecond))

	return &OrderLoader{Loader: loader}
}

// Load resolves one order.
func (l *OrderLoader) Load(ctx context.Context, id uuid.UUID) (domain.DisplayOrder, error) {
	data, err := l.Loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return domain.DisplayOrder{}, err
	}
	order, ok := data.(domain.DisplayOrder)
	if !ok {
		return domain.DisplayOrder{}, fmt.Errorf("unexpected loader value %T", data)
	}
	return order, nil
}

// LoadMany resolves orders in the order of ids. The error slice is nil when
// every id resolved, otherwise it is positional.
func (l *OrderLoader) LoadMany(ctx context.Context, ids []uuid.UUID) ([]domain.DisplayOrder, []error) {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}
	data, errs := l.Loader.LoadMany(ctx, dataloader.NewKeysFromStrings(keys))()

	orders := make([]domain.DisplayOrder, len(ids))
	var failures []error
	for i := range ids {
		var err error
		if i < len(errs) {
			err = errs[i]
		}
		if err == nil && i < len(data) {
			order, ok := data[i].(domain.DisplayOrder)
			if ok {
				orders[i] = order
			} else {
				err = fmt.Errorf("unexpected loader value %T", data[i])
			}
		}
		if err != nil {
			if failures == nil {
				failures = make([]error, len(ids))
			}
			failures[i] = err
		}
	}
	return orders, failures
}
