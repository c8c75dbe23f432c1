// Package gateway moves orders between the import pipeline, the display
// view and storage.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rpattn/consulta/internal/domain"
	"github.com/rpattn/consulta/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrStorage wraps every failure reported by the repository.
	ErrStorage = errors.New("storage error")
	// ErrInvalidStatus is returned for status values outside the accepted set.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrOrderNotFound is returned when an edit targets an unknown order.
	ErrOrderNotFound = repository.ErrOrderNotFound
)

// Gateway is the storage boundary used by imports, the view and the CLI.
type Gateway struct {
	repo     repository.OrderRepository
	logger   *zap.Logger
	now      func() time.Time
	location *time.Location
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithClock overrides the clock used to stamp status edits.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// WithLocation sets the zone display timestamps are rendered in.
func WithLocation(loc *time.Location) Option {
	return func(g *Gateway) {
		if loc != nil {
			g.location = loc
		}
	}
}

// New wraps repo.
func New(repo repository.OrderRepository, logger *zap.Logger, opts ...Option) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		repo:     repo,
		logger:   logger.With(zap.String("component", "gateway")),
		now:      time.Now,
		location: time.UTC,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Location is the zone display copies are rendered in.
func (g *Gateway) Location() *time.Location {
	return g.location
}

// InsertBatch persists orders as new rows. Generated ids are not returned;
// callers reload with FetchSince to observe them.
func (g *Gateway) InsertBatch(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	if err := g.repo.InsertBatch(ctx, orders); err != nil {
		g.logger.Error("insert batch failed", zap.Int("orders", len(orders)), zap.Error(err))
		return fmt.Errorf("%w: insert batch: %w", ErrStorage, err)
	}
	g.logger.Info("batch inserted", zap.Int("orders", len(orders)))
	return nil
}

// FetchSince returns display copies of every order created at or after start.
func (g *Gateway) FetchSince(ctx context.Context, start time.Time) ([]domain.DisplayOrder, error) {
	orders, err := g.repo.ListCreatedSince(ctx, start)
	if err != nil {
		g.logger.Error("fetch failed", zap.Time("since", start), zap.Error(err))
		return nil, fmt.Errorf("%w: fetch orders: %w", ErrStorage, err)
	}
	return g.display(orders), nil
}

// Load returns display copies of the given orders, skipping unknown ids.
func (g *Gateway) Load(ctx context.Context, ids []uuid.UUID) ([]domain.DisplayOrder, error) {
	orders, err := g.repo.GetByIDs(ctx, ids)
	if err != nil {
		g.logger.Error("load failed", zap.Int("ids", len(ids)), zap.Error(err))
		return nil, fmt.Errorf("%w: load orders: %w", ErrStorage, err)
	}
	return g.display(orders), nil
}

// UpdateStatus sets the status and stamps the edit time in one write. It
// returns the stamp so callers can update their copies without a reload.
func (g *Gateway) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.Status) (time.Time, error) {
	if !status.Valid() {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	if id == uuid.Nil {
		return time.Time{}, fmt.Errorf("%w: empty id", ErrOrderNotFound)
	}

	at := g.now()
	if err := g.repo.UpdateStatus(ctx, id, status, at); err != nil {
		g.logger.Error("status update failed", zap.Stringer("id", id), zap.String("status", string(status)), zap.Error(err))
		if errors.Is(err, repository.ErrOrderNotFound) {
			return time.Time{}, err
		}
		return time.Time{}, fmt.Errorf("%w: update status: %w", ErrStorage, err)
	}
	g.logger.Info("status updated", zap.Stringer("id", id), zap.String("status", string(status)))
	return at, nil
}

func (g *Gateway) display(orders []domain.Order) []domain.DisplayOrder {
	display := make([]domain.DisplayOrder, len(orders))
	for i, order := range orders {
		display[i] = order.ToDisplay(g.location)
	}
	return display
}
