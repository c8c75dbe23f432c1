// Package view holds the display state shown to users between reloads.
//
// A State is never modified in place. Every operation returns a new State with
// a higher Version, and the Store publishes states with compare-and-swap on that
// version so an edit made against an outdated state is detected.
package view

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/rpattn/consulta/internal/domain"

	"github.com/google/uuid"
)

// ErrStale is returned when a caller's version no longer matches the published state.
var ErrStale = errors.New("view state is stale")

// State is one published snapshot of the display list.
type State struct {
	Version  uint64                `json:"version"`
	Since    time.Time             `json:"since"`
	LoadedAt time.Time             `json:"loadedAt"`
	Orders   []domain.DisplayOrder `json:"orders"`
}

// Reload returns a state holding orders fetched for the window starting at since.
func (s State) Reload(since, loadedAt time.Time, orders []domain.DisplayOrder) State {
	return State{
		Version:  s.Version + 1,
		Since:    since,
		LoadedAt: loadedAt,
		Orders:   slices.Clone(nonNil(orders)),
	}
}

// Find returns the display order with the given id.
func (s State) Find(id uuid.UUID) (domain.DisplayOrder, bool) {
	for _, order := range s.Orders {
		if order.ID == id {
			return order, true
		}
	}
	return domain.DisplayOrder{}, false
}

// WithStatus returns a state where the order id carries status stamped at
// the given display time. ok is false when the id is not in the state.
func (s State) WithStatus(id uuid.UUID, status domain.Status, stamp string) (next State, ok bool) {
	current, found := s.Find(id)
	if !found {
		return s, false
	}
	current.Status = status
	current.StatusUpdatedAt = &stamp
	return s.WithOrder(current)
}

// WithOrder returns a state where the entry with order.ID is replaced by order.
func (s State) WithOrder(order domain.DisplayOrder) (State, bool) {
	idx := slices.IndexFunc(s.Orders, func(o domain.DisplayOrder) bool { return o.ID == order.ID })
	if idx < 0 {
		return s, false
	}
	orders := slices.Clone(s.Orders)
	orders[idx] = order
	return State{
		Version:  s.Version + 1,
		Since:    s.Since,
		LoadedAt: s.LoadedAt,
		Orders:   orders,
	}, true
}

// Store publishes the current State.
type Store struct {
	mu      sync.RWMutex
	current State
}

// NewStore returns a store holding an empty state at version 0.
func NewStore() *Store {
	return &Store{current: State{Orders: []domain.DisplayOrder{}}}
}

// Current returns the published state.
func (s *Store) Current() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Check reports ErrStale when expected differs from the published version.
func (s *Store) Check(expected uint64) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return checkVersion(s.current.Version, expected)
}

// CompareAndSwap publishes next only if the current version is still expected.
func (s *Store) CompareAndSwap(expected uint64, next State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkVersion(s.current.Version, expected); err != nil {
		return err
	}
	if next.Version <= s.current.Version {
		return fmt.Errorf("view version must advance past %d, got %d", s.current.Version, next.Version)
	}
	s.current = next
	return nil
}

// Apply derives the next state from the latest published one and publishes it.
func (s *Store) Apply(fn func(State) State) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := fn(s.current)
	if next.Version > s.current.Version {
		s.current = next
	}
	return s.current
}

// ApplyAt is Apply guarded by the version the caller last saw. The version
// check and the publish happen under one lock; on ErrStale nothing changes.
func (s *Store) ApplyAt(expected uint64, fn func(State) State) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := checkVersion(s.current.Version, expected); err != nil {
		return s.current, err
	}
	next := fn(s.current)
	if next.Version > s.current.Version {
		s.current = next
	}
	return s.current, nil
}

// Reload publishes a freshly fetched list, replacing whatever was shown.
func (s *Store) Reload(since, loadedAt time.Time, orders []domain.DisplayOrder) State {
	return s.Apply(func(current State) State {
		return current.Reload(since, loadedAt, orders)
	})
}

func checkVersion(current, expected uint64) error {
	if current != expected {
		return fmt.Errorf("%w: have version %d, caller saw %d", ErrStale, current, expected)
	}
	return nil
}

func nonNil(orders []domain.DisplayOrder) []domain.DisplayOrder {
	if orders == nil {
		return []domain.DisplayOrder{}
	}
	return orders
}
