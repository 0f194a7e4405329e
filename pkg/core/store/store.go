// Package store keeps a process-wide cached snapshot of each collection and
// brokers every write to it through the collection accessor.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/metrics"
)

// State is the load state of a store
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateError   State = "error"
)

// Policy decides when a mutation is applied to the local snapshot
type Policy int

const (
	// ConfirmThenApply applies a change locally only after the accessor call
	// succeeded. A failure leaves the snapshot untouched.
	ConfirmThenApply Policy = iota
	// Optimistic applies a change immediately and rolls it back if the
	// accessor call fails.
	Optimistic
)

func (p Policy) String() string {
	switch p {
	case Optimistic:
		return "optimistic"
	default:
		return "confirm-then-apply"
	}
}

// ParsePolicy converts a configuration value into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "confirm-then-apply":
		return ConfirmThenApply, nil
	case "optimistic":
		return Optimistic, nil
	}
	return ConfirmThenApply, fmt.Errorf("unknown store policy %q", s)
}

// Store holds the last known snapshot of one collection
type Store[T db.Record] struct {
	accessor db.Accessor[T]
	logger   *zap.Logger
	policy   Policy
	cache    SnapshotCache
	name     string

	mu       sync.RWMutex
	snapshot []T
	state    State
	err      error
	stale    bool
	// generation counts wholesale replacements
	generation uint64

	listenersMu  sync.Mutex
	listeners    map[int]func()
	nextListener int

	liveMu   sync.Mutex
	liveRefs int
	liveStop func()
}

// Option configures a Store
type Option func(*options)

type options struct {
	policy Policy
	cache  SnapshotCache
}

// WithPolicy sets the mutation policy. The default is ConfirmThenApply.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithCache persists every snapshot and restores the last one on creation
func WithCache(c SnapshotCache) Option {
	return func(o *options) { o.cache = c }
}

// New creates a store over an accessor. When a cache holds a previous
// snapshot it is visible immediately and Stale reports true until the first
// fetch or subscription delivery.
func New[T db.Record](accessor db.Accessor[T], logger *zap.Logger, opts ...Option) *Store[T] {
	o := options{policy: ConfirmThenApply}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Store[T]{
		accessor:  accessor,
		logger:    logger.With(zap.String("collection", accessor.Name())),
		policy:    o.policy,
		cache:     o.cache,
		name:      accessor.Name(),
		snapshot:  []T{},
		state:     StateIdle,
		listeners: make(map[int]func()),
	}

	if s.cache != nil {
		var cached []T
		found, err := s.cache.Load(s.name, &cached)
		switch {
		case err != nil:
			s.logger.Warn("Failed to load cached snapshot", zap.Error(err))
		case found:
			s.snapshot = cached
			s.stale = true
			s.logger.Debug("Loaded cached snapshot", zap.Int("count", len(cached)))
		}
	}
	metrics.StoreSnapshotItems.WithLabelValues(s.name).Set(float64(len(s.snapshot)))

	return s
}

// Name returns the collection name
func (s *Store[T]) Name() string {
	return s.name
}

// Policy returns the mutation policy
func (s *Store[T]) Policy() Policy {
	return s.policy
}

// Snapshot returns a copy of the current items, newest first. Items must be
// treated as read-only.
func (s *Store[T]) Snapshot() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]T, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Find returns the cached item with the given identifier
func (s *Store[T]) Find(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.snapshot {
		if item.GetID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (s *Store[T]) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Err returns the error recorded by the last failed operation
func (s *Store[T]) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// Stale reports whether the snapshot came from the cache and has not been
// refreshed yet
func (s *Store[T]) Stale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stale
}

// Current returns the snapshot, fetching first unless a live listener keeps
// a loaded snapshot in sync with the remote collection
func (s *Store[T]) Current(ctx context.Context) ([]T, error) {
	if !s.Live() || s.State() != StateReady || s.Stale() {
		if err := s.Fetch(ctx); err != nil {
			return nil, err
		}
	}
	return s.Snapshot(), nil
}

// Load reads one item through the accessor and folds it into a loaded
// snapshot. An item missing remotely is dropped from the snapshot.
func (s *Store[T]) Load(ctx context.Context, id string) (T, error) {
	item, err := s.accessor.Get(ctx, id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) && s.State() == StateReady {
			s.modify(func(current []T) []T { return without(current, id) })
		}
		return item, err
	}
	if s.State() == StateReady {
		s.modify(func(current []T) []T { return upserted(current, item) })
	}
	return item, nil
}

// Fetch reloads the whole collection. On failure the previous snapshot is
// kept and the error recorded.
func (s *Store[T]) Fetch(ctx context.Context) error {
	metrics.StoreFetchesTotal.WithLabelValues(s.name).Inc()

	s.mu.Lock()
	s.state = StateLoading
	s.mu.Unlock()
	s.notify()

	items, err := s.accessor.List(ctx)
	if err != nil {
		metrics.StoreOperationErrorsTotal.WithLabelValues(s.name, "fetch").Inc()
		s.mu.Lock()
		s.state = StateError
		s.err = err
		s.mu.Unlock()
		s.notify()
		s.logger.Warn("Fetch failed, keeping previous snapshot", zap.Error(err))
		return err
	}

	s.replace(items)
	return nil
}

// replace swaps the snapshot wholesale and marks the store ready
func (s *Store[T]) replace(items []T) {
	if items == nil {
		items = []T{}
	}

	s.mu.Lock()
	s.snapshot = items
	s.state = StateReady
	s.err = nil
	s.stale = false
	s.generation++
	s.mu.Unlock()

	s.afterChange(items)
}

func (s *Store[T]) afterChange(items []T) {
	metrics.StoreSnapshotItems.WithLabelValues(s.name).Set(float64(len(items)))
	if s.cache != nil {
		if err := s.cache.Save(s.name, items); err != nil {
			s.logger.Warn("Failed to persist snapshot", zap.Error(err))
		}
	}
	s.notify()
}

func (s *Store[T]) recordError(op string, err error) {
	metrics.StoreOperationErrorsTotal.WithLabelValues(s.name, op).Inc()
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.notify()
	s.logger.Warn("Store operation failed", zap.String("operation", op), zap.Error(err))
}

// OnChange registers fn to run after every state or snapshot change. The
// returned func removes it.
func (s *Store[T]) OnChange(fn func()) func() {
	s.listenersMu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.listenersMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.listenersMu.Lock()
			delete(s.listeners, id)
			s.listenersMu.Unlock()
		})
	}
}

func (s *Store[T]) notify() {
	s.listenersMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenersMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Add creates an item through the accessor and returns its identifier
func (s *Store[T]) Add(ctx context.Context, item T) (string, error) {
	if s.policy == Optimistic {
		return s.addOptimistic(ctx, item)
	}

	id, err := s.accessor.Create(ctx, item)
	if err != nil {
		s.recordError("add", err)
		return "", err
	}

	created := s.loadCreated(ctx, id, item)
	s.modify(func(current []T) []T { return upserted(current, created) })
	return id, nil
}

func (s *Store[T]) addOptimistic(ctx context.Context, item T) (string, error) {
	tempID := "local-" + uuid.New().String()
	placeholder, err := withID(item, tempID)
	if err != nil {
		return "", fmt.Errorf("failed to stage %s: %w", s.name, err)
	}
	s.modify(func(current []T) []T { return prepend(current, placeholder) })

	id, err := s.accessor.Create(ctx, item)
	if err != nil {
		s.modify(func(current []T) []T { return without(current, tempID) })
		s.recordError("add", err)
		return "", err
	}

	created := s.loadCreated(ctx, id, item)
	s.modify(func(current []T) []T { return upserted(without(current, tempID), created) })
	return id, nil
}

// loadCreated reads back a newly created item so the snapshot carries the
// store-assigned fields
func (s *Store[T]) loadCreated(ctx context.Context, id string, fallback T) T {
	created, err := s.accessor.Get(ctx, id)
	if err == nil {
		return created
	}
	s.logger.Debug("Failed to read back created item", zap.String("id", id), zap.Error(err))
	withAssigned, err := withID(fallback, id)
	if err != nil {
		return fallback
	}
	return withAssigned
}

// Mutate applies a partial update through the accessor
func (s *Store[T]) Mutate(ctx context.Context, id string, fields db.Fields) error {
	if s.policy == Optimistic {
		previous, index, gen := s.staged(id)
		s.modify(func(current []T) []T { return s.patched(current, id, fields) })

		if err := s.accessor.Update(ctx, id, fields); err != nil {
			if index >= 0 {
				s.revert(gen, func(current []T) []T { return replaced(current, id, previous) })
			}
			s.recordError("mutate", err)
			return err
		}
		return nil
	}

	if err := s.accessor.Update(ctx, id, fields); err != nil {
		s.recordError("mutate", err)
		return err
	}
	s.modify(func(current []T) []T { return s.patched(current, id, fields) })
	return nil
}

// Remove deletes an item through the accessor
func (s *Store[T]) Remove(ctx context.Context, id string) error {
	if s.policy == Optimistic {
		previous, index, gen := s.staged(id)
		s.modify(func(current []T) []T { return without(current, id) })

		if err := s.accessor.Delete(ctx, id); err != nil {
			if index >= 0 {
				s.revert(gen, func(current []T) []T { return inserted(current, index, previous) })
			}
			s.recordError("remove", err)
			return err
		}
		return nil
	}

	if err := s.accessor.Delete(ctx, id); err != nil {
		s.recordError("remove", err)
		return err
	}
	s.modify(func(current []T) []T { return without(current, id) })
	return nil
}

// staged returns the item about to change optimistically, its position (-1
// when absent) and the current generation
func (s *Store[T]) staged(id string) (T, int, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i, item := range s.snapshot {
		if item.GetID() == id {
			return item, i, s.generation
		}
	}
	var zero T
	return zero, -1, s.generation
}

// revert undoes one optimistic change. A wholesale replacement since gen
// already reflects the remote state and is kept as is.
func (s *Store[T]) revert(gen uint64, fn func(current []T) []T) {
	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		return
	}
	items := fn(s.snapshot)
	s.snapshot = items
	s.mu.Unlock()
	s.afterChange(items)
}

// modify replaces the snapshot with fn applied to it under a single lock
func (s *Store[T]) modify(fn func(current []T) []T) {
	s.mu.Lock()
	items := fn(s.snapshot)
	s.snapshot = items
	s.mu.Unlock()
	s.afterChange(items)
}

// patched returns a copy of items with fields merged into the matching item.
// A patch that cannot be applied leaves the item as it was.
func (s *Store[T]) patched(items []T, id string, fields db.Fields) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i, item := range out {
		if item.GetID() != id {
			continue
		}
		updated, err := applyPatch(item, fields)
		if err != nil {
			s.logger.Warn("Failed to apply update locally", zap.String("id", id), zap.Error(err))
			return out
		}
		out[i] = updated
		break
	}
	return out
}

// upserted replaces the item with the same identifier, or prepends it
func upserted[T db.Record](items []T, item T) []T {
	for _, existing := range items {
		if existing.GetID() == item.GetID() {
			return replaced(items, item.GetID(), item)
		}
	}
	return prepend(items, item)
}

func inserted[T db.Record](items []T, index int, item T) []T {
	for _, existing := range items {
		if existing.GetID() == item.GetID() {
			return items
		}
	}
	if index > len(items) {
		index = len(items)
	}
	out := make([]T, 0, len(items)+1)
	out = append(out, items[:index]...)
	out = append(out, item)
	return append(out, items[index:]...)
}

func prepend[T db.Record](items []T, item T) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	return append(out, items...)
}

func without[T db.Record](items []T, id string) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if item.GetID() != id {
			out = append(out, item)
		}
	}
	return out
}

func replaced[T db.Record](items []T, id string, replacement T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		if item.GetID() == id {
			out[i] = replacement
		} else {
			out[i] = item
		}
	}
	return out
}
