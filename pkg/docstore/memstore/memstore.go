// Package memstore is an in-process docstore.Backend used by tests and by
// the CLI when no database is configured.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]docstore.Document
	watchers    map[string]map[int]chan struct{}
	nextWatchID int
	now         func() time.Time
	// seq breaks ties between documents created in the same instant
	seq   int64
	order map[string]int64
}

type Option func(*Store)

// WithClock overrides the time source used for CreatedAt and UpdatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		collections: make(map[string]map[string]docstore.Document),
		watchers:    make(map[string]map[int]chan struct{}),
		order:       make(map[string]int64),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ docstore.Backend = (*Store)(nil)

func (s *Store) Insert(ctx context.Context, collection string, data map[string]any) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}

	s.mu.Lock()
	now := s.now()
	doc := docstore.Document{
		ID:        uuid.New().String(),
		Data:      docstore.CloneData(data),
		CreatedAt: now,
		UpdatedAt: now,
	}
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]docstore.Document)
		s.collections[collection] = docs
	}
	docs[doc.ID] = doc
	s.seq++
	s.order[doc.ID] = s.seq
	s.mu.Unlock()

	s.notify(collection)
	return copyDoc(doc), nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return docstore.Document{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return docstore.Document{}, docstore.ErrNotFound
	}
	return copyDoc(doc), nil
}

func (s *Store) Query(ctx context.Context, collection string, q docstore.Query) ([]docstore.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]docstore.Document, 0, len(s.collections[collection]))
	for _, doc := range s.collections[collection] {
		if docstore.Matches(doc.Data, q.Filters) {
			result = append(result, copyDoc(doc))
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return s.order[result[i].ID] > s.order[result[j].ID]
	})

	if q.Limit > 0 && len(result) > q.Limit {
		result = result[:q.Limit]
	}
	return result, nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	doc, ok := s.collections[collection][id]
	if !ok {
		s.mu.Unlock()
		return docstore.ErrNotFound
	}
	data := docstore.CloneData(doc.Data)
	for k, v := range docstore.CloneData(fields) {
		data[k] = v
	}
	doc.Data = data
	doc.UpdatedAt = s.now()
	s.collections[collection][id] = doc
	s.mu.Unlock()

	s.notify(collection)
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	delete(s.order, id)
	s.mu.Unlock()

	if existed {
		s.notify(collection)
	}
	return nil
}

func (s *Store) Watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	id := s.nextWatchID
	s.nextWatchID++
	if s.watchers[collection] == nil {
		s.watchers[collection] = make(map[int]chan struct{})
	}
	s.watchers[collection][id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers[collection], id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}

// Close is a no-op; memstore holds no external resources
func (s *Store) Close() {}

// notify must be called without s.mu held
func (s *Store) notify(collection string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.watchers[collection] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func copyDoc(doc docstore.Document) docstore.Document {
	doc.Data = docstore.CloneData(doc.Data)
	return doc
}
