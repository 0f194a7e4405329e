package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

var (
	// ErrNotFound is returned by Get and Update for missing documents
	ErrNotFound = docstore.ErrNotFound
	// ErrSubscriptionUnsupported is returned by Subscribe on collections
	// without live updates
	ErrSubscriptionUnsupported = errors.New("collection does not support live subscriptions")
	// ErrFieldNotUpdatable is returned when an update names a field outside
	// the collection's updatable set
	ErrFieldNotUpdatable = errors.New("field is not updatable")
)

// Metadata fields owned by the document store rather than the entity data
var metadataFields = []string{"id", "createdAt", "updatedAt"}

// Collection performs CRUD against one named document collection and maps
// documents to T
type Collection[T Record] struct {
	name      string
	backend   docstore.Backend
	logger    *zap.Logger
	live      bool
	updatable map[string]bool
	defaults  func(*T, time.Time)
	now       func() time.Time

	observersMu sync.RWMutex
	observers   []MutationObserver
}

// CollectionOption configures a Collection
type CollectionOption[T Record] func(*Collection[T])

// WithLive enables Subscribe on the collection
func WithLive[T Record]() CollectionOption[T] {
	return func(c *Collection[T]) { c.live = true }
}

// WithUpdatable restricts Update to the named fields
func WithUpdatable[T Record](fields ...string) CollectionOption[T] {
	return func(c *Collection[T]) {
		for _, f := range fields {
			c.updatable[f] = true
		}
	}
}

// WithDefaults sets a hook applied to every entity before it is created
func WithDefaults[T Record](fn func(*T, time.Time)) CollectionOption[T] {
	return func(c *Collection[T]) { c.defaults = fn }
}

// NewCollection creates an accessor for the named collection
func NewCollection[T Record](name string, backend docstore.Backend, logger *zap.Logger, opts ...CollectionOption[T]) *Collection[T] {
	c := &Collection[T]{
		name:      name,
		backend:   backend,
		logger:    logger,
		updatable: make(map[string]bool),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Live reports whether Subscribe is supported
func (c *Collection[T]) Live() bool {
	return c.live
}

// AddObserver registers an observer notified after every successful mutation
func (c *Collection[T]) AddObserver(o MutationObserver) {
	c.observersMu.Lock()
	defer c.observersMu.Unlock()
	c.observers = append(c.observers, o)
}

// Create inserts a new document and returns its assigned identifier
func (c *Collection[T]) Create(ctx context.Context, item T) (string, error) {
	if c.defaults != nil {
		c.defaults(&item, c.now())
	}

	data, err := encode(item)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", c.name, err)
	}

	doc, err := c.backend.Insert(ctx, c.name, data)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", c.name, err)
	}

	c.logger.Debug("Created document", zap.String("collection", c.name), zap.String("id", doc.ID))
	c.notify(Mutation{Collection: c.name, Op: OpCreate, ID: doc.ID, Fields: data, At: doc.CreatedAt})
	return doc.ID, nil
}

// Get retrieves a single document by identifier
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := c.backend.Get(ctx, c.name, id)
	if err != nil {
		return zero, fmt.Errorf("failed to get %s %s: %w", c.name, id, err)
	}
	return decode[T](doc)
}

// List retrieves every document matching the filters, newest first. On
// failure it returns an empty slice along with the error.
func (c *Collection[T]) List(ctx context.Context, filters ...docstore.Filter) ([]T, error) {
	return c.query(ctx, docstore.Query{Filters: filters})
}

// First returns the newest document matching the filters
func (c *Collection[T]) First(ctx context.Context, filters ...docstore.Filter) (T, error) {
	var zero T
	items, err := c.query(ctx, docstore.Query{Filters: filters, Limit: 1})
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, fmt.Errorf("failed to find %s: %w", c.name, ErrNotFound)
	}
	return items[0], nil
}

func (c *Collection[T]) query(ctx context.Context, q docstore.Query) ([]T, error) {
	docs, err := c.backend.Query(ctx, c.name, q)
	if err != nil {
		return []T{}, fmt.Errorf("failed to list %s: %w", c.name, err)
	}

	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		item, err := decode[T](doc)
		if err != nil {
			return []T{}, fmt.Errorf("failed to decode %s %s: %w", c.name, doc.ID, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// Update merges the given fields onto an existing document. There is no
// version check; the last writer wins.
func (c *Collection[T]) Update(ctx context.Context, id string, fields Fields) error {
	if len(fields) == 0 {
		return nil
	}
	for name := range fields {
		if !c.updatable[name] {
			return fmt.Errorf("%s.%s: %w", c.name, name, ErrFieldNotUpdatable)
		}
	}

	normalised, err := normaliseFields(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s update: %w", c.name, err)
	}

	if err := c.backend.Merge(ctx, c.name, id, normalised); err != nil {
		return fmt.Errorf("failed to update %s %s: %w", c.name, id, err)
	}

	c.logger.Debug("Updated document", zap.String("collection", c.name), zap.String("id", id))
	c.notify(Mutation{Collection: c.name, Op: OpUpdate, ID: id, Fields: normalised, At: c.now()})
	return nil
}

// Delete removes a document unconditionally
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.backend.Delete(ctx, c.name, id); err != nil {
		return fmt.Errorf("failed to delete %s %s: %w", c.name, id, err)
	}

	c.logger.Debug("Deleted document", zap.String("collection", c.name), zap.String("id", id))
	c.notify(Mutation{Collection: c.name, Op: OpDelete, ID: id, At: c.now()})
	return nil
}

func (c *Collection[T]) notify(m Mutation) {
	c.observersMu.RLock()
	defer c.observersMu.RUnlock()
	for _, o := range c.observers {
		o.ObserveMutation(m)
	}
}

// encode converts an entity into document data without the metadata fields
func encode[T any](item T) (map[string]any, error) {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	for _, f := range metadataFields {
		delete(data, f)
	}
	return data, nil
}

// decode converts a document into an entity, filling in the metadata fields
func decode[T any](doc docstore.Document) (T, error) {
	var item T
	data := docstore.CloneData(doc.Data)
	data["id"] = doc.ID
	data["createdAt"] = doc.CreatedAt.Format(time.RFC3339Nano)
	data["updatedAt"] = doc.UpdatedAt.Format(time.RFC3339Nano)

	raw, err := json.Marshal(data)
	if err != nil {
		return item, err
	}
	if err := json.Unmarshal(raw, &item); err != nil {
		return item, err
	}
	return item, nil
}

func normaliseFields(fields Fields) (map[string]any, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
