// Package docstore defines the contract of the remote document store that
// backs every DevDonations collection. Documents are schemaless JSON objects
// grouped into named collections; the store owns identifiers and timestamps.
package docstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a document does not exist in a collection
var ErrNotFound = errors.New("document not found")

// Document is a single record in a collection
type Document struct {
	ID        string
	Data      map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Filter is an equality condition on a top-level document field
type Filter struct {
	Field string
	Value any
}

// Query selects documents from a collection. Results are always ordered by
// creation time, newest first. A zero Limit returns every match.
type Query struct {
	Filters []Filter
	Limit   int
}

// Backend is implemented by every document store (postgres, memstore)
type Backend interface {
	// Insert stores a new document and assigns its ID and timestamps
	Insert(ctx context.Context, collection string, data map[string]any) (Document, error)
	// Get returns ErrNotFound when the document is missing
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, q Query) ([]Document, error)
	// Merge overwrites the given top-level fields and bumps UpdatedAt.
	// Returns ErrNotFound when the document is missing.
	Merge(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes the document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error
	// Watch signals after every committed change to the collection until ctx
	// is done, at which point the channel is closed. Signals are coalesced:
	// a receiver that falls behind sees one pending signal, never a backlog.
	Watch(ctx context.Context, collection string) (<-chan struct{}, error)
	Close()
}

// Matches reports whether data satisfies every filter
func Matches(data map[string]any, filters []Filter) bool {
	for _, f := range filters {
		v, ok := data[f.Field]
		if !ok || !equalValues(v, f.Value) {
			return false
		}
	}
	return true
}

// equalValues compares a stored JSON value against a filter value. Stored
// numbers come back from JSON as float64 so numeric filters are normalised.
func equalValues(stored, want any) bool {
	if sf, ok := toFloat(stored); ok {
		if wf, ok := toFloat(want); ok {
			return sf == wf
		}
		return false
	}
	switch s := stored.(type) {
	case string:
		switch w := want.(type) {
		case string:
			return s == w
		case interface{ String() string }:
			return s == w.String()
		}
		return false
	case bool:
		w, ok := want.(bool)
		return ok && s == w
	case nil:
		return want == nil
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	}
	return 0, false
}

// CloneData deep-copies a JSON-shaped map so callers never share nested
// slices or maps with the store
func CloneData(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneData(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return t
	}
}
