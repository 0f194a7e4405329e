package db

import (
	"context"
	"time"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

// Op names the kind of mutation applied to a document
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Mutation describes a successful write to a collection
type Mutation struct {
	Collection string
	Op         Op
	ID         string
	Fields     map[string]any
	At         time.Time
}

// MutationObserver is notified after every successful mutation. Observers
// are called synchronously and must not block.
type MutationObserver interface {
	ObserveMutation(m Mutation)
}

// Accessor is the set of operations shared by every collection
type Accessor[T Record] interface {
	Name() string
	Live() bool
	Create(ctx context.Context, item T) (string, error)
	Get(ctx context.Context, id string) (T, error)
	List(ctx context.Context, filters ...docstore.Filter) ([]T, error)
	Update(ctx context.Context, id string, fields Fields) error
	Delete(ctx context.Context, id string) error
	Subscribe(cb func([]T)) (func(), error)
}

var (
	_ Accessor[Donation]        = (*Collection[Donation])(nil)
	_ Accessor[Volunteer]       = (*Collection[Volunteer])(nil)
	_ Accessor[Event]           = (*Collection[Event])(nil)
	_ Accessor[DropoffLocation] = (*Collection[DropoffLocation])(nil)
	_ Accessor[BlogPost]        = (*Collection[BlogPost])(nil)
	_ Accessor[AnalyticsEvent]  = (*Collection[AnalyticsEvent])(nil)
	_ Accessor[UserProfile]     = (*Collection[UserProfile])(nil)
)
