// Package services implements the operations that span more than one
// collection or need checks beyond a plain accessor write: validation,
// status transitions, volunteer assignment, receipts and image uploads.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/clients/gmailclient"
	"github.com/shivamksharma/devdonations/pkg/clients/mediaclient"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
)

var (
	ErrUnknownCollection    = errors.New("unknown collection")
	ErrStatusNotPatchable   = errors.New("status can only be changed through the status endpoint")
	ErrVolunteerUnavailable = errors.New("volunteer is not approved or active")
	ErrMediaDisabled        = errors.New("image uploads are not configured")
	ErrSlugTaken            = errors.New("slug is already used by another post")
)

// Services holds the shared stores and the optional outbound clients
type Services struct {
	stores *store.Stores
	mailer gmailclient.Mailer
	media  mediaclient.Storage
	logger *zap.Logger
	now    func() time.Time
}

type Option func(*Services)

// WithMailer enables donation receipts
func WithMailer(m gmailclient.Mailer) Option {
	return func(s *Services) { s.mailer = m }
}

// WithMedia enables featured image uploads
func WithMedia(m mediaclient.Storage) Option {
	return func(s *Services) { s.media = m }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Services) { s.now = now }
}

func New(stores *store.Stores, logger *zap.Logger, opts ...Option) *Services {
	s := &Services{
		stores: stores,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Stores exposes the shared stores for read-only views
func (s *Services) Stores() *store.Stores {
	return s.stores
}

// mutableStore is the part of Store[T] that does not depend on T
type mutableStore interface {
	Name() string
	Mutate(ctx context.Context, id string, fields db.Fields) error
	Remove(ctx context.Context, id string) error
}

func (s *Services) storeFor(collection string) (mutableStore, error) {
	switch collection {
	case db.DonationsCollection:
		return s.stores.Donations, nil
	case db.VolunteersCollection:
		return s.stores.Volunteers, nil
	case db.EventsCollection:
		return s.stores.Events, nil
	case db.LocationsCollection:
		return s.stores.Locations, nil
	case db.BlogPostsCollection:
		return s.stores.BlogPosts, nil
	}
	return nil, fmt.Errorf("%q: %w", collection, ErrUnknownCollection)
}

// find reads the current remote version of an item. Decisions such as
// status transitions must not rest on a snapshot another writer has outdated.
func find[T db.Record](ctx context.Context, st *store.Store[T], id string) (T, error) {
	return st.Load(ctx, id)
}

// add validates an item and creates it through its store
func add[T db.Record](ctx context.Context, st *store.Store[T], item T) (string, error) {
	if err := Validate(item); err != nil {
		return "", err
	}
	return st.Add(ctx, item)
}

// Update applies an admin patch to any collection. Status changes are
// rejected here so that every one of them passes the transition graph.
func (s *Services) Update(ctx context.Context, collection, id string, fields db.Fields) error {
	if _, ok := fields["status"]; ok {
		return ErrStatusNotPatchable
	}
	st, err := s.storeFor(collection)
	if err != nil {
		return err
	}
	return st.Mutate(ctx, id, fields)
}

// Delete removes a document. Deleting a volunteer clears their assignments
// first.
func (s *Services) Delete(ctx context.Context, collection, id string) error {
	if collection == db.VolunteersCollection {
		_, err := s.RemoveVolunteer(ctx, id)
		return err
	}
	st, err := s.storeFor(collection)
	if err != nil {
		return err
	}
	return st.Remove(ctx, id)
}

func (s *Services) CreateEvent(ctx context.Context, e db.Event) (string, error) {
	return add(ctx, s.stores.Events, e)
}

func (s *Services) CreateLocation(ctx context.Context, l db.DropoffLocation) (string, error) {
	return add(ctx, s.stores.Locations, l)
}
