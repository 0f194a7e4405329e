package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/core/status"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
)

// ChangeStatus moves a document to a new status after checking the
// collection's transition graph against the stored document
func (s *Services) ChangeStatus(ctx context.Context, collection, id, to string) error {
	graph, ok := status.ForCollection(collection)
	if !ok {
		return fmt.Errorf("%q has no status: %w", collection, ErrUnknownCollection)
	}

	var (
		from string
		err  error
	)
	switch collection {
	case db.DonationsCollection:
		from, err = currentStatus(ctx, s.stores.Donations, id, func(d db.Donation) string { return string(d.Status) })
	case db.VolunteersCollection:
		from, err = currentStatus(ctx, s.stores.Volunteers, id, func(v db.Volunteer) string { return string(v.Status) })
	case db.EventsCollection:
		from, err = currentStatus(ctx, s.stores.Events, id, func(e db.Event) string { return string(e.Status) })
	case db.BlogPostsCollection:
		return s.changePostStatus(ctx, id, db.PostStatus(to))
	}
	if err != nil {
		return err
	}

	if err := graph.Check(from, to); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	st, err := s.storeFor(collection)
	if err != nil {
		return err
	}
	if err := st.Mutate(ctx, id, db.Fields{"status": to}); err != nil {
		return fmt.Errorf("failed to update %s status: %w", graph.Entity(), err)
	}

	s.logger.Info("Status changed",
		zap.String("collection", collection),
		zap.String("id", id),
		zap.String("from", from),
		zap.String("to", to))
	return nil
}

func currentStatus[T db.Record](ctx context.Context, st *store.Store[T], id string, get func(T) string) (string, error) {
	item, err := find(ctx, st, id)
	if err != nil {
		return "", err
	}
	return get(item), nil
}
