package store

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// Stores holds the one shared store per collection. It is built at startup
// and closed at shutdown.
type Stores struct {
	Donations  *Store[db.Donation]
	Volunteers *Store[db.Volunteer]
	Events     *Store[db.Event]
	Locations  *Store[db.DropoffLocation]
	BlogPosts  *Store[db.BlogPost]
	Analytics  *Store[db.AnalyticsEvent]
}

// NewStores creates a store for every collection in database
func NewStores(database *db.DB, logger *zap.Logger, opts ...Option) *Stores {
	return &Stores{
		Donations:  New[db.Donation](database.Donations, logger, opts...),
		Volunteers: New[db.Volunteer](database.Volunteers, logger, opts...),
		Events:     New[db.Event](database.Events, logger, opts...),
		Locations:  New[db.DropoffLocation](database.Locations, logger, opts...),
		BlogPosts:  New[db.BlogPost](database.BlogPosts, logger, opts...),
		Analytics:  New[db.AnalyticsEvent](database.Analytics, logger, opts...),
	}
}

// FetchAll loads every store concurrently and returns the first error
func (s *Stores) FetchAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.Donations.Fetch(ctx) })
	g.Go(func() error { return s.Volunteers.Fetch(ctx) })
	g.Go(func() error { return s.Events.Fetch(ctx) })
	g.Go(func() error { return s.Locations.Fetch(ctx) })
	g.Go(func() error { return s.BlogPosts.Fetch(ctx) })
	g.Go(func() error { return s.Analytics.Fetch(ctx) })
	return g.Wait()
}

// SubscribeLive holds a live listener on every collection that supports one
// (donations, volunteers, events). The returned func releases them all.
func (s *Stores) SubscribeLive() (func(), error) {
	var releases []func()
	release := func() {
		for _, r := range releases {
			r()
		}
	}

	for _, subscribe := range []func() (func(), error){
		s.Donations.SubscribeLive,
		s.Volunteers.SubscribeLive,
		s.Events.SubscribeLive,
	} {
		r, err := subscribe()
		if err != nil {
			release()
			return nil, err
		}
		releases = append(releases, r)
	}
	return release, nil
}

// Close tears down every live listener
func (s *Stores) Close() {
	s.Donations.Close()
	s.Volunteers.Close()
	s.Events.Close()
	s.Locations.Close()
	s.BlogPosts.Close()
	s.Analytics.Close()
}
