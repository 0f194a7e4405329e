package db

import (
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

// DB groups the accessor for every collection over one backend
type DB struct {
	Donations  *Donations
	Volunteers *Volunteers
	Events     *Events
	Locations  *Locations
	BlogPosts  *BlogPosts
	Analytics  *Analytics
	Users      *Users

	backend docstore.Backend
}

// New creates the accessors. appID tags analytics events.
func New(backend docstore.Backend, logger *zap.Logger, appID string) *DB {
	return &DB{
		Donations:  NewDonations(backend, logger),
		Volunteers: NewVolunteers(backend, logger),
		Events:     NewEvents(backend, logger),
		Locations:  NewLocations(backend, logger),
		BlogPosts:  NewBlogPosts(backend, logger),
		Analytics:  NewAnalytics(backend, logger, appID),
		Users:      NewUsers(backend, logger),
		backend:    backend,
	}
}

// AddObserver registers an observer on every collection
func (d *DB) AddObserver(o MutationObserver) {
	d.Donations.AddObserver(o)
	d.Volunteers.AddObserver(o)
	d.Events.AddObserver(o)
	d.Locations.AddObserver(o)
	d.BlogPosts.AddObserver(o)
	d.Analytics.AddObserver(o)
	d.Users.AddObserver(o)
}

// Close releases the backend
func (d *DB) Close() {
	d.backend.Close()
}
