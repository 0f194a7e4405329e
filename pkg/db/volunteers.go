package db

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const VolunteersCollection = "volunteers"

// Volunteers accesses the volunteers collection
type Volunteers struct {
	*Collection[Volunteer]
}

func NewVolunteers(backend docstore.Backend, logger *zap.Logger) *Volunteers {
	return &Volunteers{NewCollection(VolunteersCollection, backend, logger,
		WithLive[Volunteer](),
		WithUpdatable[Volunteer]("name", "email", "phone", "skills", "availability", "status", "completedTasks", "rating"),
		WithDefaults(func(v *Volunteer, now time.Time) {
			if v.Status == "" {
				v.Status = VolunteerPending
			}
			if v.JoinedAt.IsZero() {
				v.JoinedAt = now
			}
			if v.Skills == nil {
				v.Skills = []string{}
			}
			if v.Availability == nil {
				v.Availability = []string{}
			}
		}),
	)}
}

// ListByStatus retrieves volunteers with the given status
func (v *Volunteers) ListByStatus(ctx context.Context, status VolunteerStatus) ([]Volunteer, error) {
	return v.List(ctx, docstore.Filter{Field: "status", Value: string(status)})
}
