package db

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/docstore"
)

const EventsCollection = "events"

// Events accesses the events collection
type Events struct {
	*Collection[Event]
}

func NewEvents(backend docstore.Backend, logger *zap.Logger) *Events {
	return &Events{NewCollection(EventsCollection, backend, logger,
		WithLive[Event](),
		WithUpdatable[Event]("title", "description", "type", "status", "startDate", "endDate", "location",
			"registeredParticipants", "maxParticipants", "organizer", "recurrence", "imageUrl"),
		WithDefaults(func(e *Event, _ time.Time) {
			if e.Status == "" {
				e.Status = EventDraft
			}
		}),
	)}
}

// ListUpcoming retrieves published events that have not ended, soonest first
func (e *Events) ListUpcoming(ctx context.Context, now time.Time) ([]Event, error) {
	events, err := e.List(ctx, docstore.Filter{Field: "status", Value: string(EventPublished)})
	if err != nil {
		return events, err
	}

	upcoming := make([]Event, 0, len(events))
	for _, ev := range events {
		if !ev.EndDate.Before(now) {
			upcoming = append(upcoming, ev)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].StartDate.Before(upcoming[j].StartDate)
	})
	return upcoming, nil
}
