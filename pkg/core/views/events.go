package views

import (
	"fmt"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/shivamksharma/devdonations/pkg/db"
)

// Capacity describes how full an event is. Remaining is nil when the event
// has no participant limit.
type Capacity struct {
	Registered int  `json:"registered"`
	Max        *int `json:"max,omitempty"`
	Remaining  *int `json:"remaining,omitempty"`
	Full       bool `json:"full"`
}

func EventCapacity(e db.Event) Capacity {
	c := Capacity{Registered: e.RegisteredParticipants}
	if e.MaxParticipants == nil {
		return c
	}

	limit := *e.MaxParticipants
	remaining := limit - e.RegisteredParticipants
	if remaining < 0 {
		remaining = 0
	}
	c.Max = &limit
	c.Remaining = &remaining
	c.Full = remaining == 0
	return c
}

// UpcomingEvents returns published or ongoing events that have not ended,
// soonest first, capped at limit when limit is positive
func UpcomingEvents(events []db.Event, now time.Time, limit int) []db.Event {
	out := make([]db.Event, 0)
	for _, e := range events {
		if e.Status != db.EventPublished && e.Status != db.EventOngoing {
			continue
		}
		if e.EndDate.Before(now) && e.Recurrence == "" {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Occurrence is one concrete instance of an event
type Occurrence struct {
	EventID  string    `json:"eventId"`
	Title    string    `json:"title"`
	Location string    `json:"location"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

// Occurrences returns the start times of an event within [from, to]. A
// one-off event yields its own start when it falls inside the window.
func Occurrences(e db.Event, from, to time.Time) ([]time.Time, error) {
	if e.Recurrence == "" {
		if e.StartDate.Before(from) || e.StartDate.After(to) {
			return nil, nil
		}
		return []time.Time{e.StartDate}, nil
	}

	rule, err := rrule.StrToRRule(e.Recurrence)
	if err != nil {
		return nil, fmt.Errorf("failed to parse recurrence of event %s: %w", e.ID, err)
	}
	rule.DTStart(e.StartDate)
	return rule.Between(from, to, true), nil
}

// UpcomingOccurrences expands published and ongoing events into concrete
// occurrences within [from, to], soonest first. Events with an unparseable
// recurrence are skipped.
func UpcomingOccurrences(events []db.Event, from, to time.Time) []Occurrence {
	out := make([]Occurrence, 0)
	for _, e := range events {
		if e.Status != db.EventPublished && e.Status != db.EventOngoing {
			continue
		}
		starts, err := Occurrences(e, from, to)
		if err != nil {
			continue
		}
		duration := e.EndDate.Sub(e.StartDate)
		for _, start := range starts {
			out = append(out, Occurrence{
				EventID:  e.ID,
				Title:    e.Title,
				Location: e.Location,
				Start:    start,
				End:      start.Add(duration),
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}
