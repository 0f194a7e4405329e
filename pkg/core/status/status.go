// Package status holds the allowed lifecycle transitions for every entity
// that carries a status field.
package status

import (
	"errors"
	"fmt"
	"sort"
)

// ErrInvalidTransition is returned when a status change is not allowed
var ErrInvalidTransition = errors.New("invalid status transition")

// ErrUnknownStatus is returned when a status is not part of the graph
var ErrUnknownStatus = errors.New("unknown status")

// TransitionError describes a rejected status change
type TransitionError struct {
	Entity  string
	From    string
	To      string
	Allowed []string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q (allowed: %v)", e.Entity, e.From, e.To, e.Allowed)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// Graph is the allowed-transition table for one entity type
type Graph struct {
	entity string
	edges  map[string][]string
}

func newGraph(entity string, edges map[string][]string) Graph {
	return Graph{entity: entity, edges: edges}
}

// Entity returns the name of the entity the graph applies to
func (g Graph) Entity() string {
	return g.entity
}

// Known reports whether s is a state of the graph
func (g Graph) Known(s string) bool {
	_, ok := g.edges[s]
	return ok
}

// Next returns the states reachable from s in one step
func (g Graph) Next(s string) []string {
	next := append([]string(nil), g.edges[s]...)
	sort.Strings(next)
	return next
}

// Can reports whether moving from one status to another is allowed.
// Staying in the same known status is always allowed.
func (g Graph) Can(from, to string) bool {
	if !g.Known(from) || !g.Known(to) {
		return false
	}
	if from == to {
		return true
	}
	for _, n := range g.edges[from] {
		if n == to {
			return true
		}
	}
	return false
}

// Check returns nil when the transition is allowed
func (g Graph) Check(from, to string) error {
	if !g.Known(to) {
		return fmt.Errorf("%s %q: %w", g.entity, to, ErrUnknownStatus)
	}
	if !g.Known(from) {
		return fmt.Errorf("%s %q: %w", g.entity, from, ErrUnknownStatus)
	}
	if !g.Can(from, to) {
		return &TransitionError{Entity: g.entity, From: from, To: to, Allowed: g.Next(from)}
	}
	return nil
}

var (
	Donation = newGraph("donation", map[string][]string{
		"pending":     {"confirmed", "cancelled"},
		"confirmed":   {"collected", "cancelled"},
		"collected":   {"distributed", "cancelled"},
		"distributed": {},
		"cancelled":   {},
	})

	Volunteer = newGraph("volunteer", map[string][]string{
		"pending":  {"approved", "rejected"},
		"approved": {"active", "inactive"},
		"active":   {"inactive"},
		"inactive": {"active"},
		"rejected": {"pending"},
	})

	Event = newGraph("event", map[string][]string{
		"draft":     {"published", "cancelled"},
		"published": {"draft", "ongoing", "cancelled"},
		"ongoing":   {"completed", "cancelled"},
		"completed": {},
		"cancelled": {},
	})

	BlogPost = newGraph("blog post", map[string][]string{
		"draft":     {"published", "archived"},
		"published": {"draft", "archived"},
		"archived":  {"draft"},
	})
)

// ForCollection returns the graph for a collection name
func ForCollection(collection string) (Graph, bool) {
	switch collection {
	case "donations":
		return Donation, true
	case "volunteers":
		return Volunteer, true
	case "events":
		return Event, true
	case "blogPosts":
		return BlogPost, true
	}
	return Graph{}, false
}
