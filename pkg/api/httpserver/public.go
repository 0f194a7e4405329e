package httpserver

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/shivamksharma/devdonations/pkg/core/views"
	"github.com/shivamksharma/devdonations/pkg/db"
)

const (
	homeUpcomingEvents = 3
	occurrenceWindow   = 30 * 24 * time.Hour
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	stores := map[string]string{
		db.DonationsCollection:  string(s.stores.Donations.State()),
		db.VolunteersCollection: string(s.stores.Volunteers.State()),
		db.EventsCollection:     string(s.stores.Events.State()),
		db.LocationsCollection:  string(s.stores.Locations.State()),
		db.BlogPostsCollection:  string(s.stores.BlogPosts.State()),
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"time":   s.now().Format(time.RFC3339),
		"stores": stores,
	})
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	donations, err := s.stores.Donations.Current(ctx)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	volunteers, err := s.stores.Volunteers.Current(ctx)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	events, err := s.stores.Events.Current(ctx)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"impact":         views.BuildImpact(donations, volunteers, events),
		"upcomingEvents": views.UpcomingEvents(events, s.now(), homeUpcomingEvents),
	})
}

func (s *Server) handleDonatePage(w http.ResponseWriter, r *http.Request) {
	locations, err := s.stores.Locations.Current(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"locations": locations,
	})
}

func (s *Server) handleSubmitDonation(w http.ResponseWriter, r *http.Request) {
	var donation db.Donation
	if !decodeJSON(w, r, &donation) {
		return
	}

	id, err := s.services.SubmitDonation(r.Context(), donation)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "Thank you! Your donation has been recorded.",
	})
}

func (s *Server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := s.stores.Events.Current(ctx)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	locations, err := s.stores.Locations.Current(ctx)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	now := s.now()
	upcoming := views.UpcomingEvents(events, now, 0)
	capacity := make(map[string]views.Capacity, len(upcoming))
	for _, e := range upcoming {
		capacity[e.ID] = views.EventCapacity(e)
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"events":      upcoming,
		"capacity":    capacity,
		"occurrences": views.UpcomingOccurrences(upcoming, now, now.Add(occurrenceWindow)),
		"locations":   locations,
	})
}

func (s *Server) handleRegisterVolunteer(w http.ResponseWriter, r *http.Request) {
	var volunteer db.Volunteer
	if !decodeJSON(w, r, &volunteer) {
		return
	}

	id, err := s.services.RegisterVolunteer(r.Context(), volunteer)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"id":      id,
		"message": "Thanks for signing up! We will be in touch soon.",
	})
}

func (s *Server) handleBlog(w http.ResponseWriter, r *http.Request) {
	posts, err := s.posts.ListPublished(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"posts": posts,
	})
}

func (s *Server) handleBlogPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetPublishedBySlug(r.Context(), mux.Vars(r)["slug"])
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}
