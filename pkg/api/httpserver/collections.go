package httpserver

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
)

// createFunc decodes a request body and creates the document it describes
type createFunc func(w http.ResponseWriter, r *http.Request) (string, bool)

func donationStatus(d db.Donation) string   { return string(d.Status) }
func volunteerStatus(v db.Volunteer) string { return string(v.Status) }
func eventStatus(e db.Event) string         { return string(e.Status) }
func postStatus(p db.BlogPost) string       { return string(p.Status) }

// registerCollection adds the admin CRUD routes for one collection.
// statusOf is nil for collections without a status.
func registerCollection[T db.Record](r *mux.Router, s *Server, name string, st *store.Store[T], statusOf func(T) string, create createFunc) {
	base := "/" + name

	r.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		items, err := st.Current(r.Context())
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		if want := r.URL.Query().Get("status"); want != "" && statusOf != nil {
			filtered := make([]T, 0, len(items))
			for _, item := range items {
				if statusOf(item) == want {
					filtered = append(filtered, item)
				}
			}
			items = filtered
		}
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"items": items,
			"stale": st.Stale(),
		})
	}).Methods(http.MethodGet)

	r.HandleFunc(base, func(w http.ResponseWriter, r *http.Request) {
		id, ok := create(w, r)
		if !ok {
			return
		}
		respondJSON(w, http.StatusCreated, map[string]string{"id": id})
	}).Methods(http.MethodPost)

	r.HandleFunc(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		item, err := findItem(r.Context(), st, mux.Vars(r)["id"])
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, item)
	}).Methods(http.MethodGet)

	r.HandleFunc(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		var fields db.Fields
		if !decodeJSON(w, r, &fields) {
			return
		}
		if len(fields) == 0 {
			respondError(w, http.StatusBadRequest, "No fields to update")
			return
		}

		id := mux.Vars(r)["id"]
		var err error
		if name == db.BlogPostsCollection {
			err = s.services.UpdatePost(r.Context(), id, fields)
		} else {
			err = s.services.Update(r.Context(), name, id, fields)
		}
		if err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"message": "Updated"})
	}).Methods(http.MethodPatch)

	r.HandleFunc(base+"/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := s.services.Delete(r.Context(), name, mux.Vars(r)["id"]); err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodDelete)

	if statusOf == nil {
		return
	}

	r.HandleFunc(base+"/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Status string `json:"status"`
		}
		if !decodeJSON(w, r, &body) {
			return
		}
		if body.Status == "" {
			respondError(w, http.StatusBadRequest, "status is required")
			return
		}

		if err := s.services.ChangeStatus(r.Context(), name, mux.Vars(r)["id"], body.Status); err != nil {
			s.respondServiceError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": body.Status})
	}).Methods(http.MethodPost)
}

func findItem[T db.Record](ctx context.Context, st *store.Store[T], id string) (T, error) {
	return st.Load(ctx, id)
}
