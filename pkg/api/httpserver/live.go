package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
)

// liveSource is a store that can stream its snapshot
type liveSource interface {
	SubscribeLive() (func(), error)
	OnChange(fn func()) func()
	snapshotJSON() ([]byte, error)
}

type liveStore[T db.Record] struct {
	*store.Store[T]
}

func (l liveStore[T]) snapshotJSON() ([]byte, error) {
	return json.Marshal(l.Snapshot())
}

func (s *Server) liveSource(collection string) (liveSource, bool) {
	switch collection {
	case db.DonationsCollection:
		return liveStore[db.Donation]{s.stores.Donations}, true
	case db.VolunteersCollection:
		return liveStore[db.Volunteer]{s.stores.Volunteers}, true
	case db.EventsCollection:
		return liveStore[db.Event]{s.stores.Events}, true
	}
	return nil, false
}

// handleLive streams the full collection as Server-Sent Events, one
// "snapshot" event per change, until the client disconnects
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	collection := mux.Vars(r)["collection"]
	source, ok := s.liveSource(collection)
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("%s has no live updates", collection))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, http.StatusInternalServerError, "Streaming is not supported")
		return
	}

	release, err := source.SubscribeLive()
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	defer release()

	changed := make(chan struct{}, 1)
	cancel := source.OnChange(func() {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	logger := s.logger.With(zap.String("collection", collection))
	logger.Debug("Live stream opened")
	defer logger.Debug("Live stream closed")

	send := func() bool {
		data, err := source.snapshotJSON()
		if err != nil {
			logger.Error("Failed to encode snapshot", zap.Error(err))
			return false
		}
		if _, err := fmt.Fprintf(w, "event: snapshot\ndata: %s\n\n", data); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send() {
		return
	}

	heartbeat := time.NewTicker(s.opts.Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-changed:
			if !send() {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
