// Package httpserver exposes the public pages and the admin surface as a JSON
// HTTP API.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/auth"
	"github.com/shivamksharma/devdonations/pkg/core/services"
	"github.com/shivamksharma/devdonations/pkg/core/store"
	"github.com/shivamksharma/devdonations/pkg/db"
)

// PostReader reads published blog posts
type PostReader interface {
	ListPublished(ctx context.Context) ([]db.BlogPost, error)
	GetPublishedBySlug(ctx context.Context, slug string) (db.BlogPost, error)
}

// PageViewTracker records public page views
type PageViewTracker interface {
	TrackPageView(ctx context.Context, path string, properties map[string]string) (string, error)
}

// Options tune the server
type Options struct {
	// APIKey guards /metrics when set
	APIKey         string
	SecureCookies  bool
	MaxUploadBytes int64
	// Heartbeat is the interval of SSE keep-alive comments
	Heartbeat time.Duration
}

const (
	defaultMaxUploadBytes = 10 << 20
	defaultHeartbeat      = 25 * time.Second
	shutdownTimeout       = 10 * time.Second
)

type Server struct {
	services  *services.Services
	stores    *store.Stores
	posts     PostReader
	analytics PageViewTracker
	auth      *auth.Service
	logger    *zap.Logger
	opts      Options
	now       func() time.Time
}

func New(svc *services.Services, posts PostReader, analytics PageViewTracker, authSvc *auth.Service, logger *zap.Logger, opts Options) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}
	if opts.Heartbeat <= 0 {
		opts.Heartbeat = defaultHeartbeat
	}
	return &Server{
		services:  svc,
		stores:    svc.Stores(),
		posts:     posts,
		analytics: analytics,
		auth:      authSvc,
		logger:    logger,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
		// No WriteTimeout: live streams stay open
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server starting", zap.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

// Handler builds the router with every route and middleware
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recoveryMiddleware)
	r.Use(s.loggingMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.apiKeyGuard(promhttp.Handler())).Methods(http.MethodGet)

	r.Handle("/", s.tracked(s.handleHome)).Methods(http.MethodGet)
	r.Handle("/donate", s.tracked(s.handleDonatePage)).Methods(http.MethodGet)
	r.HandleFunc("/donate", s.handleSubmitDonation).Methods(http.MethodPost)
	r.Handle("/distribution", s.tracked(s.handleDistribution)).Methods(http.MethodGet)
	r.HandleFunc("/volunteer", s.handleRegisterVolunteer).Methods(http.MethodPost)
	r.Handle("/blog", s.tracked(s.handleBlog)).Methods(http.MethodGet)
	r.Handle("/blog/{slug}", s.tracked(s.handleBlogPost)).Methods(http.MethodGet)

	r.HandleFunc("/admin/login", s.handleLoginPage).Methods(http.MethodGet)
	r.HandleFunc("/admin/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/admin/logout", s.handleLogout).Methods(http.MethodPost)
	r.HandleFunc("/admin/auth/google/login", s.handleGoogleLogin).Methods(http.MethodGet)
	r.HandleFunc("/admin/auth/google/callback", s.handleGoogleCallback).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(s.adminGuard)
	admin.HandleFunc("", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/dashboard", s.handleDashboard).Methods(http.MethodGet)
	admin.HandleFunc("/analytics", s.handleAnalytics).Methods(http.MethodGet)
	admin.HandleFunc("/live/{collection}", s.handleLive).Methods(http.MethodGet)

	admin.HandleFunc("/donations/{id}/assign", s.handleAssignVolunteer).Methods(http.MethodPost)
	admin.HandleFunc("/donations/{id}/assign", s.handleUnassignVolunteer).Methods(http.MethodDelete)
	admin.HandleFunc("/blogPosts/{id}/image", s.handleUploadImage).Methods(http.MethodPost)

	registerCollection(admin, s, db.DonationsCollection, s.stores.Donations, donationStatus, s.createDonation)
	registerCollection(admin, s, db.VolunteersCollection, s.stores.Volunteers, volunteerStatus, s.createVolunteer)
	registerCollection(admin, s, db.EventsCollection, s.stores.Events, eventStatus, s.createEvent)
	registerCollection(admin, s, db.LocationsCollection, s.stores.Locations, nil, s.createLocation)
	registerCollection(admin, s, db.BlogPostsCollection, s.stores.BlogPosts, postStatus, s.createPost)
	// every other /admin path still passes the guard before it is refused
	admin.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
