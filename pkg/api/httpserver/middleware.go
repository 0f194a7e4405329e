package httpserver

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/auth"
	"github.com/shivamksharma/devdonations/pkg/db"
	"github.com/shivamksharma/devdonations/pkg/metrics"
)

type contextKey int

const profileKey contextKey = iota

// profileFrom returns the admin profile attached by adminGuard
func profileFrom(ctx context.Context) (db.UserProfile, bool) {
	p, ok := ctx.Value(profileKey).(db.UserProfile)
	return p, ok
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// Flush lets live streams push events through the wrapper
func (w *responseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// loggingMiddleware logs every request and counts it by route template
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, routeName(r), strconv.Itoa(wrapped.statusCode)).Inc()
		s.logger.Info("HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr))
	})
}

// recoveryMiddleware recovers from panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("Panic recovered",
					zap.Any("error", err),
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Stack("stack"))
				respondError(w, http.StatusInternalServerError, "Internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// adminGuard lets a request through only for a live session whose profile
// carries the admin role. Everyone else is redirected to the login page.
func (s *Server) adminGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(auth.SessionCookie)
		if err != nil {
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}

		profile, err := s.auth.RequireAdmin(r.Context(), cookie.Value)
		if err != nil {
			s.logger.Debug("Admin access denied", zap.String("path", r.URL.Path), zap.Error(err))
			http.Redirect(w, r, "/admin/login", http.StatusFound)
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), profileKey, profile)))
	})
}

// apiKeyGuard requires the API key in the X-API-Key header when one is
// configured
func (s *Server) apiKeyGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.opts.APIKey != "" {
			given := r.Header.Get("X-API-Key")
			if subtle.ConstantTimeCompare([]byte(given), []byte(s.opts.APIKey)) != 1 {
				respondError(w, http.StatusUnauthorized, "Unauthorized")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// tracked records a page view after a successful public page render. A
// failed write is logged and does not affect the response.
func (s *Server) tracked(h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		h(wrapped, r)
		if wrapped.statusCode >= http.StatusBadRequest {
			return
		}

		props := map[string]string{}
		if ref := r.Referer(); ref != "" {
			props["referrer"] = ref
		}
		if ua := r.UserAgent(); ua != "" {
			props["userAgent"] = ua
		}
		if _, err := s.analytics.TrackPageView(r.Context(), r.URL.Path, props); err != nil {
			s.logger.Warn("Failed to record page view", zap.String("path", r.URL.Path), zap.Error(err))
		}
	})
}
