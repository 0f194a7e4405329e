package httpserver

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/shivamksharma/devdonations/pkg/auth"
)

const defaultAnalyticsDays = 30

func (s *Server) setSessionCookie(w http.ResponseWriter, session auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "Sign in to manage DevDonations",
		"googleEnabled": s.auth.GoogleEnabled(),
		"googleLogin":   "/admin/auth/google/login",
	})
}

// handleLogin accepts the credentials as JSON or as a form post
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		if !decodeJSON(w, r, &creds) {
			return
		}
	} else {
		creds.Email = r.PostFormValue("email")
		creds.Password = r.PostFormValue("password")
	}
	if creds.Email == "" || creds.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	session, err := s.auth.SignInWithPassword(r.Context(), creds.Email, creds.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, session)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Signed in"})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(auth.SessionCookie); err == nil {
		s.auth.SignOut(cookie.Value)
	}
	s.clearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Signed out"})
}

func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.GoogleLoginURL()
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (s *Server) handleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	if errParam := query.Get("error"); errParam != "" {
		s.logger.Info("Google sign-in declined", zap.String("error", errParam))
		http.Redirect(w, r, "/admin/login", http.StatusFound)
		return
	}

	session, err := s.auth.SignInWithGoogle(r.Context(), query.Get("state"), query.Get("code"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.setSessionCookie(w, session)
	http.Redirect(w, r, "/admin", http.StatusFound)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.services.Dashboard(r.Context())
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, dashboard)
}

// handleAnalytics summarises page views over the last ?days= days
func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	days := defaultAnalyticsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "days must be a non-negative number")
			return
		}
		days = n
	}

	var since time.Time
	if days > 0 {
		since = s.now().AddDate(0, 0, -days)
	}

	summary, err := s.services.Analytics(r.Context(), since)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

func (s *Server) handleAssignVolunteer(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VolunteerID string `json:"volunteerId"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.VolunteerID == "" {
		respondError(w, http.StatusBadRequest, "volunteerId is required")
		return
	}

	if err := s.services.AssignVolunteer(r.Context(), mux.Vars(r)["id"], body.VolunteerID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Volunteer assigned"})
}

func (s *Server) handleUnassignVolunteer(w http.ResponseWriter, r *http.Request) {
	if err := s.services.UnassignVolunteer(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Volunteer unassigned"})
}

// handleUploadImage takes a multipart "image" file and makes it the post's
// featured image
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "Image is too large or the form is invalid")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No image uploaded")
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respondError(w, http.StatusBadRequest, "Only image files are allowed")
		return
	}

	url, err := s.services.UploadFeaturedImage(r.Context(), mux.Vars(r)["id"], file, header.Filename, contentType, header.Size)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"featuredImage": url})
}
