package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplay/internal/auth"
	"github.com/desertthunder/nowplay/internal/metrics"
	"github.com/desertthunder/nowplay/internal/models"
	"github.com/desertthunder/nowplay/internal/playback"
	"github.com/desertthunder/nowplay/internal/shared"
)

// SessionCookie is the name of the HTTP-only session cookie.
const SessionCookie = "sessionId"

// API is the HTTP boundary over the auth and playback services.
// Implements the [Handler] interface for registration with a [Router].
type API struct {
	auth      *auth.Service
	playback  *playback.Service
	collector *metrics.Collector
	logger    *log.Logger
}

// NewAPI creates the API handler. collector may be nil.
func NewAPI(authService *auth.Service, playbackService *playback.Service, collector *metrics.Collector, logger *log.Logger) *API {
	return &API{
		auth:      authService,
		playback:  playbackService,
		collector: collector,
		logger:    logger,
	}
}

// Routes returns the method-qualified patterns this handler serves.
func (a *API) Routes() []string {
	return []string{
		"GET /login",
		"GET /callback",
		"GET /api/user/{username}/now-playing",
		"GET /api/users",
		"GET /api/spotify/search",
		"GET /health",
	}
}

// ServeHTTP dispatches on the matched route pattern.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Pattern {
	case "GET /login":
		a.handleLogin(w, r)
	case "GET /callback":
		a.handleCallback(w, r)
	case "GET /api/user/{username}/now-playing":
		a.handleNowPlaying(w, r)
	case "GET /api/users":
		a.handleUsers(w, r)
	case "GET /api/spotify/search":
		a.handleSearch(w, r)
	case "GET /health":
		a.handleHealth(w, r)
	default:
		http.NotFound(w, r)
	}
}

// handleLogin redirects the browser to the Spotify authorize URL.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	loginURL, err := a.auth.LoginURL()
	if err != nil {
		a.logger.Error("failed to build login URL", "error", err)
		a.writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.Redirect(w, r, loginURL, http.StatusFound)
}

// handleCallback completes the authorization flow: it validates the state,
// upserts the account, issues a session cookie, and redirects the browser to
// the account's public page.
func (a *API) handleCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		a.logger.Warn("authorization denied by provider", "error", errParam)
		a.recordCallback("failure")
		a.writeError(w, http.StatusBadRequest, "Spotify auth error")
		return
	}

	code := query.Get("code")
	if code == "" {
		a.recordCallback("failure")
		a.writeError(w, http.StatusBadRequest, "Missing code from Spotify")
		return
	}

	if err := a.auth.ConsumeState(query.Get("state")); err != nil {
		a.recordCallback("failure")
		a.writeError(w, http.StatusBadRequest, "Invalid state parameter")
		return
	}

	account, session, err := a.auth.HandleCallback(r.Context(), code)
	if err != nil {
		a.logger.Error("authorization callback failed", "error", err)
		a.recordCallback("failure")
		a.writeError(w, http.StatusInternalServerError, "Error during Spotify auth")
		return
	}

	a.recordCallback("success")

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/user/"+account.Slug, http.StatusFound)
}

// handleNowPlaying serves the public now-playing lookup for a slug.
func (a *API) handleNowPlaying(w http.ResponseWriter, r *http.Request) {
	if a.collector != nil {
		a.collector.RecordNowPlayingRequest()
	}

	playing, err := a.playback.NowPlaying(r.Context(), r.PathValue("username"))
	if err != nil {
		a.writeMappedError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, playing)
}

// handleUsers serves the public account directory.
func (a *API) handleUsers(w http.ResponseWriter, r *http.Request) {
	entries, err := a.playback.Directory()
	if err != nil {
		a.logger.Error("failed to list accounts", "error", err)
		a.writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	if entries == nil {
		entries = []models.DirectoryEntry{}
	}

	a.writeJSON(w, http.StatusOK, entries)
}

// handleSearch serves the session-gated track search.
func (a *API) handleSearch(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}

	account, err := a.auth.ResolveSession(cookie.Value)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		a.writeError(w, http.StatusBadRequest, "Missing search query")
		return
	}

	tracks, err := a.playback.Search(r.Context(), account, query)
	if err != nil {
		a.logger.Error("search failed", "account_id", account.ID, "error", err)
		a.writeError(w, http.StatusBadGateway, "Spotify search failed")
		return
	}

	a.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// handleHealth reports liveness.
func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeMappedError maps the shared error taxonomy onto HTTP outcomes without
// leaking provider internals.
func (a *API) writeMappedError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, shared.ErrUpstreamAuth), errors.Is(err, shared.ErrUpstreamTransient), errors.Is(err, shared.ErrAPIRequest):
		a.logger.Warn("upstream failure", "error", err)
		a.writeError(w, http.StatusBadGateway, "Could not fetch now playing")
	default:
		a.logger.Error("internal error", "error", err)
		a.writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to write response", "error", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, message string) {
	a.writeJSON(w, status, map[string]string{"error": message})
}

// recordCallback reports an authorization outcome when a collector is wired.
func (a *API) recordCallback(outcome string) {
	if a.collector != nil {
		a.collector.RecordAuthCallback(outcome)
	}
}

// compile-time interface check
var _ Handler = (*API)(nil)
