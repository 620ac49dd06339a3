// Spotify Web API client
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/desertthunder/nowplay/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// upstreamTimeout bounds every round-trip to Spotify.
	upstreamTimeout = 10 * time.Second
)

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	Explicit     bool            `json:"explicit"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyCurrentlyPlaying represents the player's currently-playing response.
// A nil value at the call site means Spotify reported no content (204).
type SpotifyCurrentlyPlaying struct {
	IsPlaying bool          `json:"is_playing"`
	Item      *SpotifyTrack `json:"item"`
}

// SpotifyClient talks to the Spotify Web API on behalf of stored accounts.
//
// Unlike a single-user CLI client it holds no token of its own: every API
// call takes the access token of the account it acts for.
type SpotifyClient struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
}

// NewSpotifyClient creates a new Spotify client with the given OAuth2 credentials.
func NewSpotifyClient(credentials map[string]string) (*SpotifyClient, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8802/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-email",
			"user-read-private",
			"user-read-currently-playing",
			"user-read-playback-state",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	return &SpotifyClient{
		config:     config,
		httpClient: &http.Client{Timeout: upstreamTimeout},
		baseURL:    spotifyBaseURL,
	}, nil
}

// AuthCodeURL returns the Spotify authorize URL for the given state token.
func (s *SpotifyClient) AuthCodeURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access/refresh token pair.
func (s *SpotifyClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err != nil {
		return nil, classifyOAuthError(err)
	}
	return token, nil
}

// Refresh issues a refresh grant for the given refresh token.
//
// The returned token carries a rotated refresh token when Spotify supplies
// one, and the seeded refresh token otherwise (oauth2 preserves it).
func (s *SpotifyClient) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := s.config.TokenSource(s.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})

	token, err := source.Token()
	if err != nil {
		return nil, classifyOAuthError(err)
	}

	return token, nil
}

// Profile fetches the authenticated user's profile.
func (s *SpotifyClient) Profile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, accessToken, "/me", &user); err != nil {
		return nil, err
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: empty id in profile response", shared.ErrAPIRequest)
	}
	return &user, nil
}

// CurrentlyPlaying fetches the player's currently-playing state.
//
// Returns (nil, nil) when Spotify reports no content, which callers map to
// "nothing playing".
func (s *SpotifyClient) CurrentlyPlaying(ctx context.Context, accessToken string) (*SpotifyCurrentlyPlaying, error) {
	var playing SpotifyCurrentlyPlaying
	status, err := s.doRequest(ctx, accessToken, "/me/player/currently-playing", &playing)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNoContent {
		return nil, nil
	}
	return &playing, nil
}

// SearchTracks performs a track search and returns up to limit results.
func (s *SpotifyClient) SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]SpotifyTrack, error) {
	if limit <= 0 {
		limit = 10
	}

	endpoint := "/search?" + url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}.Encode()

	var response struct {
		Tracks struct {
			Items []SpotifyTrack `json:"items"`
		} `json:"tracks"`
	}

	if _, err := s.doRequest(ctx, accessToken, endpoint, &response); err != nil {
		return nil, err
	}

	return response.Tracks.Items, nil
}

// doRequest performs an authenticated GET against the Spotify API and decodes
// the response into result.
//
// Returns http.StatusNoContent for both a 204 and a 200 with an empty body
// (the player endpoint produces either for an idle player), leaving result
// untouched.
func (s *SpotifyClient) doRequest(ctx context.Context, accessToken, endpoint string, result any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrUpstreamTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrUpstreamTransient, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return resp.StatusCode, fmt.Errorf("%w: status %d", shared.ErrUpstreamAuth, resp.StatusCode)
	case resp.StatusCode >= 500:
		return resp.StatusCode, fmt.Errorf("%w: status %d", shared.ErrUpstreamTransient, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return resp.StatusCode, fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if resp.StatusCode == http.StatusNoContent || len(body) == 0 {
		return http.StatusNoContent, nil
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return resp.StatusCode, nil
}

// oauthContext injects the bounded-timeout HTTP client into the oauth2 flow.
func (s *SpotifyClient) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// classifyOAuthError maps token-endpoint failures onto the shared taxonomy.
//
// A 4xx from the token endpoint means the grant itself was rejected (revoked
// or invalid), which is fatal for the current caller. Everything else is
// transient.
func classifyOAuthError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 && retrieveErr.Response.StatusCode < 500 {
			return fmt.Errorf("%w: %v", shared.ErrUpstreamAuth, err)
		}
	}
	return fmt.Errorf("%w: %v", shared.ErrUpstreamTransient, err)
}
