// package models defines the data model for the now-playing service
package models

import "time"

// Account is the durable record of one Spotify identity: its tokens, display
// name, and the public slug under which its playback is exposed.
//
// Exactly one Account exists per Spotify ID, and the slug is unique across
// all accounts at any point in time.
type Account struct {
	ID             string
	SpotifyID      string
	DisplayName    string
	Slug           string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Session binds an opaque credential to an Account for privileged calls.
// A session always references an existing account and expires at ExpiresAt.
type Session struct {
	ID        string
	AccountID string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the session is past its expiry at the given instant.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}

// NowPlaying is the public response shape for a now-playing lookup.
// Track is only populated when Playing is true.
type NowPlaying struct {
	Username    string           `json:"username"`
	DisplayName string           `json:"displayName"`
	Playing     bool             `json:"playing"`
	Track       *NowPlayingTrack `json:"track,omitempty"`
}

// NowPlayingTrack is the normalized track record returned while playback is active.
//
// Artists preserves upstream ordering; AlbumArt is absent when the upstream
// supplies no images.
type NowPlayingTrack struct {
	Name     string   `json:"name"`
	Artists  []string `json:"artists"`
	Album    string   `json:"album"`
	AlbumArt string   `json:"albumArt,omitempty"`
	TrackURL string   `json:"trackUrl"`
	Explicit bool     `json:"explicit"`
}

// SearchTrack is one result row from the session-gated track search.
type SearchTrack struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Artist   string `json:"artist"`
	AlbumArt string `json:"albumArt,omitempty"`
	TrackURL string `json:"trackUrl"`
}

// DirectoryEntry is one row of the public account directory.
type DirectoryEntry struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}
