// package playback proxies read-only playback queries for public slugs.
package playback

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplay/internal/models"
	"github.com/desertthunder/nowplay/internal/repositories"
	"github.com/desertthunder/nowplay/internal/services"
	"github.com/desertthunder/nowplay/internal/tokens"
)

// searchLimit caps session-gated track searches.
const searchLimit = 10

// Player is the slice of the Spotify client the proxy consumes.
type Player interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*services.SpotifyCurrentlyPlaying, error)
	SearchTracks(ctx context.Context, accessToken, query string, limit int) ([]services.SpotifyTrack, error)
}

// Service resolves public slugs to accounts and queries Spotify with
// always-fresh credentials.
type Service struct {
	accounts *repositories.AccountRepository
	tokens   *tokens.Manager
	player   Player
	logger   *log.Logger
}

// NewService creates a playback Service.
func NewService(accounts *repositories.AccountRepository, manager *tokens.Manager, player Player, logger *log.Logger) *Service {
	return &Service{
		accounts: accounts,
		tokens:   manager,
		player:   player,
		logger:   logger,
	}
}

// NowPlaying returns the normalized playback state for the account owning
// the slug.
//
// An unknown slug propagates the store's not-found error. An upstream error
// is never conflated with "nothing playing": it propagates so the boundary
// can report a generic upstream failure.
func (s *Service) NowPlaying(ctx context.Context, slugValue string) (*models.NowPlaying, error) {
	account, err := s.accounts.GetBySlug(slugValue)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.tokens.EnsureFresh(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain fresh token: %w", err)
	}

	playing, err := s.player.CurrentlyPlaying(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	response := &models.NowPlaying{
		Username:    account.Slug,
		DisplayName: account.DisplayName,
	}

	if playing == nil || playing.Item == nil {
		return response, nil
	}

	response.Playing = true
	response.Track = normalizeTrack(playing.Item)

	return response, nil
}

// Search performs a track search on behalf of an authenticated account.
func (s *Service) Search(ctx context.Context, account *models.Account, query string) ([]models.SearchTrack, error) {
	accessToken, err := s.tokens.EnsureFresh(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain fresh token: %w", err)
	}

	items, err := s.player.SearchTracks(ctx, accessToken, query, searchLimit)
	if err != nil {
		return nil, err
	}

	results := make([]models.SearchTrack, 0, len(items))
	for _, item := range items {
		names := make([]string, 0, len(item.Artists))
		for _, artist := range item.Artists {
			names = append(names, artist.Name)
		}

		result := models.SearchTrack{
			ID:       item.ID,
			Name:     item.Name,
			Artist:   strings.Join(names, ", "),
			TrackURL: item.ExternalURLs.Spotify,
		}
		if len(item.Album.Images) > 0 {
			result.AlbumArt = item.Album.Images[0].URL
		}

		results = append(results, result)
	}

	return results, nil
}

// Directory returns the public account listing.
func (s *Service) Directory() ([]models.DirectoryEntry, error) {
	return s.accounts.List()
}

// normalizeTrack maps a Spotify track payload to the stable public shape.
// Artist order follows the upstream payload; album art is the first image,
// absent when Spotify supplies none.
func normalizeTrack(item *services.SpotifyTrack) *models.NowPlayingTrack {
	artists := make([]string, 0, len(item.Artists))
	for _, artist := range item.Artists {
		artists = append(artists, artist.Name)
	}

	track := &models.NowPlayingTrack{
		Name:     item.Name,
		Artists:  artists,
		Album:    item.Album.Name,
		TrackURL: item.ExternalURLs.Spotify,
		Explicit: item.Explicit,
	}
	if len(item.Album.Images) > 0 {
		track.AlbumArt = item.Album.Images[0].URL
	}

	return track
}
