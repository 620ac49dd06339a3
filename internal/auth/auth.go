// package auth implements the authorization callback flow and session binding.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplay/internal/models"
	"github.com/desertthunder/nowplay/internal/repositories"
	"github.com/desertthunder/nowplay/internal/services"
	"github.com/desertthunder/nowplay/internal/shared"
	"github.com/desertthunder/nowplay/internal/slug"
	"golang.org/x/oauth2"
)

// DefaultSessionMaxAge applies when configuration supplies no session lifetime.
const DefaultSessionMaxAge = 30 * 24 * time.Hour

// Provider is the slice of the Spotify client the auth flow consumes.
type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Profile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
}

// Service drives the authorization flow: exchanging callback codes,
// upserting accounts with freshly allocated slugs, and issuing sessions.
type Service struct {
	provider      Provider
	accounts      *repositories.AccountRepository
	sessions      *repositories.SessionRepository
	slugs         *slug.Allocator
	states        *stateStore
	sessionMaxAge time.Duration
	logger        *log.Logger
}

// NewService creates an auth Service. A non-positive sessionMaxAge falls back
// to [DefaultSessionMaxAge].
func NewService(
	provider Provider,
	accounts *repositories.AccountRepository,
	sessions *repositories.SessionRepository,
	slugs *slug.Allocator,
	sessionMaxAge time.Duration,
	logger *log.Logger,
) *Service {
	if sessionMaxAge <= 0 {
		sessionMaxAge = DefaultSessionMaxAge
	}
	return &Service{
		provider:      provider,
		accounts:      accounts,
		sessions:      sessions,
		slugs:         slugs,
		states:        newStateStore(),
		sessionMaxAge: sessionMaxAge,
		logger:        logger,
	}
}

// LoginURL generates a fresh state token and returns the Spotify authorize
// URL carrying it. The state stays valid for one callback within its window.
func (s *Service) LoginURL() (string, error) {
	state, err := generateOpaque(16)
	if err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}

	s.states.Add(state)

	return s.provider.AuthCodeURL(state), nil
}

// ConsumeState validates and invalidates a callback state token.
func (s *Service) ConsumeState(state string) error {
	if !s.states.Consume(state) {
		return shared.ErrInvalidState
	}
	return nil
}

// HandleCallback completes an authorization: it exchanges the code, fetches
// the Spotify profile, upserts the account (re-resolving its slug), and
// issues a session bound to it.
//
// Re-authorizing the same Spotify identity never creates a second account;
// it refreshes tokens, display name, and slug in place. The recomputed slug
// can silently change the account's public URL when the display name changed.
func (s *Service) HandleCallback(ctx context.Context, code string) (*models.Account, *models.Session, error) {
	token, err := s.provider.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	profile, err := s.provider.Profile(ctx, token.AccessToken)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch profile: %w", err)
	}

	displayName := profile.DisplayName
	if displayName == "" {
		displayName = profile.ID
	}

	account, err := s.upsertAccount(profile.ID, displayName, token)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.IssueSession(account.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("authorization completed", "account_id", account.ID, "slug", account.Slug)

	return account, session, nil
}

// upsertAccount inserts or updates the account keyed by Spotify ID, with the
// slug re-resolved through the allocator (excluding the account itself on
// re-authorization).
func (s *Service) upsertAccount(spotifyID, displayName string, token *oauth2.Token) (*models.Account, error) {
	existing, err := s.accounts.GetBySpotifyID(spotifyID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	if existing != nil {
		allocated, err := s.slugs.Allocate(displayName, existing.ID)
		if err != nil {
			return nil, err
		}

		existing.DisplayName = displayName
		existing.Slug = allocated
		existing.AccessToken = token.AccessToken
		if token.RefreshToken != "" {
			existing.RefreshToken = token.RefreshToken
		}
		existing.TokenExpiresAt = token.Expiry

		if err := s.accounts.Update(existing); err != nil {
			return nil, fmt.Errorf("failed to update account: %w", err)
		}

		return existing, nil
	}

	allocated, err := s.slugs.Allocate(displayName, "")
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		SpotifyID:      spotifyID,
		DisplayName:    displayName,
		Slug:           allocated,
		AccessToken:    token.AccessToken,
		RefreshToken:   token.RefreshToken,
		TokenExpiresAt: token.Expiry,
	}

	if err := s.accounts.Create(account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	return account, nil
}

// IssueSession generates an unguessable session credential bound to the
// account and persists it.
func (s *Service) IssueSession(accountID string) (*models.Session, error) {
	credential, err := generateOpaque(32)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session credential: %w", err)
	}

	session := &models.Session{
		ID:        credential,
		AccountID: accountID,
		ExpiresAt: time.Now().Add(s.sessionMaxAge),
	}

	if err := s.sessions.Create(session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// ResolveSession maps a session credential back to its account.
//
// Unknown, malformed, and expired credentials all resolve to
// [shared.ErrNotFound]; callers cannot distinguish them, so the lookup
// cannot serve as a credential-guessing oracle. Expired rows are deleted on
// the way out.
func (s *Service) ResolveSession(credential string) (*models.Account, error) {
	if credential == "" {
		return nil, fmt.Errorf("session: %w", shared.ErrNotFound)
	}

	session, err := s.sessions.Get(credential)
	if err != nil {
		return nil, err
	}

	if session.Expired(time.Now()) {
		if err := s.sessions.Delete(session.ID); err != nil {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, fmt.Errorf("session: %w", shared.ErrNotFound)
	}

	return s.accounts.GetByID(session.AccountID)
}

// generateOpaque returns n cryptographically random bytes hex-encoded.
func generateOpaque(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
