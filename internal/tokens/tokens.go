// package tokens guarantees outbound Spotify calls carry a non-expired access token.
package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/nowplay/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// DefaultGuardWindow is the margin before expiry within which a token is
// treated as already expired, so a token cannot lapse mid-flight.
const DefaultGuardWindow = 10 * time.Second

// AccountStore is the slice of the identity store the manager needs.
type AccountStore interface {
	GetByID(id string) (*models.Account, error)
	UpdateTokens(id, accessToken, refreshToken string, expiresAt time.Time) error
}

// Refresher issues a refresh grant against the upstream token endpoint.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Recorder receives refresh outcomes for metrics. May be nil.
type Recorder interface {
	RecordTokenRefresh(outcome string)
}

// Manager transparently refreshes expiring access tokens.
//
// Concurrent callers for the same account are coalesced through a
// single-flight group, so at most one refresh is in flight per account.
type Manager struct {
	accounts AccountStore
	upstream Refresher
	guard    time.Duration
	group    singleflight.Group
	logger   *log.Logger
	recorder Recorder
	now      func() time.Time
}

// NewManager creates a Manager. A non-positive guard falls back to
// [DefaultGuardWindow]; recorder may be nil.
func NewManager(accounts AccountStore, upstream Refresher, guard time.Duration, logger *log.Logger, recorder Recorder) *Manager {
	if guard <= 0 {
		guard = DefaultGuardWindow
	}
	return &Manager{
		accounts: accounts,
		upstream: upstream,
		guard:    guard,
		logger:   logger,
		recorder: recorder,
		now:      time.Now,
	}
}

// EnsureFresh returns a valid access token for the account, refreshing and
// persisting the token triple first when expiry falls within the guard window.
//
// Refresh failure is fatal for the caller's request; no retry happens here.
// The account record is not deactivated, so a later request simply attempts
// the refresh again.
func (m *Manager) EnsureFresh(ctx context.Context, account *models.Account) (string, error) {
	if m.fresh(account.TokenExpiresAt) {
		return account.AccessToken, nil
	}

	token, err, _ := m.group.Do(account.ID, func() (any, error) {
		return m.refresh(ctx, account.ID)
	})
	if err != nil {
		return "", err
	}

	return token.(string), nil
}

// refresh runs inside the single-flight gate for one account.
func (m *Manager) refresh(ctx context.Context, accountID string) (string, error) {
	// Re-read inside the gate: a coalesced caller may arrive after the
	// winner already persisted a fresh token.
	account, err := m.accounts.GetByID(accountID)
	if err != nil {
		return "", fmt.Errorf("failed to reload account: %w", err)
	}

	if m.fresh(account.TokenExpiresAt) {
		return account.AccessToken, nil
	}

	token, err := m.upstream.Refresh(ctx, account.RefreshToken)
	if err != nil {
		m.logger.Error("token refresh failed", "account_id", accountID, "error", err)
		m.record("failure")
		return "", err
	}

	refreshToken := token.RefreshToken
	if refreshToken == "" {
		// Spotify does not always rotate the refresh token.
		refreshToken = account.RefreshToken
	}

	if err := m.accounts.UpdateTokens(accountID, token.AccessToken, refreshToken, token.Expiry); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	m.logger.Info("access token refreshed", "account_id", accountID, "expires_at", token.Expiry)
	m.record("success")

	return token.AccessToken, nil
}

// record reports a refresh outcome when a recorder is wired.
func (m *Manager) record(outcome string) {
	if m.recorder != nil {
		m.recorder.RecordTokenRefresh(outcome)
	}
}

// fresh reports whether an expiry instant is still outside the guard window.
func (m *Manager) fresh(expiresAt time.Time) bool {
	return expiresAt.Sub(m.now()) > m.guard
}
