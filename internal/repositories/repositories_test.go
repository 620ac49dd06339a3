package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/nowplay/internal/models"
	"github.com/desertthunder/nowplay/internal/shared"
	sharedtest "github.com/desertthunder/nowplay/internal/testing"
)

func testAccount(spotifyID, slug string) *models.Account {
	return &models.Account{
		SpotifyID:      spotifyID,
		DisplayName:    "Test User",
		Slug:           slug,
		AccessToken:    "access-" + spotifyID,
		RefreshToken:   "refresh-" + spotifyID,
		TokenExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestAccountRepository(t *testing.T) {
	t.Run("Create assigns ID", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		account := testAccount("spotify-1", "test-user")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		if account.ID == "" {
			t.Error("account ID should be set after creation")
		}
	})

	t.Run("GetBySpotifyID", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		account := testAccount("spotify-1", "test-user")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		retrieved, err := repo.GetBySpotifyID("spotify-1")
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if retrieved.ID != account.ID {
			t.Errorf("expected ID %s, got %s", account.ID, retrieved.ID)
		}
		if retrieved.AccessToken != account.AccessToken {
			t.Errorf("expected access token %s, got %s", account.AccessToken, retrieved.AccessToken)
		}
	})

	t.Run("GetBySlug unknown returns not found", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		_, err := repo.GetBySlug("nobody")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("duplicate spotify_id is a conflict", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		if err := repo.Create(testAccount("spotify-1", "one")); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		err := repo.Create(testAccount("spotify-1", "two"))
		if !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("duplicate slug is a conflict", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		if err := repo.Create(testAccount("spotify-1", "same")); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		err := repo.Create(testAccount("spotify-2", "same"))
		if !errors.Is(err, shared.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("Update rewrites mutable fields", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		account := testAccount("spotify-1", "old-slug")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		account.DisplayName = "Renamed"
		account.Slug = "new-slug"
		account.AccessToken = "rotated"
		if err := repo.Update(account); err != nil {
			t.Fatalf("failed to update account: %v", err)
		}

		retrieved, err := repo.GetBySlug("new-slug")
		if err != nil {
			t.Fatalf("failed to get account by new slug: %v", err)
		}
		if retrieved.DisplayName != "Renamed" {
			t.Errorf("expected display name Renamed, got %s", retrieved.DisplayName)
		}
		if retrieved.AccessToken != "rotated" {
			t.Errorf("expected rotated access token, got %s", retrieved.AccessToken)
		}

		if _, err := repo.GetBySlug("old-slug"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("old slug should be released, got %v", err)
		}
	})

	t.Run("UpdateTokens only touches the token triple", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		account := testAccount("spotify-1", "test-user")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		newExpiry := time.Now().Add(2 * time.Hour)
		if err := repo.UpdateTokens(account.ID, "new-access", "new-refresh", newExpiry); err != nil {
			t.Fatalf("failed to update tokens: %v", err)
		}

		retrieved, err := repo.GetByID(account.ID)
		if err != nil {
			t.Fatalf("failed to get account: %v", err)
		}
		if retrieved.AccessToken != "new-access" || retrieved.RefreshToken != "new-refresh" {
			t.Errorf("token triple not updated: %+v", retrieved)
		}
		if retrieved.Slug != "test-user" {
			t.Errorf("slug should be untouched, got %s", retrieved.Slug)
		}
	})

	t.Run("UpdateTokens unknown account", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		err := repo.UpdateTokens("missing", "a", "r", time.Now())
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("HolderID", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		account := testAccount("spotify-1", "taken")
		if err := repo.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		holder, err := repo.HolderID("taken")
		if err != nil {
			t.Fatalf("failed to query holder: %v", err)
		}
		if holder != account.ID {
			t.Errorf("expected holder %s, got %s", account.ID, holder)
		}

		holder, err = repo.HolderID("free")
		if err != nil {
			t.Fatalf("failed to query holder: %v", err)
		}
		if holder != "" {
			t.Errorf("expected empty holder for free slug, got %s", holder)
		}
	})

	t.Run("List returns directory ordered by slug", func(t *testing.T) {
		repo := NewAccountRepository(sharedtest.SetupDB(t))

		for _, acct := range []*models.Account{
			testAccount("spotify-2", "zoe"),
			testAccount("spotify-1", "alice"),
		} {
			if err := repo.Create(acct); err != nil {
				t.Fatalf("failed to create account: %v", err)
			}
		}

		entries, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list accounts: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		if entries[0].Username != "alice" || entries[1].Username != "zoe" {
			t.Errorf("unexpected ordering: %+v", entries)
		}
	})
}

func TestSessionRepository(t *testing.T) {
	setup := func(t *testing.T) (*AccountRepository, *SessionRepository, *models.Account) {
		t.Helper()
		db := sharedtest.SetupDB(t)

		accounts := NewAccountRepository(db)
		account := testAccount("spotify-1", "test-user")
		if err := accounts.Create(account); err != nil {
			t.Fatalf("failed to create account: %v", err)
		}

		return accounts, NewSessionRepository(db), account
	}

	t.Run("Create and Get", func(t *testing.T) {
		_, sessions, account := setup(t)

		session := &models.Session{
			ID:        "credential-1",
			AccountID: account.ID,
			ExpiresAt: time.Now().Add(time.Hour),
		}
		if err := sessions.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		retrieved, err := sessions.Get("credential-1")
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if retrieved.AccountID != account.ID {
			t.Errorf("expected account %s, got %s", account.ID, retrieved.AccountID)
		}
	})

	t.Run("Get unknown returns not found", func(t *testing.T) {
		_, sessions, _ := setup(t)

		_, err := sessions.Get("missing")
		if !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_, sessions, account := setup(t)

		session := &models.Session{ID: "credential-1", AccountID: account.ID, ExpiresAt: time.Now().Add(time.Hour)}
		if err := sessions.Create(session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := sessions.Delete("credential-1"); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}
		if _, err := sessions.Get("credential-1"); !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got %v", err)
		}

		// Deleting again is not an error.
		if err := sessions.Delete("credential-1"); err != nil {
			t.Errorf("repeat delete should be a no-op, got %v", err)
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		_, sessions, account := setup(t)

		now := time.Now()
		for _, s := range []*models.Session{
			{ID: "live", AccountID: account.ID, ExpiresAt: now.Add(time.Hour)},
			{ID: "lapsed", AccountID: account.ID, ExpiresAt: now.Add(-time.Hour)},
		} {
			if err := sessions.Create(s); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		removed, err := sessions.DeleteExpired(now)
		if err != nil {
			t.Fatalf("failed to delete expired sessions: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 removed, got %d", removed)
		}

		if _, err := sessions.Get("live"); err != nil {
			t.Errorf("live session should remain: %v", err)
		}
	})
}
