package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/nowplay/internal/models"
	"github.com/desertthunder/nowplay/internal/shared"
)

// AccountRepository persists [models.Account] records.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new AccountRepository with the given database connection
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

const accountColumns = `id, spotify_id, display_name, slug, access_token, refresh_token, token_expires_at, created_at, updated_at`

// Create inserts a new account with a generated ID.
func (r *AccountRepository) Create(account *models.Account) error {
	if account.ID == "" {
		account.ID = shared.GenerateID()
	}

	now := time.Now()
	account.CreatedAt = now
	account.UpdatedAt = now

	query := fmt.Sprintf(`INSERT INTO accounts (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`, accountColumns)

	_, err := r.db.Exec(query,
		account.ID, account.SpotifyID, account.DisplayName, account.Slug,
		account.AccessToken, account.RefreshToken, account.TokenExpiresAt,
		account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", wrapConstraint(err))
	}

	return nil
}

// Update rewrites the mutable fields of an existing account: display name,
// slug, and the token triple.
func (r *AccountRepository) Update(account *models.Account) error {
	now := time.Now()
	account.UpdatedAt = now

	query := `
		UPDATE accounts
		SET display_name = ?, slug = ?, access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		account.DisplayName, account.Slug, account.AccessToken,
		account.RefreshToken, account.TokenExpiresAt, now, account.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", wrapConstraint(err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", account.ID, shared.ErrNotFound)
	}

	return nil
}

// UpdateTokens rewrites only the token triple for an account.
func (r *AccountRepository) UpdateTokens(id, accessToken, refreshToken string, expiresAt time.Time) error {
	query := `
		UPDATE accounts
		SET access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query, accessToken, refreshToken, expiresAt, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("account %s: %w", id, shared.ErrNotFound)
	}

	return nil
}

// GetByID retrieves an account by internal ID.
func (r *AccountRepository) GetByID(id string) (*models.Account, error) {
	return r.getWhere("id = ?", id)
}

// GetBySpotifyID retrieves an account by its immutable Spotify identity.
func (r *AccountRepository) GetBySpotifyID(spotifyID string) (*models.Account, error) {
	return r.getWhere("spotify_id = ?", spotifyID)
}

// GetBySlug retrieves an account by its public slug.
func (r *AccountRepository) GetBySlug(slug string) (*models.Account, error) {
	return r.getWhere("slug = ?", slug)
}

// HolderID returns the ID of the account holding the given slug, or the
// empty string when the slug is unclaimed. Implements slug.HolderIndex.
func (r *AccountRepository) HolderID(slug string) (string, error) {
	var id string
	err := r.db.QueryRow("SELECT id FROM accounts WHERE slug = ?", slug).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query slug holder: %w", err)
	}
	return id, nil
}

// List retrieves the public directory entries for all accounts, ordered by slug.
func (r *AccountRepository) List() ([]models.DirectoryEntry, error) {
	rows, err := r.db.Query("SELECT slug, display_name FROM accounts ORDER BY slug ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var entries []models.DirectoryEntry
	for rows.Next() {
		var entry models.DirectoryEntry
		if err := rows.Scan(&entry.Username, &entry.DisplayName); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return entries, nil
}

// getWhere retrieves a single account matching the given predicate.
func (r *AccountRepository) getWhere(where string, arg any) (*models.Account, error) {
	query := fmt.Sprintf("SELECT %s FROM accounts WHERE %s", accountColumns, where)

	var account models.Account
	err := r.db.QueryRow(query, arg).Scan(
		&account.ID, &account.SpotifyID, &account.DisplayName, &account.Slug,
		&account.AccessToken, &account.RefreshToken, &account.TokenExpiresAt,
		&account.CreatedAt, &account.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account: %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query account: %w", err)
	}

	return &account, nil
}
