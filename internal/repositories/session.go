package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/nowplay/internal/models"
	"github.com/desertthunder/nowplay/internal/shared"
)

// SessionRepository persists [models.Session] records.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SessionRepository with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session binding.
func (r *SessionRepository) Create(session *models.Session) error {
	session.CreatedAt = time.Now()

	query := `INSERT INTO sessions (id, account_id, expires_at, created_at) VALUES (?, ?, ?, ?)`

	_, err := r.db.Exec(query, session.ID, session.AccountID, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", wrapConstraint(err))
	}

	return nil
}

// Get retrieves a session by credential value.
func (r *SessionRepository) Get(id string) (*models.Session, error) {
	query := `SELECT id, account_id, expires_at, created_at FROM sessions WHERE id = ?`

	var session models.Session
	err := r.db.QueryRow(query, id).Scan(&session.ID, &session.AccountID, &session.ExpiresAt, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session: %w", shared.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	return &session, nil
}

// Delete removes a session by credential value. Deleting an unknown
// credential is not an error.
func (r *SessionRepository) Delete(id string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions past their expiry and returns the count removed.
func (r *SessionRepository) DeleteExpired(now time.Time) (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows, nil
}
