// package repositories provides the persistence layer for accounts and sessions.
//
// Both repositories operate on a *sql.DB opened by shared.NewDatabase and rely
// on the schema installed by shared.RunMigrations. Uniqueness violations from
// the store are surfaced as [shared.ErrConflict], never swallowed.
package repositories

import (
	"strings"

	"github.com/desertthunder/nowplay/internal/shared"
)

// wrapConstraint maps SQLite uniqueness violations to [shared.ErrConflict].
func wrapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint") {
		return shared.ErrConflict
	}
	return err
}
