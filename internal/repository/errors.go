package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrSettingsMissing is returned when the raffle settings row has not been initialized
var ErrSettingsMissing = errors.New("raffle settings not initialized")

// ErrStatusConflict is returned when an entry is not in the expected status for a transition
var ErrStatusConflict = errors.New("entry status changed concurrently")

// ErrWinnerAlreadySet is returned when a winner write finds one already recorded
var ErrWinnerAlreadySet = errors.New("winner already recorded")

// ErrDuplicateNumber is returned when the store rejects a second active entry for a number
var ErrDuplicateNumber = errors.New("assigned number already held by an active entry")

// isUniqueViolation reports whether err is a unique-constraint failure from either driver
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
