package repository

import (
	"errors"

	"timebank-backend/internal/db"
)

var ErrNotFound = errors.New("not found")

// IsDuplicate reports whether err is a unique-constraint violation.
func IsDuplicate(err error) bool {
	return db.IsUniqueViolation(err)
}
