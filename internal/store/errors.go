package store

import (
	"errors"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a record does not exist or has been
// soft-deleted. Read paths treat inactive rows as absent.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness
// constraint, such as a duplicate email or a second active review for
// the same (product, user) pair.
var ErrConflict = errors.New("conflict")

const uniqueViolationCode = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolationCode
}
