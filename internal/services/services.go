// Package services implements the catalog, review and account use-cases on
// top of the store repositories. Errors returned from this package are
// apperr values ready for the HTTP boundary, or unclassified internal errors.
package services

import (
	"errors"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultLimit
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}

// notFound converts store.ErrNotFound into the API error.
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.ErrNotFound
	}
	return err
}

// conflict maps a unique violation on a known constraint to its error.
// Other errors pass through unchanged.
func conflict(err error, byConstraint map[string]error) error {
	if !errors.Is(err, store.ErrConflict) {
		return err
	}
	if mapped, ok := byConstraint[store.ConstraintOf(err)]; ok {
		return mapped
	}
	return err
}

var userConflicts = map[string]error{
	store.ConstraintUsername: apperr.ErrUsernameTaken,
	store.ConstraintEmail:    apperr.ErrEmailTaken,
}
