package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound  = errors.New("not found")
	// ErrConflict is returned when a unique constraint rejects a write.
	ErrConflict  = errors.New("conflict")
	// ErrReference is returned when a foreign key points at a missing row.
	ErrReference = errors.New("referenced record does not exist")
)

// Constraint names declared by the migrations.
const (
	ConstraintUsername        = "users_username_key"
	ConstraintEmail           = "users_email_key"
	ConstraintCategorySlug    = "categories_slug_key"
	ConstraintGenreSlug       = "genres_slug_key"
	ConstraintReviewPerAuthor = "reviews_unique_title_author"
	ConstraintReviewTitle     = "reviews_title_id_fkey"
	ConstraintCommentReview   = "comments_review_id_fkey"
	ConstraintTitleGenre      = "title_genres_genre_id_fkey"
	ConstraintTitleCategory   = "titles_category_id_fkey"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// ConstraintError reports which constraint rejected a write.
// errors.Is matches it against ErrConflict or ErrReference.
type ConstraintError struct {
	Kind       error
	Constraint string
	cause      error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Constraint)
}

func (e *ConstraintError) Is(target error) bool {
	return target == e.Kind
}

func (e *ConstraintError) Unwrap() error {
	return e.cause
}

// ConstraintOf returns the violated constraint name, or "" when err is not
// a constraint violation.
func ConstraintOf(err error) string {
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Constraint
	}
	return ""
}

// translate maps driver errors to the store's error values.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case pqUniqueViolation:
		return &ConstraintError{Kind: ErrConflict, Constraint: pqErr.Constraint, cause: err}
	case pqForeignKeyViolation:
		return &ConstraintError{Kind: ErrReference, Constraint: pqErr.Constraint, cause: err}
	default:
		return err
	}
}
