// Package apperr defines the error taxonomy shared by every layer of the API
// and the single mapping from an error kind to an HTTP status.
package apperr

import (
	"errors"
	"net/http"
	"sort"
)

// Kind classifies an error for translation at the request boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindAuthentication
	KindNotAuthenticated
	KindPermissionDenied
	KindValidation
	KindNotFound
	KindMethodNotAllowed
	KindRateLimited
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication, KindNotAuthenticated:
		return http.StatusUnauthorized
	case KindPermissionDenied:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified application error.
// Fields carries per-field validation messages and is empty for other kinds.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Fields  map[string][]string

	causes []error
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the errors merged by Join so errors.Is finds each of them.
func (e *Error) Unwrap() []error {
	return e.causes
}

func newError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// New returns an error of the given kind. A non-nil cause stays reachable
// through errors.Is and errors.As.
func New(kind Kind, code, message string, cause error) *Error {
	e := newError(kind, code, message)
	if cause != nil {
		e.causes = []error{cause}
	}
	return e
}

// Field returns a validation error attached to a single request field.
func Field(code, field, message string) *Error {
	return &Error{
		Kind:    KindValidation,
		Code:    code,
		Message: message,
		Fields:  map[string][]string{field: {message}},
	}
}

// Validation returns a validation error not bound to a field.
func Validation(code, message string) *Error {
	return newError(KindValidation, code, message)
}

// Join merges validation errors into one error whose Fields is the union of
// theirs. Every input stays reachable through errors.Is. Nil inputs are
// skipped; Join returns nil when nothing is left.
func Join(errs ...error) error {
	var kept []error
	fields := map[string][]string{}
	var messages []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		kept = append(kept, err)
		var appErr *Error
		if errors.As(err, &appErr) && len(appErr.Fields) > 0 {
			for field, msgs := range appErr.Fields {
				fields[field] = append(fields[field], msgs...)
			}
			continue
		}
		messages = append(messages, err.Error())
	}
	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	}
	if len(messages) > 0 {
		fields["non_field_errors"] = append(fields["non_field_errors"], messages...)
	}
	return &Error{
		Kind:    KindValidation,
		Code:    "invalid",
		Message: summarize(fields),
		Fields:  fields,
		causes:  kept,
	}
}

func summarize(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	msg := ""
	for _, k := range keys {
		for _, m := range fields[k] {
			if msg != "" {
				msg += "; "
			}
			msg += k + ": " + m
		}
	}
	return msg
}

// KindOf returns the kind of the first *Error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

var (
	ErrNotAuthenticated = newError(KindNotAuthenticated, "not_authenticated", "authentication credentials were not provided")
	ErrPermissionDenied = newError(KindPermissionDenied, "permission_denied", "you do not have permission to perform this action")
	ErrNotFound         = newError(KindNotFound, "not_found", "not found")
	ErrMethodNotAllowed = newError(KindMethodNotAllowed, "method_not_allowed", "method not allowed")
	ErrRateLimited      = newError(KindRateLimited, "throttled", "request was throttled")

	ErrMalformedBody = Validation("parse_error", "malformed request body")

	ErrReservedUsername = Field("reserved_username", "username", `"me" cannot be used as a username`)
	ErrUsernameTaken    = Field("username_taken", "username", "a user with that username already exists")
	ErrEmailTaken       = Field("email_taken", "email", "a user with that email already exists")
	ErrWrongSecret      = Field("wrong_secret", "confirmation_code", "confirmation code is not correct for this user")

	ErrInvalidScore    = Field("invalid_score", "score", "score must be between 1 and 10")
	ErrDuplicateReview = Validation("duplicate_review", "you have already reviewed this title")
	ErrSlugTaken       = Field("slug_taken", "slug", "an object with this slug already exists")
	ErrInvalidYear     = Field("invalid_year", "year", "year cannot be later than next year")
	ErrUnknownCategory = Field("unknown_category", "category", "category with this slug does not exist")
	ErrUnknownGenre    = Field("unknown_genre", "genre", "genre with this slug does not exist")
	ErrInvalidRole     = Field("invalid_role", "role", "role must be one of: user, moderator, admin")
)
