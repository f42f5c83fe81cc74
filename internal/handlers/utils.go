package handlers

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/logging"
)

const (
	defaultPage  = 1
	defaultLimit = 20
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

// ErrorResponse is the body of every error reply. Detail is a message or a
// map from field name to messages.
type ErrorResponse struct {
	Detail any `json:"detail"`
}

// ListResponse is the envelope of paginated collections.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

func newListResponse[T any](items []T, page, limit, total int) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Page: page, Limit: limit, Total: total}
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeError is the single place where errors become HTTP responses.
// Unclassified errors are logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logging.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("unhandled error")
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "internal server error"})
		return
	}

	if len(appErr.Fields) > 0 {
		writeJSON(w, appErr.Kind.Status(), ErrorResponse{Detail: appErr.Fields})
		return
	}
	writeJSON(w, appErr.Kind.Status(), ErrorResponse{Detail: appErr.Message})
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched so validation can report the missing fields.
func decodeJSON(r *http.Request, dst any) error {
	body := io.LimitReader(r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.New(apperr.KindValidation, apperr.ErrMalformedBody.Code, apperr.ErrMalformedBody.Message, err)
	}
	return nil
}

func parsePagination(r *http.Request) (page, limit, offset int, err error) {
	page = defaultPage
	limit = defaultLimit

	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		page, err = strconv.Atoi(raw)
		if err != nil || page < 1 {
			return 0, 0, 0, apperr.Field("invalid_page", "page", "invalid page")
		}
	}

	rawLimit := strings.TrimSpace(r.URL.Query().Get("limit"))
	if rawLimit == "" {
		rawLimit = strings.TrimSpace(r.URL.Query().Get("per_page"))
	}
	if rawLimit != "" {
		limit, err = strconv.Atoi(rawLimit)
		if err != nil || limit < 1 {
			return 0, 0, 0, apperr.Field("invalid_limit", "limit", "invalid limit")
		}
	}

	if limit > maxLimit {
		limit = maxLimit
	}
	if page > math.MaxInt/limit {
		return 0, 0, 0, apperr.Field("invalid_page", "page", "invalid page")
	}

	offset = (page - 1) * limit
	return page, limit, offset, nil
}

// pathID parses a numeric path parameter. A value that is not a positive
// integer cannot name a row, so it reads as not found.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id < 1 {
		return 0, apperr.ErrNotFound
	}
	return id, nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFound replies to unrouted paths with the JSON error body.
func NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.ErrNotFound)
}

// MethodNotAllowed replies to unsupported methods with the JSON error body.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.ErrMethodNotAllowed)
}

// RateLimited is the reply for throttled requests.
func RateLimited(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, apperr.ErrRateLimited)
}
