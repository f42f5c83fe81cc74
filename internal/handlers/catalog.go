package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yamdb/apiserver/internal/policy"
	"github.com/yamdb/apiserver/internal/services"
	"github.com/yamdb/apiserver/types"
)

// Taxonomy is the surface shared by the category and genre services.
type Taxonomy[T any] interface {
	List(ctx context.Context, offset, limit int) ([]T, int, error)
	Create(ctx context.Context, in services.TaxonomyInput) (T, error)
	Delete(ctx context.Context, slug string) error
}

// TaxonomyHandler serves a slugged classification: categories or genres.
// Only list, create and delete are exposed.
type TaxonomyHandler[T any] struct {
	service Taxonomy[T]
}

// TaxonomyRouter registers list, create and delete routes for service.
func TaxonomyRouter[T any](r chi.Router, service Taxonomy[T]) {
	handler := &TaxonomyHandler[T]{service: service}

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Delete("/{slug}", handler.Delete)
}

// CategoryRouter registers category routes.
func CategoryRouter(r chi.Router, categories Taxonomy[types.Category]) {
	TaxonomyRouter(r, categories)
}

// GenreRouter registers genre routes.
func GenreRouter(r chi.Router, genres Taxonomy[types.Genre]) {
	TaxonomyRouter(r, genres)
}

func (h *TaxonomyHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionList, nil) {
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := h.service.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

func (h *TaxonomyHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionCreate, nil) {
		return
	}
	var in services.TaxonomyInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	created, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *TaxonomyHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionDelete, nil) {
		return
	}
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "slug")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Titles is the title surface used by TitleHandler.
type Titles interface {
	List(ctx context.Context, offset, limit int) ([]types.Title, int, error)
	Get(ctx context.Context, id int64) (types.Title, error)
	Rating(ctx context.Context, id int64) (*float64, error)
	Create(ctx context.Context, in services.TitleInput) (types.Title, error)
	Update(ctx context.Context, id int64, patch services.TitlePatch) (types.Title, error)
	Delete(ctx context.Context, id int64) error
}

// TitleHandler serves the title catalog.
type TitleHandler struct {
	titles Titles
}

func NewTitleHandler(titles Titles) *TitleHandler {
	return &TitleHandler{titles: titles}
}

// TitleRouter registers title routes. nested, when set, mounts the review
// routes under a title.
func TitleRouter(r chi.Router, titles Titles, nested func(r chi.Router)) {
	handler := NewTitleHandler(titles)

	r.Get("/", handler.List)
	r.Post("/", handler.Create)
	r.Route("/{titleID}", func(r chi.Router) {
		r.Get("/", handler.Get)
		r.Patch("/", handler.Update)
		r.Delete("/", handler.Delete)
		r.Get("/rating", handler.Rating)
		if nested != nil {
			r.Route("/reviews", nested)
		}
	})
}

func (h *TitleHandler) List(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionList, nil) {
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := h.titles.List(r.Context(), offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

func (h *TitleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionRetrieve, nil) {
		return
	}
	id, err := pathID(r, "titleID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	title, err := h.titles.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// Rating returns the mean review score of a title.
func (h *TitleHandler) Rating(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "titleID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	rating, err := h.titles.Rating(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RatingResponse{Rating: rating})
}

func (h *TitleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionCreate, nil) {
		return
	}
	var in services.TitleInput
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, r, err)
		return
	}

	title, err := h.titles.Create(r.Context(), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, title)
}

func (h *TitleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionUpdate, nil) {
		return
	}
	id, err := pathID(r, "titleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch services.TitlePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	title, err := h.titles.Update(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, title)
}

// Delete removes a title with its reviews and comments.
func (h *TitleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AdminOrReadOnly, policy.ActionDelete, nil) {
		return
	}
	id, err := pathID(r, "titleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.titles.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RatingResponse struct {
	Rating *float64 `json:"rating"`
}
