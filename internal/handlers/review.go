package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/yamdb/apiserver/internal/auth"
	"github.com/yamdb/apiserver/internal/policy"
	"github.com/yamdb/apiserver/internal/services"
	"github.com/yamdb/apiserver/types"
)

// Reviews is the review surface used by ReviewHandler.
type Reviews interface {
	List(ctx context.Context, titleID int64, offset, limit int) ([]types.Review, int, error)
	Get(ctx context.Context, titleID, reviewID int64) (types.Review, error)
	Create(ctx context.Context, titleID int64, author types.User, score int, text string) (types.Review, error)
	Update(ctx context.Context, review types.Review, patch services.ReviewPatch) (types.Review, error)
	Delete(ctx context.Context, review types.Review) error
}

// Comments is the comment surface used by ReviewHandler.
type Comments interface {
	List(ctx context.Context, titleID, reviewID int64, offset, limit int) ([]types.Comment, int, error)
	Get(ctx context.Context, titleID, reviewID, commentID int64) (types.Comment, error)
	Create(ctx context.Context, titleID, reviewID int64, author types.User, text string) (types.Comment, error)
	Update(ctx context.Context, comment types.Comment, patch services.CommentPatch) (types.Comment, error)
	Delete(ctx context.Context, comment types.Comment) error
}

// ReviewRequest is the write payload of a review.
type ReviewRequest struct {
	Text  string `json:"text"`
	Score *int   `json:"score"`
}

// CommentRequest is the write payload of a comment.
type CommentRequest struct {
	Text string `json:"text"`
}

// ReviewHandler serves reviews of a title and the comments on them.
// Mutations check the collection rule first, then load the target (404),
// then check the rule again against its author.
type ReviewHandler struct {
	reviews  Reviews
	comments Comments
}

func NewReviewHandler(reviews Reviews, comments Comments) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, comments: comments}
}

// ReviewRouter returns the route set mounted under /titles/{titleID}/reviews.
func ReviewRouter(reviews Reviews, comments Comments) func(r chi.Router) {
	handler := NewReviewHandler(reviews, comments)

	return func(r chi.Router) {
		r.Get("/", handler.ListReviews)
		r.Post("/", handler.CreateReview)
		r.Route("/{reviewID}", func(r chi.Router) {
			r.Get("/", handler.GetReview)
			r.Patch("/", handler.UpdateReview)
			r.Delete("/", handler.DeleteReview)
			r.Route("/comments", func(r chi.Router) {
				r.Get("/", handler.ListComments)
				r.Post("/", handler.CreateComment)
				r.Get("/{commentID}", handler.GetComment)
				r.Patch("/{commentID}", handler.UpdateComment)
				r.Delete("/{commentID}", handler.DeleteComment)
			})
		})
	}
}

// ids parses the path parameters named in order.
func ids(r *http.Request, names ...string) ([]int64, error) {
	out := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := pathID(r, name)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AuthorOrReadOnly, policy.ActionList, nil) {
		return
	}
	titleID, err := pathID(r, "titleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := h.reviews.List(r.Context(), titleID, offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

func (h *ReviewHandler) GetReview(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AuthorOrReadOnly, policy.ActionRetrieve, nil) {
		return
	}
	p, err := ids(r, "titleID", "reviewID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	review, err := h.reviews.Get(r.Context(), p[0], p[1])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *ReviewHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AuthorOrReadOnly, policy.ActionCreate, nil) {
		return
	}
	titleID, err := pathID(r, "titleID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	score := 0
	if req.Score != nil {
		score = *req.Score
	}

	author := auth.IdentityFrom(r.Context()).User
	review, err := h.reviews.Create(r.Context(), titleID, *author, score, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// loadReview runs the collection check for action, loads the review and
// checks action against its author.
func (h *ReviewHandler) loadReview(w http.ResponseWriter, r *http.Request, action policy.Action) (types.Review, bool) {
	if !authorize(w, r, policy.AuthorOrReadOnly, action, nil) {
		return types.Review{}, false
	}
	p, err := ids(r, "titleID", "reviewID")
	if err != nil {
		writeError(w, r, err)
		return types.Review{}, false
	}
	review, err := h.reviews.Get(r.Context(), p[0], p[1])
	if err != nil {
		writeError(w, r, err)
		return types.Review{}, false
	}
	if !authorize(w, r, policy.AuthorOrReadOnly, action, policy.Owner(review.AuthorID)) {
		return types.Review{}, false
	}
	return review, true
}

func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r, policy.ActionUpdate)
	if !ok {
		return
	}
	var patch services.ReviewPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.reviews.Update(r.Context(), review, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	review, ok := h.loadReview(w, r, policy.ActionDelete)
	if !ok {
		return
	}
	if err := h.reviews.Delete(r.Context(), review); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ReviewHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AuthorOrReadOnly, policy.ActionList, nil) {
		return
	}
	p, err := ids(r, "titleID", "reviewID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	items, total, err := h.comments.List(r.Context(), p[0], p[1], offset, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newListResponse(items, page, limit, total))
}

func (h *ReviewHandler) GetComment(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AuthorOrReadOnly, policy.ActionRetrieve, nil) {
		return
	}
	p, err := ids(r, "titleID", "reviewID", "commentID")
	if err != nil {
		writeError(w, r, err)
		return
	}

	comment, err := h.comments.Get(r.Context(), p[0], p[1], p[2])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *ReviewHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	if !authorize(w, r, policy.AuthorOrReadOnly, policy.ActionCreate, nil) {
		return
	}
	p, err := ids(r, "titleID", "reviewID")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req CommentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	author := auth.IdentityFrom(r.Context()).User
	comment, err := h.comments.Create(r.Context(), p[0], p[1], *author, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *ReviewHandler) loadComment(w http.ResponseWriter, r *http.Request, action policy.Action) (types.Comment, bool) {
	if !authorize(w, r, policy.AuthorOrReadOnly, action, nil) {
		return types.Comment{}, false
	}
	p, err := ids(r, "titleID", "reviewID", "commentID")
	if err != nil {
		writeError(w, r, err)
		return types.Comment{}, false
	}
	comment, err := h.comments.Get(r.Context(), p[0], p[1], p[2])
	if err != nil {
		writeError(w, r, err)
		return types.Comment{}, false
	}
	if !authorize(w, r, policy.AuthorOrReadOnly, action, policy.Owner(comment.AuthorID)) {
		return types.Comment{}, false
	}
	return comment, true
}

func (h *ReviewHandler) UpdateComment(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.loadComment(w, r, policy.ActionUpdate)
	if !ok {
		return
	}
	var patch services.CommentPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	updated, err := h.comments.Update(r.Context(), comment, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ReviewHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	comment, ok := h.loadComment(w, r, policy.ActionDelete)
	if !ok {
		return
	}
	if err := h.comments.Delete(r.Context(), comment); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
