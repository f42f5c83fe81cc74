package services

import (
	"context"
	"errors"
	"strings"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/types"
)

var errTextRequired = apperr.Field("required", "text", "this field is required")

// ReviewPatch is a partial review update.
type ReviewPatch struct {
	Text  *string `json:"text"`
	Score *int    `json:"score"`
}

// ReviewRepository defines persistence operations for reviews.
type ReviewRepository interface {
	List(ctx context.Context, titleID int64, offset, limit int) ([]types.Review, int, error)
	Get(ctx context.Context, titleID, reviewID int64) (types.Review, error)
	Create(ctx context.Context, review types.Review) (types.Review, error)
	Update(ctx context.Context, review types.Review) error
	Delete(ctx context.Context, titleID, reviewID int64) error
}

// TitleLookup reports whether a title exists.
type TitleLookup interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

// ReviewService encapsulates review use-cases. Every operation is scoped
// to a title and fails with ErrNotFound when that title is missing.
type ReviewService struct {
	repo   ReviewRepository
	titles TitleLookup
}

func NewReviewService(repo ReviewRepository, titles TitleLookup) *ReviewService {
	return &ReviewService{repo: repo, titles: titles}
}

func (s *ReviewService) requireTitle(ctx context.Context, titleID int64) error {
	ok, err := s.titles.Exists(ctx, titleID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrNotFound
	}
	return nil
}

func (s *ReviewService) List(ctx context.Context, titleID int64, offset, limit int) ([]types.Review, int, error) {
	if err := s.requireTitle(ctx, titleID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, titleID, offset, clampLimit(limit))
}

func (s *ReviewService) Get(ctx context.Context, titleID, reviewID int64) (types.Review, error) {
	review, err := s.repo.Get(ctx, titleID, reviewID)
	if err != nil {
		return types.Review{}, notFound(err)
	}
	return review, nil
}

// Create stores a review of titleID by author. The database enforces one
// review per author and title, so concurrent duplicates are rejected too.
func (s *ReviewService) Create(ctx context.Context, titleID int64, author types.User, score int, text string) (types.Review, error) {
	if err := checkReview(&score, &text); err != nil {
		return types.Review{}, err
	}
	if err := s.requireTitle(ctx, titleID); err != nil {
		return types.Review{}, err
	}

	created, err := s.repo.Create(ctx, types.Review{
		TitleID:  titleID,
		AuthorID: author.ID,
		Text:     text,
		Score:    score,
	})
	switch {
	case err == nil:
		created.Author = author.Username
		return created, nil
	case errors.Is(err, store.ErrReference):
		return types.Review{}, apperr.ErrNotFound
	default:
		return types.Review{}, conflict(err, map[string]error{store.ConstraintReviewPerAuthor: apperr.ErrDuplicateReview})
	}
}

// Update applies patch to review. The caller loads and authorizes review
// beforehand.
func (s *ReviewService) Update(ctx context.Context, review types.Review, patch ReviewPatch) (types.Review, error) {
	if err := checkReview(patch.Score, patch.Text); err != nil {
		return types.Review{}, err
	}
	if patch.Text != nil {
		review.Text = *patch.Text
	}
	if patch.Score != nil {
		review.Score = *patch.Score
	}
	if err := s.repo.Update(ctx, review); err != nil {
		return types.Review{}, notFound(err)
	}
	return review, nil
}

// Delete removes review and its comments.
func (s *ReviewService) Delete(ctx context.Context, review types.Review) error {
	return notFound(s.repo.Delete(ctx, review.TitleID, review.ID))
}

func checkReview(score *int, text *string) error {
	var errs []error
	if text != nil && strings.TrimSpace(*text) == "" {
		errs = append(errs, errTextRequired)
	}
	if score != nil && (*score < types.MinScore || *score > types.MaxScore) {
		errs = append(errs, apperr.ErrInvalidScore)
	}
	return apperr.Join(errs...)
}
