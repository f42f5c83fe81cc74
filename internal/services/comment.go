package services

import (
	"context"
	"errors"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/types"
)

// CommentPatch is a partial comment update.
type CommentPatch struct {
	Text *string `json:"text"`
}

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	List(ctx context.Context, reviewID int64, offset, limit int) ([]types.Comment, int, error)
	Get(ctx context.Context, reviewID, commentID int64) (types.Comment, error)
	Create(ctx context.Context, comment types.Comment) (types.Comment, error)
	Update(ctx context.Context, comment types.Comment) error
	Delete(ctx context.Context, reviewID, commentID int64) error
}

// ReviewLookup loads a review under its title.
type ReviewLookup interface {
	Get(ctx context.Context, titleID, reviewID int64) (types.Review, error)
}

// CommentService encapsulates comment use-cases. A review addressed
// under the wrong title is treated as missing.
type CommentService struct {
	repo    CommentRepository
	reviews ReviewLookup
}

func NewCommentService(repo CommentRepository, reviews ReviewLookup) *CommentService {
	return &CommentService{repo: repo, reviews: reviews}
}

func (s *CommentService) review(ctx context.Context, titleID, reviewID int64) (types.Review, error) {
	review, err := s.reviews.Get(ctx, titleID, reviewID)
	if err != nil {
		return types.Review{}, notFound(err)
	}
	return review, nil
}

func (s *CommentService) List(ctx context.Context, titleID, reviewID int64, offset, limit int) ([]types.Comment, int, error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return nil, 0, err
	}
	return s.repo.List(ctx, reviewID, offset, clampLimit(limit))
}

func (s *CommentService) Get(ctx context.Context, titleID, reviewID, commentID int64) (types.Comment, error) {
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return types.Comment{}, err
	}
	comment, err := s.repo.Get(ctx, reviewID, commentID)
	if err != nil {
		return types.Comment{}, notFound(err)
	}
	return comment, nil
}

func (s *CommentService) Create(ctx context.Context, titleID, reviewID int64, author types.User, text string) (types.Comment, error) {
	if err := checkReview(nil, &text); err != nil {
		return types.Comment{}, err
	}
	if _, err := s.review(ctx, titleID, reviewID); err != nil {
		return types.Comment{}, err
	}

	created, err := s.repo.Create(ctx, types.Comment{
		ReviewID: reviewID,
		AuthorID: author.ID,
		Text:     text,
	})
	if err != nil {
		if errors.Is(err, store.ErrReference) {
			return types.Comment{}, apperr.ErrNotFound
		}
		return types.Comment{}, err
	}
	created.Author = author.Username
	return created, nil
}

// Update applies patch to comment. The caller loads and authorizes comment
// beforehand.
func (s *CommentService) Update(ctx context.Context, comment types.Comment, patch CommentPatch) (types.Comment, error) {
	if patch.Text == nil {
		return comment, nil
	}
	if err := checkReview(nil, patch.Text); err != nil {
		return types.Comment{}, err
	}
	comment.Text = *patch.Text
	if err := s.repo.Update(ctx, comment); err != nil {
		return types.Comment{}, notFound(err)
	}
	return comment, nil
}

func (s *CommentService) Delete(ctx context.Context, comment types.Comment) error {
	return notFound(s.repo.Delete(ctx, comment.ReviewID, comment.ID))
}
