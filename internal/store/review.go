package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yamdb/apiserver/types"
)

// ReviewRepository handles persistence for reviews. One review per
// (title, author) is enforced by the reviews_unique_title_author constraint.
type ReviewRepository struct {
	db *sql.DB
}

func NewReviewRepository(db *sql.DB) *ReviewRepository {
	return &ReviewRepository{db: db}
}

const reviewSelect = `
	SELECT r.id, r.title_id, r.author_id, u.username, r.text, r.score, r.pub_date
	FROM reviews r
	JOIN users u ON u.id = r.author_id`

func scanReview(row rowScanner) (types.Review, error) {
	var review types.Review
	err := row.Scan(
		&review.ID,
		&review.TitleID,
		&review.AuthorID,
		&review.Author,
		&review.Text,
		&review.Score,
		&review.PubDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Review{}, ErrNotFound
		}
		return types.Review{}, err
	}
	return review, nil
}

func (r *ReviewRepository) List(ctx context.Context, titleID int64, offset, limit int) ([]types.Review, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM reviews WHERE title_id = $1`, titleID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		reviewSelect+` WHERE r.title_id = $1 ORDER BY r.id DESC OFFSET $2 LIMIT $3`,
		titleID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	reviews := make([]types.Review, 0, limit)
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reviews, total, nil
}

// Get returns the review only when it belongs to titleID.
func (r *ReviewRepository) Get(ctx context.Context, titleID, reviewID int64) (types.Review, error) {
	return scanReview(r.db.QueryRowContext(ctx,
		reviewSelect+` WHERE r.id = $1 AND r.title_id = $2`, reviewID, titleID))
}

// Create inserts the review. A missing title surfaces as ErrReference and a
// second review by the same author as ErrConflict.
func (r *ReviewRepository) Create(ctx context.Context, review types.Review) (types.Review, error) {
	review.PubDate = time.Now().UTC()

	const query = `
		INSERT INTO reviews (title_id, author_id, text, score, pub_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		review.TitleID,
		review.AuthorID,
		review.Text,
		review.Score,
		review.PubDate,
	).Scan(&review.ID); err != nil {
		return types.Review{}, translate(err)
	}
	return review, nil
}

func (r *ReviewRepository) Update(ctx context.Context, review types.Review) error {
	const query = `
		UPDATE reviews
		SET text = $1,
			score = $2
		WHERE id = $3 AND title_id = $4`
	result, err := r.db.ExecContext(ctx, query, review.Text, review.Score, review.ID, review.TitleID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// Delete removes the review and its comments.
func (r *ReviewRepository) Delete(ctx context.Context, titleID, reviewID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1 AND title_id = $2`, reviewID, titleID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
