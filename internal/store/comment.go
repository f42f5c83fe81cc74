package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/yamdb/apiserver/types"
)

// CommentRepository handles persistence for comments on reviews.
type CommentRepository struct {
	db *sql.DB
}

func NewCommentRepository(db *sql.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

const commentSelect = `
	SELECT c.id, c.review_id, c.author_id, u.username, c.text, c.pub_date
	FROM comments c
	JOIN users u ON u.id = c.author_id`

func scanComment(row rowScanner) (types.Comment, error) {
	var comment types.Comment
	err := row.Scan(
		&comment.ID,
		&comment.ReviewID,
		&comment.AuthorID,
		&comment.Author,
		&comment.Text,
		&comment.PubDate,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Comment{}, ErrNotFound
		}
		return types.Comment{}, err
	}
	return comment, nil
}

func (r *CommentRepository) List(ctx context.Context, reviewID int64, offset, limit int) ([]types.Comment, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM comments WHERE review_id = $1`, reviewID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		commentSelect+` WHERE c.review_id = $1 ORDER BY c.id DESC OFFSET $2 LIMIT $3`,
		reviewID, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	comments := make([]types.Comment, 0, limit)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, 0, err
		}
		comments = append(comments, comment)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// Get returns the comment only when it belongs to reviewID.
func (r *CommentRepository) Get(ctx context.Context, reviewID, commentID int64) (types.Comment, error) {
	return scanComment(r.db.QueryRowContext(ctx,
		commentSelect+` WHERE c.id = $1 AND c.review_id = $2`, commentID, reviewID))
}

func (r *CommentRepository) Create(ctx context.Context, comment types.Comment) (types.Comment, error) {
	comment.PubDate = time.Now().UTC()

	const query = `
		INSERT INTO comments (review_id, author_id, text, pub_date)
		VALUES ($1, $2, $3, $4)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		comment.ReviewID,
		comment.AuthorID,
		comment.Text,
		comment.PubDate,
	).Scan(&comment.ID); err != nil {
		return types.Comment{}, translate(err)
	}
	return comment, nil
}

func (r *CommentRepository) Update(ctx context.Context, comment types.Comment) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET text = $1 WHERE id = $2 AND review_id = $3`,
		comment.Text, comment.ID, comment.ReviewID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func (r *CommentRepository) Delete(ctx context.Context, reviewID, commentID int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1 AND review_id = $2`, commentID, reviewID)
	if err != nil {
		return err
	}
	return expectAffected(result)
}
