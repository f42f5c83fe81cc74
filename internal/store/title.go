package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/yamdb/apiserver/types"
)

// TitleRecord is the writable part of a title: scalar columns plus the ids
// of its category and genres.
type TitleRecord struct {
	ID          int64
	Name        string
	Year        int
	Description *string
	CategoryID  *int64
	GenreIDs    []int64
}

// TitleRepository handles persistence for titles.
type TitleRepository struct {
	db *sql.DB
}

func NewTitleRepository(db *sql.DB) *TitleRepository {
	return &TitleRepository{db: db}
}

// titleSelect reads a title with its category and the mean review score.
const titleSelect = `
	SELECT t.id, t.name, t.year, t.description,
		c.id, c.name, c.slug,
		(SELECT AVG(r.score)::float8 FROM reviews r WHERE r.title_id = t.id)
	FROM titles t
	LEFT JOIN categories c ON c.id = t.category_id`

func scanTitle(row rowScanner) (types.Title, error) {
	var (
		title        types.Title
		description  sql.NullString
		categoryID   sql.NullInt64
		categoryName sql.NullString
		categorySlug sql.NullString
		rating       sql.NullFloat64
	)
	err := row.Scan(
		&title.ID,
		&title.Name,
		&title.Year,
		&description,
		&categoryID,
		&categoryName,
		&categorySlug,
		&rating,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Title{}, ErrNotFound
		}
		return types.Title{}, err
	}
	if description.Valid {
		title.Description = &description.String
	}
	if categoryID.Valid {
		title.Category = &types.Category{
			ID:   categoryID.Int64,
			Name: categoryName.String,
			Slug: categorySlug.String,
		}
	}
	if rating.Valid {
		title.Rating = &rating.Float64
	}
	title.Genres = []types.Genre{}
	return title, nil
}

func (r *TitleRepository) List(ctx context.Context, offset, limit int) ([]types.Title, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM titles`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, titleSelect+` ORDER BY t.id DESC OFFSET $1 LIMIT $2`, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	titles := make([]types.Title, 0, limit)
	for rows.Next() {
		title, err := scanTitle(rows)
		if err != nil {
			return nil, 0, err
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachGenres(ctx, titles); err != nil {
		return nil, 0, err
	}
	return titles, total, nil
}

func (r *TitleRepository) Get(ctx context.Context, id int64) (types.Title, error) {
	title, err := scanTitle(r.db.QueryRowContext(ctx, titleSelect+` WHERE t.id = $1`, id))
	if err != nil {
		return types.Title{}, err
	}
	titles := []types.Title{title}
	if err := r.attachGenres(ctx, titles); err != nil {
		return types.Title{}, err
	}
	return titles[0], nil
}

// Exists reports whether a title with id exists.
func (r *TitleRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM titles WHERE id = $1)`, id).Scan(&exists)
	return exists, err
}

// Rating returns the mean review score of a title, or nil when it has no
// reviews.
func (r *TitleRepository) Rating(ctx context.Context, id int64) (*float64, error) {
	const query = `
		SELECT (SELECT AVG(r.score)::float8 FROM reviews r WHERE r.title_id = t.id)
		FROM titles t
		WHERE t.id = $1`
	var rating sql.NullFloat64
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&rating); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !rating.Valid {
		return nil, nil
	}
	return &rating.Float64, nil
}

func (r *TitleRepository) attachGenres(ctx context.Context, titles []types.Title) error {
	if len(titles) == 0 {
		return nil
	}
	index := make(map[int64]int, len(titles))
	ids := make([]int64, 0, len(titles))
	for i, t := range titles {
		index[t.ID] = i
		ids = append(ids, t.ID)
	}

	const query = `
		SELECT tg.title_id, g.id, g.name, g.slug
		FROM title_genres tg
		JOIN genres g ON g.id = tg.genre_id
		WHERE tg.title_id = ANY($1)
		ORDER BY g.id`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			titleID int64
			genre   types.Genre
		)
		if err := rows.Scan(&titleID, &genre.ID, &genre.Name, &genre.Slug); err != nil {
			return err
		}
		i := index[titleID]
		titles[i].Genres = append(titles[i].Genres, genre)
	}
	return rows.Err()
}

// Create inserts the title and its genre links in one transaction.
func (r *TitleRepository) Create(ctx context.Context, rec TitleRecord) (int64, error) {
	var id int64
	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO titles (name, year, description, category_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id`
		if err := tx.QueryRowContext(ctx, query, rec.Name, rec.Year, rec.Description, rec.CategoryID).Scan(&id); err != nil {
			return translate(err)
		}
		return replaceGenres(ctx, tx, id, rec.GenreIDs)
	})
	return id, err
}

// Update overwrites the title's columns and replaces its genre links.
func (r *TitleRepository) Update(ctx context.Context, rec TitleRecord) error {
	return withTx(ctx, r.db, func(tx *sql.Tx) error {
		const query = `
			UPDATE titles
			SET name = $1,
				year = $2,
				description = $3,
				category_id = $4
			WHERE id = $5`
		result, err := tx.ExecContext(ctx, query, rec.Name, rec.Year, rec.Description, rec.CategoryID, rec.ID)
		if err != nil {
			return translate(err)
		}
		if err := expectAffected(result); err != nil {
			return err
		}
		return replaceGenres(ctx, tx, rec.ID, rec.GenreIDs)
	})
}

// Delete removes the title. Its reviews and their comments go with it.
func (r *TitleRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM titles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

func replaceGenres(ctx context.Context, tx *sql.Tx, titleID int64, genreIDs []int64) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM title_genres WHERE title_id = $1`, titleID); err != nil {
		return err
	}
	if len(genreIDs) == 0 {
		return nil
	}
	const query = `
		INSERT INTO title_genres (title_id, genre_id)
		SELECT $1, unnest($2::bigint[])
		ON CONFLICT DO NOTHING`
	if _, err := tx.ExecContext(ctx, query, titleID, pq.Array(genreIDs)); err != nil {
		return translate(err)
	}
	return nil
}
