package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/yamdb/apiserver/types"
)

// taxonomy implements the slugged name tables shared by categories and
// genres. Rows are returned as types.Category; genres convert on the way out.
type taxonomy struct {
	db    *sql.DB
	table string
}

func (t taxonomy) list(ctx context.Context, offset, limit int) ([]types.Category, int, error) {
	offset, limit = normalizePage(offset, limit)

	var total int
	if err := t.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM `+t.table).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := t.db.QueryContext(ctx,
		`SELECT id, name, slug FROM `+t.table+` ORDER BY id DESC OFFSET $1 LIMIT $2`,
		offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]types.Category, 0, limit)
	for rows.Next() {
		var item types.Category
		if err := rows.Scan(&item.ID, &item.Name, &item.Slug); err != nil {
			return nil, 0, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (t taxonomy) getBySlug(ctx context.Context, slug string) (types.Category, error) {
	var item types.Category
	err := t.db.QueryRowContext(ctx,
		`SELECT id, name, slug FROM `+t.table+` WHERE slug = $1`, slug,
	).Scan(&item.ID, &item.Name, &item.Slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Category{}, ErrNotFound
		}
		return types.Category{}, err
	}
	return item, nil
}

func (t taxonomy) listBySlugs(ctx context.Context, slugs []string) ([]types.Category, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT id, name, slug FROM `+t.table+` WHERE slug = ANY($1) ORDER BY id`,
		pq.Array(slugs))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []types.Category
	for rows.Next() {
		var item types.Category
		if err := rows.Scan(&item.ID, &item.Name, &item.Slug); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (t taxonomy) create(ctx context.Context, item types.Category) (types.Category, error) {
	err := t.db.QueryRowContext(ctx,
		`INSERT INTO `+t.table+` (name, slug) VALUES ($1, $2) RETURNING id`,
		item.Name, item.Slug,
	).Scan(&item.ID)
	if err != nil {
		return types.Category{}, translate(err)
	}
	return item, nil
}

func (t taxonomy) deleteBySlug(ctx context.Context, slug string) error {
	result, err := t.db.ExecContext(ctx, `DELETE FROM `+t.table+` WHERE slug = $1`, slug)
	if err != nil {
		return err
	}
	return expectAffected(result)
}

// CategoryRepository handles persistence for categories. Deleting a
// category leaves its titles uncategorized.
type CategoryRepository struct {
	taxonomy
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{taxonomy{db: db, table: "categories"}}
}

func (r *CategoryRepository) List(ctx context.Context, offset, limit int) ([]types.Category, int, error) {
	return r.list(ctx, offset, limit)
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (types.Category, error) {
	return r.getBySlug(ctx, slug)
}

func (r *CategoryRepository) Create(ctx context.Context, category types.Category) (types.Category, error) {
	return r.create(ctx, category)
}

func (r *CategoryRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return r.deleteBySlug(ctx, slug)
}

// GenreRepository handles persistence for genres. Deleting a genre removes
// it from every title.
type GenreRepository struct {
	taxonomy
}

func NewGenreRepository(db *sql.DB) *GenreRepository {
	return &GenreRepository{taxonomy{db: db, table: "genres"}}
}

func (r *GenreRepository) List(ctx context.Context, offset, limit int) ([]types.Genre, int, error) {
	items, total, err := r.list(ctx, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	return toGenres(items), total, nil
}

func (r *GenreRepository) GetBySlug(ctx context.Context, slug string) (types.Genre, error) {
	item, err := r.getBySlug(ctx, slug)
	return types.Genre(item), err
}

// ListBySlugs returns the genres whose slug is in slugs. Unknown slugs are
// absent from the result.
func (r *GenreRepository) ListBySlugs(ctx context.Context, slugs []string) ([]types.Genre, error) {
	items, err := r.listBySlugs(ctx, slugs)
	if err != nil {
		return nil, err
	}
	return toGenres(items), nil
}

func (r *GenreRepository) Create(ctx context.Context, genre types.Genre) (types.Genre, error) {
	item, err := r.create(ctx, types.Category(genre))
	return types.Genre(item), err
}

func (r *GenreRepository) DeleteBySlug(ctx context.Context, slug string) error {
	return r.deleteBySlug(ctx, slug)
}

func toGenres(items []types.Category) []types.Genre {
	genres := make([]types.Genre, 0, len(items))
	for _, item := range items {
		genres = append(genres, types.Genre(item))
	}
	return genres
}
