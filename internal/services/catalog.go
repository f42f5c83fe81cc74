package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/yamdb/apiserver/internal/apperr"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/internal/validation"
	"github.com/yamdb/apiserver/types"
)

// TaxonomyInput creates a category or a genre.
type TaxonomyInput struct {
	Name string `json:"name" validate:"required,max=256"`
	Slug string `json:"slug" validate:"required,max=50,slug"`
}

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Category, int, error)
	GetBySlug(ctx context.Context, slug string) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

// GenreRepository defines persistence operations for genres.
type GenreRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Genre, int, error)
	ListBySlugs(ctx context.Context, slugs []string) ([]types.Genre, error)
	Create(ctx context.Context, genre types.Genre) (types.Genre, error)
	DeleteBySlug(ctx context.Context, slug string) error
}

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repo CategoryRepository
}

func NewCategoryService(repo CategoryRepository) *CategoryService {
	return &CategoryService{repo: repo}
}

func (s *CategoryService) List(ctx context.Context, offset, limit int) ([]types.Category, int, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *CategoryService) Create(ctx context.Context, in TaxonomyInput) (types.Category, error) {
	if err := validation.Struct(in); err != nil {
		return types.Category{}, err
	}
	created, err := s.repo.Create(ctx, types.Category{Name: in.Name, Slug: in.Slug})
	if err != nil {
		return types.Category{}, conflict(err, map[string]error{store.ConstraintCategorySlug: apperr.ErrSlugTaken})
	}
	return created, nil
}

// Delete removes the category. Its titles remain, uncategorized.
func (s *CategoryService) Delete(ctx context.Context, slug string) error {
	return notFound(s.repo.DeleteBySlug(ctx, slug))
}

// GenreService encapsulates genre use-cases.
type GenreService struct {
	repo GenreRepository
}

func NewGenreService(repo GenreRepository) *GenreService {
	return &GenreService{repo: repo}
}

func (s *GenreService) List(ctx context.Context, offset, limit int) ([]types.Genre, int, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *GenreService) Create(ctx context.Context, in TaxonomyInput) (types.Genre, error) {
	if err := validation.Struct(in); err != nil {
		return types.Genre{}, err
	}
	created, err := s.repo.Create(ctx, types.Genre{Name: in.Name, Slug: in.Slug})
	if err != nil {
		return types.Genre{}, conflict(err, map[string]error{store.ConstraintGenreSlug: apperr.ErrSlugTaken})
	}
	return created, nil
}

// Delete removes the genre from the catalog and from every title.
func (s *GenreService) Delete(ctx context.Context, slug string) error {
	return notFound(s.repo.DeleteBySlug(ctx, slug))
}

// TitleInput is the write payload of a title. Category and genres are
// referenced by slug.
type TitleInput struct {
	Name        string   `json:"name" validate:"required,max=256"`
	Year        *int     `json:"year" validate:"required"`
	Description *string  `json:"description"`
	Category    string   `json:"category" validate:"required"`
	Genre       []string `json:"genre" validate:"required"`
}

// TitlePatch is a partial title update. Nil fields are left unchanged.
type TitlePatch struct {
	Name        *string   `json:"name" validate:"omitempty,max=256"`
	Year        *int      `json:"year"`
	Description *string   `json:"description"`
	Category    *string   `json:"category"`
	Genre       *[]string `json:"genre"`
}

// TitleRepository defines persistence operations for titles.
type TitleRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Title, int, error)
	Get(ctx context.Context, id int64) (types.Title, error)
	Exists(ctx context.Context, id int64) (bool, error)
	Rating(ctx context.Context, id int64) (*float64, error)
	Create(ctx context.Context, rec store.TitleRecord) (int64, error)
	Update(ctx context.Context, rec store.TitleRecord) error
	Delete(ctx context.Context, id int64) error
}

// TitleService encapsulates title use-cases.
type TitleService struct {
	repo       TitleRepository
	categories CategoryRepository
	genres     GenreRepository
	now        func() time.Time
}

func NewTitleService(repo TitleRepository, categories CategoryRepository, genres GenreRepository) *TitleService {
	return &TitleService{
		repo:       repo,
		categories: categories,
		genres:     genres,
		now:        time.Now,
	}
}

func (s *TitleService) List(ctx context.Context, offset, limit int) ([]types.Title, int, error) {
	return s.repo.List(ctx, offset, clampLimit(limit))
}

func (s *TitleService) Get(ctx context.Context, id int64) (types.Title, error) {
	title, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.Title{}, notFound(err)
	}
	return title, nil
}

// Rating returns the mean review score of the title, or nil when it has
// no reviews yet.
func (s *TitleService) Rating(ctx context.Context, id int64) (*float64, error) {
	rating, err := s.repo.Rating(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return rating, nil
}

func (s *TitleService) Create(ctx context.Context, in TitleInput) (types.Title, error) {
	if err := validation.Struct(in); err != nil {
		return types.Title{}, err
	}
	rec, err := s.record(ctx, in.Name, *in.Year, in.Description, &in.Category, in.Genre)
	if err != nil {
		return types.Title{}, err
	}

	id, err := s.repo.Create(ctx, rec)
	if err != nil {
		return types.Title{}, referenceError(err)
	}
	return s.Get(ctx, id)
}

func (s *TitleService) Update(ctx context.Context, id int64, patch TitlePatch) (types.Title, error) {
	if err := validation.Struct(patch); err != nil {
		return types.Title{}, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return types.Title{}, err
	}

	name, year, description := current.Name, current.Year, current.Description
	if patch.Name != nil {
		name = *patch.Name
	}
	if patch.Year != nil {
		year = *patch.Year
	}
	if patch.Description != nil {
		description = patch.Description
	}
	var category *string
	if patch.Category != nil {
		category = patch.Category
	} else if current.Category != nil {
		category = &current.Category.Slug
	}
	genres := make([]string, 0, len(current.Genres))
	if patch.Genre != nil {
		genres = *patch.Genre
	} else {
		for _, g := range current.Genres {
			genres = append(genres, g.Slug)
		}
	}

	rec, err := s.record(ctx, name, year, description, category, genres)
	if err != nil {
		return types.Title{}, err
	}
	rec.ID = id
	if err := s.repo.Update(ctx, rec); err != nil {
		return types.Title{}, referenceError(notFound(err))
	}
	return s.Get(ctx, id)
}

// Delete removes the title along with its reviews and their comments.
func (s *TitleService) Delete(ctx context.Context, id int64) error {
	return notFound(s.repo.Delete(ctx, id))
}

// record validates the year and resolves slugs into a writable record.
// A nil or empty category slug leaves the title uncategorized.
func (s *TitleService) record(ctx context.Context, name string, year int, description *string, category *string, genreSlugs []string) (store.TitleRecord, error) {
	if year > s.now().Year()+1 {
		return store.TitleRecord{}, apperr.ErrInvalidYear
	}
	rec := store.TitleRecord{Name: name, Year: year, Description: description}

	if category != nil && strings.TrimSpace(*category) != "" {
		c, err := s.categories.GetBySlug(ctx, *category)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.TitleRecord{}, apperr.ErrUnknownCategory
			}
			return store.TitleRecord{}, err
		}
		rec.CategoryID = &c.ID
	}

	unique := dedupe(genreSlugs)
	if len(unique) > 0 {
		genres, err := s.genres.ListBySlugs(ctx, unique)
		if err != nil {
			return store.TitleRecord{}, err
		}
		if len(genres) != len(unique) {
			return store.TitleRecord{}, apperr.ErrUnknownGenre
		}
		for _, g := range genres {
			rec.GenreIDs = append(rec.GenreIDs, g.ID)
		}
	}
	return rec, nil
}

// referenceError maps a foreign key race (category or genre deleted
// between lookup and write) to the matching validation error.
func referenceError(err error) error {
	if !errors.Is(err, store.ErrReference) {
		return err
	}
	switch store.ConstraintOf(err) {
	case store.ConstraintTitleCategory:
		return apperr.ErrUnknownCategory
	case store.ConstraintTitleGenre:
		return apperr.ErrUnknownGenre
	default:
		return err
	}
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
