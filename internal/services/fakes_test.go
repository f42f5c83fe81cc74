package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yamdb/apiserver/internal/mail"
	"github.com/yamdb/apiserver/internal/store"
	"github.com/yamdb/apiserver/types"
)

type fakeUsers struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.User
}

func newFakeUsers(seed ...types.User) *fakeUsers {
	f := &fakeUsers{byID: map[int64]types.User{}}
	for _, u := range seed {
		f.nextID++
		u.ID = f.nextID
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.User, 0, len(f.byID))
	for id := f.nextID; id > 0; id-- {
		if u, ok := f.byID[id]; ok {
			out = append(out, u)
		}
	}
	total := len(out)
	if offset > total {
		offset = total
	}
	end := min(offset+limit, total)
	return out[offset:end], total, nil
}

func (f *fakeUsers) Taken(_ context.Context, username, email string) (bool, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var u, e bool
	for _, existing := range f.byID {
		u = u || existing.Username == username
		e = e || existing.Email == email
	}
	return u, e, nil
}

func (f *fakeUsers) conflictWith(user types.User) error {
	for _, existing := range f.byID {
		if existing.ID == user.ID {
			continue
		}
		if existing.Username == user.Username {
			return &store.ConstraintError{Kind: store.ErrConflict, Constraint: store.ConstraintUsername}
		}
		if existing.Email == user.Email {
			return &store.ConstraintError{Kind: store.ErrConflict, Constraint: store.ConstraintEmail}
		}
	}
	return nil
}

func (f *fakeUsers) CreateWith(ctx context.Context, user types.User, after func(context.Context, types.User) error) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.conflictWith(user); err != nil {
		return types.User{}, err
	}
	f.nextID++
	user.ID = f.nextID
	if after != nil {
		if err := after(ctx, user); err != nil {
			f.nextID--
			return types.User{}, err
		}
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) Update(_ context.Context, user types.User) (types.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	if err := f.conflictWith(user); err != nil {
		return types.User{}, err
	}
	f.byID[user.ID] = user
	return user, nil
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	return m.Called(ctx, msg).Error(0)
}

type stubIssuer struct {
	issued []int64
}

func (s *stubIssuer) Issue(userID int64, _ time.Time) (string, error) {
	s.issued = append(s.issued, userID)
	return "token-for-user", nil
}

type fakeTitles struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]store.TitleRecord
	scores map[int64][]int
}

func newFakeTitles() *fakeTitles {
	return &fakeTitles{byID: map[int64]store.TitleRecord{}, scores: map[int64][]int{}}
}

func (f *fakeTitles) List(ctx context.Context, offset, limit int) ([]types.Title, int, error) {
	f.mu.Lock()
	ids := make([]int64, 0, len(f.byID))
	for id := f.nextID; id > 0; id-- {
		if _, ok := f.byID[id]; ok {
			ids = append(ids, id)
		}
	}
	f.mu.Unlock()

	out := make([]types.Title, 0, len(ids))
	for _, id := range ids {
		t, err := f.Get(ctx, id)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, t)
	}
	return out, len(out), nil
}

func (f *fakeTitles) Get(_ context.Context, id int64) (types.Title, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.byID[id]
	if !ok {
		return types.Title{}, store.ErrNotFound
	}
	t := types.Title{ID: rec.ID, Name: rec.Name, Year: rec.Year, Description: rec.Description}
	if rec.CategoryID != nil {
		t.Category = &types.Category{ID: *rec.CategoryID, Slug: slugOf(*rec.CategoryID)}
	}
	for _, g := range rec.GenreIDs {
		t.Genres = append(t.Genres, types.Genre{ID: g, Slug: slugOf(g)})
	}
	return t, nil
}

func (f *fakeTitles) Exists(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.byID[id]
	return ok, nil
}

func (f *fakeTitles) Rating(_ context.Context, id int64) (*float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return nil, store.ErrNotFound
	}
	scores := f.scores[id]
	if len(scores) == 0 {
		return nil, nil
	}
	sum := 0
	for _, s := range scores {
		sum += s
	}
	avg := float64(sum) / float64(len(scores))
	return &avg, nil
}

func (f *fakeTitles) Create(_ context.Context, rec store.TitleRecord) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	rec.ID = f.nextID
	f.byID[rec.ID] = rec
	return rec.ID, nil
}

func (f *fakeTitles) Update(_ context.Context, rec store.TitleRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[rec.ID]; !ok {
		return store.ErrNotFound
	}
	f.byID[rec.ID] = rec
	return nil
}

func (f *fakeTitles) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

// taxonomy fixtures use id 1..n with slugs "s1".."sn".
func slugOf(id int64) string {
	return "s" + string(rune('0'+id))
}

type fakeCategories struct {
	mu    sync.Mutex
	items []types.Category
}

func (f *fakeCategories) List(_ context.Context, _, _ int) ([]types.Category, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Category(nil), f.items...), len(f.items), nil
}

func (f *fakeCategories) GetBySlug(_ context.Context, slug string) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.items {
		if c.Slug == slug {
			return c, nil
		}
	}
	return types.Category{}, store.ErrNotFound
}

func (f *fakeCategories) Create(_ context.Context, c types.Category) (types.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Slug == c.Slug {
			return types.Category{}, &store.ConstraintError{Kind: store.ErrConflict, Constraint: store.ConstraintCategorySlug}
		}
	}
	c.ID = int64(len(f.items) + 1)
	f.items = append(f.items, c)
	return c, nil
}

func (f *fakeCategories) DeleteBySlug(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, c := range f.items {
		if c.Slug == slug {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeGenres struct {
	mu    sync.Mutex
	items []types.Genre
}

func (f *fakeGenres) List(_ context.Context, _, _ int) ([]types.Genre, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.Genre(nil), f.items...), len(f.items), nil
}

func (f *fakeGenres) ListBySlugs(_ context.Context, slugs []string) ([]types.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Genre
	for _, g := range f.items {
		for _, s := range slugs {
			if g.Slug == s {
				out = append(out, g)
			}
		}
	}
	return out, nil
}

func (f *fakeGenres) Create(_ context.Context, g types.Genre) (types.Genre, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.items {
		if existing.Slug == g.Slug {
			return types.Genre{}, &store.ConstraintError{Kind: store.ErrConflict, Constraint: store.ConstraintGenreSlug}
		}
	}
	g.ID = int64(len(f.items) + 1)
	f.items = append(f.items, g)
	return g, nil
}

func (f *fakeGenres) DeleteBySlug(_ context.Context, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, g := range f.items {
		if g.Slug == slug {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

type reviewKey struct {
	title, author int64
}

type fakeReviews struct {
	mu       sync.Mutex
	nextID   int64
	byID     map[int64]types.Review
	byAuthor map[reviewKey]int64
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{byID: map[int64]types.Review{}, byAuthor: map[reviewKey]int64{}}
}

func (f *fakeReviews) List(_ context.Context, titleID int64, _, _ int) ([]types.Review, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Review
	for _, r := range f.byID {
		if r.TitleID == titleID {
			out = append(out, r)
		}
	}
	return out, len(out), nil
}

func (f *fakeReviews) Get(_ context.Context, titleID, reviewID int64) (types.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[reviewID]
	if !ok || r.TitleID != titleID {
		return types.Review{}, store.ErrNotFound
	}
	return r, nil
}

func (f *fakeReviews) Create(_ context.Context, r types.Review) (types.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := reviewKey{r.TitleID, r.AuthorID}
	if _, ok := f.byAuthor[key]; ok {
		return types.Review{}, &store.ConstraintError{Kind: store.ErrConflict, Constraint: store.ConstraintReviewPerAuthor}
	}
	f.nextID++
	r.ID = f.nextID
	r.PubDate = time.Now().UTC()
	f.byID[r.ID] = r
	f.byAuthor[key] = r.ID
	return r, nil
}

func (f *fakeReviews) Update(_ context.Context, r types.Review) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.byID[r.ID]
	if !ok || existing.TitleID != r.TitleID {
		return store.ErrNotFound
	}
	f.byID[r.ID] = r
	return nil
}

func (f *fakeReviews) Delete(_ context.Context, titleID, reviewID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.byID[reviewID]
	if !ok || r.TitleID != titleID {
		return store.ErrNotFound
	}
	delete(f.byID, reviewID)
	delete(f.byAuthor, reviewKey{r.TitleID, r.AuthorID})
	return nil
}

type fakeComments struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]types.Comment
}

func newFakeComments() *fakeComments {
	return &fakeComments{byID: map[int64]types.Comment{}}
}

func (f *fakeComments) List(_ context.Context, reviewID int64, _, _ int) ([]types.Comment, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Comment
	for _, c := range f.byID {
		if c.ReviewID == reviewID {
			out = append(out, c)
		}
	}
	return out, len(out), nil
}

func (f *fakeComments) Get(_ context.Context, reviewID, commentID int64) (types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[commentID]
	if !ok || c.ReviewID != reviewID {
		return types.Comment{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeComments) Create(_ context.Context, c types.Comment) (types.Comment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	c.ID = f.nextID
	f.byID[c.ID] = c
	return c, nil
}

func (f *fakeComments) Update(_ context.Context, c types.Comment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[c.ID]; !ok {
		return store.ErrNotFound
	}
	f.byID[c.ID] = c
	return nil
}

func (f *fakeComments) Delete(_ context.Context, reviewID, commentID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byID[commentID]
	if !ok || c.ReviewID != reviewID {
		return store.ErrNotFound
	}
	delete(f.byID, commentID)
	return nil
}
