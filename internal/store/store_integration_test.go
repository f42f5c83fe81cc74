//go:build integration

package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/yamdb/apiserver/internal/db"
	"github.com/yamdb/apiserver/types"
)

const migrationsURL = "file://../db/migrations"

var testDB *sql.DB

func TestMain(m *testing.M) {
	os.Exit(run(m))
}

func run(m *testing.M) int {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		fmt.Fprintln(os.Stderr, "skipping store integration tests: docker not available")
		return 0
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "yamdb",
				"POSTGRES_PASSWORD": "yamdb",
				"POSTGRES_DB":       "yamdb",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "start postgres: %v\n", err)
		return 1
	}
	defer func() {
		_ = container.Terminate(context.Background())
	}()

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		return 1
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container port: %v\n", err)
		return 1
	}

	dsn := fmt.Sprintf("postgres://yamdb:yamdb@%s:%s/yamdb?sslmode=disable", host, port.Port())
	if err := db.MigrateUp(migrationsURL, dsn); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		return 1
	}
	testDB, err = db.OpenDSN(ctx, dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 1
	}
	defer testDB.Close()

	return m.Run()
}

// seed creates a user, a category, a genre and a title tagged with both.
func seed(t *testing.T, suffix string) (types.User, types.Category, types.Genre, int64) {
	t.Helper()
	ctx := context.Background()

	user, err := NewUserRepository(testDB).Create(ctx, types.User{
		Username: "user_" + suffix,
		Email:    suffix + "@example.com",
		Role:     types.RoleUser,
		IsActive: true,
	})
	require.NoError(t, err)

	category, err := NewCategoryRepository(testDB).Create(ctx, types.Category{Name: "Films", Slug: "films-" + suffix})
	require.NoError(t, err)
	genre, err := NewGenreRepository(testDB).Create(ctx, types.Genre{Name: "Drama", Slug: "drama-" + suffix})
	require.NoError(t, err)

	titleID, err := NewTitleRepository(testDB).Create(ctx, TitleRecord{
		Name:       "Heat " + suffix,
		Year:       1995,
		CategoryID: &category.ID,
		GenreIDs:   []int64{genre.ID},
	})
	require.NoError(t, err)
	return user, category, genre, titleID
}

func TestUsers_UniqueConstraints(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(testDB)
	user, _, _, _ := seed(t, "uniq")

	_, err := users.Create(ctx, types.User{Username: user.Username, Email: "other@example.com", Role: types.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, ConstraintUsername, ConstraintOf(err))

	_, err = users.Create(ctx, types.User{Username: "someone", Email: user.Email, Role: types.RoleUser})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, ConstraintEmail, ConstraintOf(err))

	usernameTaken, emailTaken, err := users.Taken(ctx, user.Username, "free@example.com")
	require.NoError(t, err)
	assert.True(t, usernameTaken)
	assert.False(t, emailTaken)
}

func TestUsers_CreateWithRollsBack(t *testing.T) {
	ctx := context.Background()
	users := NewUserRepository(testDB)

	_, err := users.CreateWith(ctx, types.User{Username: "rollback", Email: "rollback@example.com", Role: types.RoleUser},
		func(context.Context, types.User) error { return fmt.Errorf("mail down") })
	require.Error(t, err)

	_, err = users.GetByUsername(ctx, "rollback")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTitles_RatingIsNullWithoutReviews(t *testing.T) {
	ctx := context.Background()
	_, _, _, titleID := seed(t, "rating")
	titles := NewTitleRepository(testDB)

	rating, err := titles.Rating(ctx, titleID)
	require.NoError(t, err)
	assert.Nil(t, rating)

	reviewers := []string{"r1", "r2"}
	for i, name := range reviewers {
		u, err := NewUserRepository(testDB).Create(ctx, types.User{Username: "rating_" + name, Email: name + "@rating.test", Role: types.RoleUser})
		require.NoError(t, err)
		_, err = NewReviewRepository(testDB).Create(ctx, types.Review{TitleID: titleID, AuthorID: u.ID, Text: "t", Score: 7 + i*2})
		require.NoError(t, err)
	}

	rating, err = titles.Rating(ctx, titleID)
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.InDelta(t, 8.0, *rating, 1e-9)

	_, err = titles.Rating(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviews_ConcurrentDuplicatesKeepOne(t *testing.T) {
	ctx := context.Background()
	user, _, _, titleID := seed(t, "race")
	reviews := NewReviewRepository(testDB)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reviews.Create(ctx, types.Review{TitleID: titleID, AuthorID: user.ID, Text: "race", Score: 5})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
		assert.Equal(t, ConstraintReviewPerAuthor, ConstraintOf(err))
	}
	assert.Equal(t, 1, succeeded)

	_, total, err := reviews.List(ctx, titleID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

func TestReviews_MissingTitleIsReferenceError(t *testing.T) {
	user, _, _, _ := seed(t, "fk")

	_, err := NewReviewRepository(testDB).Create(context.Background(), types.Review{TitleID: 999999, AuthorID: user.ID, Text: "x", Score: 5})
	assert.ErrorIs(t, err, ErrReference)
	assert.Equal(t, ConstraintReviewTitle, ConstraintOf(err))
}

func TestDeletes_Cascade(t *testing.T) {
	ctx := context.Background()
	user, category, genre, titleID := seed(t, "cascade")
	titles := NewTitleRepository(testDB)
	reviews := NewReviewRepository(testDB)
	comments := NewCommentRepository(testDB)

	review, err := reviews.Create(ctx, types.Review{TitleID: titleID, AuthorID: user.ID, Text: "great", Score: 9})
	require.NoError(t, err)
	comment, err := comments.Create(ctx, types.Comment{ReviewID: review.ID, AuthorID: user.ID, Text: "agreed"})
	require.NoError(t, err)

	t.Run("category delete leaves title uncategorized", func(t *testing.T) {
		require.NoError(t, NewCategoryRepository(testDB).DeleteBySlug(ctx, category.Slug))
		title, err := titles.Get(ctx, titleID)
		require.NoError(t, err)
		assert.Nil(t, title.Category)
	})

	t.Run("genre delete detaches it from titles", func(t *testing.T) {
		require.NoError(t, NewGenreRepository(testDB).DeleteBySlug(ctx, genre.Slug))
		title, err := titles.Get(ctx, titleID)
		require.NoError(t, err)
		assert.Empty(t, title.Genres)
	})

	t.Run("title delete removes reviews and comments", func(t *testing.T) {
		require.NoError(t, titles.Delete(ctx, titleID))

		_, err := reviews.Get(ctx, titleID, review.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = comments.Get(ctx, review.ID, comment.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
