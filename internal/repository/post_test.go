package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"microblog/internal/cache"
	"microblog/internal/models"
	"microblog/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func postIDs(posts []*models.Post) []uint {
	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{Content: "Content", UserID: 1, Sentiment: models.SentimentNeutral}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(1), post.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_FeedUsesFollowSubquery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(`posts\.user_id IN \(SELECT "?followed_id"? FROM "follows" WHERE follower_id = \$1\)` +
		`.*ORDER BY "posts"\."created_at" DESC,\s*"posts"\."id" DESC`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content", "user_id"}))

	posts, err := repo.Feed(context.Background(), 7, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	p1 := testutil.CreatePost(t, db, alice.ID, "first", base)
	p2 := testutil.CreatePost(t, db, alice.ID, "second", base.Add(time.Minute))
	p3 := testutil.CreatePost(t, db, alice.ID, "third", base.Add(2*time.Minute))
	// Same timestamp as p3: the higher id wins.
	p4 := testutil.CreatePost(t, db, alice.ID, "fourth", base.Add(2*time.Minute))

	posts, err := repo.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{p4.ID, p3.ID, p2.ID, p1.ID}, postIDs(posts))
	assert.Equal(t, "alice", posts[0].User.Username)

	page, err := repo.List(ctx, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint{p3.ID, p2.ID}, postIDs(page))
}

func TestPostRepository_Feed(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	a := testutil.CreateUser(t, db, "usera")
	b := testutil.CreateUser(t, db, "userb")
	c := testutil.CreateUser(t, db, "userc")
	d := testutil.CreateUser(t, db, "userd")

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	pb1 := testutil.CreatePost(t, db, b.ID, "b one", base)
	pc1 := testutil.CreatePost(t, db, c.ID, "c one", base.Add(time.Minute))
	testutil.CreatePost(t, db, d.ID, "d one", base.Add(2*time.Minute))
	testutil.CreatePost(t, db, a.ID, "a own", base.Add(3*time.Minute))
	pb2 := testutil.CreatePost(t, db, b.ID, "b two", base.Add(4*time.Minute))

	t.Run("empty when following nobody", func(t *testing.T) {
		posts, err := repo.Feed(ctx, a.ID, 0, 0)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	testutil.CreateFollow(t, db, a.ID, b.ID)
	testutil.CreateFollow(t, db, a.ID, c.ID)
	testutil.CreateFollow(t, db, d.ID, a.ID)

	t.Run("only followed authors, newest first", func(t *testing.T) {
		posts, err := repo.Feed(ctx, a.ID, 0, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{pb2.ID, pc1.ID, pb1.ID}, postIDs(posts))
		for _, p := range posts {
			assert.NotEmpty(t, p.User.Username)
		}
	})

	t.Run("paged", func(t *testing.T) {
		posts, err := repo.Feed(ctx, a.ID, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{pc1.ID}, postIDs(posts))
	})
}

func TestPostRepository_GetUpdateDelete(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "hello", time.Now())

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)
	assert.Equal(t, "alice", got.User.Username)

	got.Content = "edited"
	got.Sentiment = models.SentimentPositive
	require.NoError(t, repo.Update(ctx, got))

	reloaded, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", reloaded.Content)
	assert.Equal(t, models.SentimentPositive, reloaded.Sentiment)
	assert.Equal(t, alice.ID, reloaded.UserID)

	require.NoError(t, repo.Delete(ctx, post.ID))

	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "got %v", err)

	var count int64
	require.NoError(t, db.Unscoped().Model(&models.Post{}).Where("id = ?", post.ID).Count(&count).Error)
	assert.Zero(t, count)

	err = repo.Delete(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "got %v", err)
}

func TestPostRepository_DeleteDuringCachedRead(t *testing.T) {
	mr := miniredis.RunT(t)
	cache.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = cache.Close() })

	db := testutil.NewSQLiteDB(t)
	repo := NewPostRepository(db)
	ctx := context.Background()

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "soon gone", time.Now())

	// Delete the post after GetByID has loaded it but before it is cached.
	deleted := false
	require.NoError(t, db.Callback().Query().After("gorm:preload").Register("test:delete_mid_read", func(tx *gorm.DB) {
		if deleted || tx.Statement.Table != "posts" {
			return
		}
		deleted = true
		require.NoError(t, repo.Delete(ctx, post.ID))
	}))

	got, err := repo.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "soon gone", got.Content)
	require.True(t, deleted)
	assert.False(t, mr.Exists(cache.PostKey(post.ID)), "deleted post must not be cached")

	_, err = repo.GetByID(ctx, post.ID)
	assert.True(t, models.HasCode(err, models.CodeNotFound), "got %v", err)
}
