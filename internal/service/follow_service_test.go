package service

import (
	"context"
	"testing"

	"microblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowService(t *testing.T) {
	alice := &models.User{ID: 1, Username: "alice"}
	bob := &models.User{ID: 2, Username: "bob"}
	follows := newFollowRepoStub()
	svc := NewFollowService(usersByName(alice, bob), follows)
	ctx := context.Background()

	t.Run("follow", func(t *testing.T) {
		target, err := svc.Follow(ctx, alice.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, target.ID)
		assert.True(t, follows.edges[[2]uint{1, 2}])
	})

	t.Run("duplicate follow is 400", func(t *testing.T) {
		_, err := svc.Follow(ctx, alice.ID, "bob")
		assert.True(t, models.HasCode(err, models.CodeValidation), "got %v", err)
		assert.Len(t, follows.edges, 1)
	})

	t.Run("self follow is 400", func(t *testing.T) {
		_, err := svc.Follow(ctx, alice.ID, "alice")
		assert.True(t, models.HasCode(err, models.CodeValidation), "got %v", err)
		assert.EqualError(t, err, "You cannot follow yourself")
	})

	t.Run("missing target on follow is 404", func(t *testing.T) {
		_, err := svc.Follow(ctx, alice.ID, "ghost")
		assert.True(t, models.HasCode(err, models.CodeNotFound), "got %v", err)
	})

	t.Run("unfollow", func(t *testing.T) {
		target, err := svc.Unfollow(ctx, alice.ID, "bob")
		require.NoError(t, err)
		assert.Equal(t, "bob", target.Username)
		assert.Empty(t, follows.edges)
	})

	t.Run("unfollow when not following is 400", func(t *testing.T) {
		_, err := svc.Unfollow(ctx, alice.ID, "bob")
		assert.True(t, models.HasCode(err, models.CodeValidation), "got %v", err)
		assert.EqualError(t, err, "You do not follow this user")
	})

	t.Run("missing target on unfollow is 400", func(t *testing.T) {
		_, err := svc.Unfollow(ctx, alice.ID, "ghost")
		assert.True(t, models.HasCode(err, models.CodeValidation), "got %v", err)
	})
}

func TestFollowService_RepositoryError(t *testing.T) {
	follows := newFollowRepoStub()
	follows.err = models.NewInternalError(assert.AnError)
	svc := NewFollowService(usersByName(&models.User{ID: 1, Username: "a"}, &models.User{ID: 2, Username: "b"}), follows)

	_, err := svc.Follow(context.Background(), 1, "b")
	assert.True(t, models.HasCode(err, models.CodeInternal))
}
