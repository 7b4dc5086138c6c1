//go:build integration

package seed

import (
	"context"
	"os"
	"testing"

	"microblog/internal/config"
	"microblog/internal/database"
	"microblog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run with: DATABASE_URL=postgres://... go test -tags integration ./internal/seed/
func TestSeeder_AgainstPostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	cfg := &config.Config{DatabaseURL: dsn, Env: "test", DBSchemaMode: database.SchemaModeSQL}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	opts := Options{NumUsers: 10, NumPosts: 50, FollowsPerUser: 3, SkipBcrypt: true, Clean: true}
	res, err := NewSeeder(db, opts, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Users: 10, Posts: 50, Follows: 30}, res)

	counts := map[any]int64{&models.User{}: 10, &models.Post{}: 50, &models.Follow{}: 30}
	for model, want := range counts {
		var got int64
		require.NoError(t, db.Model(model).Count(&got).Error)
		assert.Equal(t, want, got, "%T", model)
	}

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("follower_id = followed_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)
}
