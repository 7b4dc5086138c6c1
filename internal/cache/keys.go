package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache-aside lifetimes. Users never change after registration, so their
// entries only age out; posts are invalidated on edit and buried on delete.
const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
)

const keyspace = "microblog:"

func UserKey(userID uint) string {
	return keyspace + "user:" + strconv.FormatUint(uint64(userID), 10)
}

func PostKey(postID uint) string {
	return keyspace + "post:" + strconv.FormatUint(uint64(postID), 10)
}

// Invalidate deletes keys in one round trip. No-op without Redis.
func Invalidate(ctx context.Context, keys ...string) {
	if client == nil || len(keys) == 0 {
		return
	}
	// Failures are counted by the client hook; a stale entry expires on its own.
	_ = client.Del(ctx, keys...).Err()
}

func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
}

func tombstoneKey(key string) string {
	return key + ":gone"
}

// Bury drops key and keeps Aside from refilling it for ttl, including fills
// from reads that loaded the row before it was removed. No-op without Redis.
func Bury(ctx context.Context, key string, ttl time.Duration) {
	if client == nil {
		return
	}
	_, _ = client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, tombstoneKey(key), 1, ttl)
		pipe.Del(ctx, key)
		return nil
	})
}
