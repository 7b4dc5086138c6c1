// Package notifications delivers feed events to followers over Redis pub/sub
// and WebSocket connections.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"

	"microblog/internal/middleware"
	"microblog/internal/models"
	"microblog/internal/observability"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix  = "notifications:user:"
	userChannelPattern = userChannelPrefix + "*"

	// EventNewPost is sent to followers when someone they follow posts.
	EventNewPost = "new_post"
)

// Event is the envelope written to WebSocket clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// UserChannel returns the pub/sub channel for one user's notifications.
func UserChannel(userID uint) string {
	return fmt.Sprintf("%s%d", userChannelPrefix, userID)
}

// Notifier provides helpers to publish notifications into Redis channels
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
// A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether a Redis client is configured.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishUser sends a notification payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if !n.Enabled() {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishNewPost fans a new_post event out to every follower in one pipeline.
func (n *Notifier) PublishNewPost(ctx context.Context, followerIDs []uint, post models.PostResponse) error {
	if !n.Enabled() || len(followerIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(Event{Type: EventNewPost, Payload: post})
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, span := observability.StartRedisSpan(ctx, "publish_new_post")
	defer span.End()

	_, err = n.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, id := range followerIDs {
			p.Publish(ctx, UserChannel(id), payload)
		}
		return nil
	})
	if err != nil {
		observability.RecordError(ctx, err)
		return fmt.Errorf("publish new post: %w", err)
	}
	return nil
}

// StartPatternSubscriber subscribes to `notifications:user:*` and calls
// onMessage for each incoming message until ctx is cancelled. The
// subscription is confirmed before it returns so no early publish is lost.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel string, payload string)) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", userChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in notification subscriber",
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
