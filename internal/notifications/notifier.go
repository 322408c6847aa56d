// Package notifications provides best-effort realtime delivery over Redis pub/sub and
// websockets.
package notifications

import (
	"context"
	"runtime/debug"

	"campusfeed/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const userPattern = "notifications:user:*"

// Notifier publishes events into Redis user channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every publish into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a raw payload to a user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishEvent encodes an event frame and publishes it to the user's channel.
func (n *Notifier) PublishEvent(ctx context.Context, userID uint, eventType string, payload any) error {
	msg, err := EncodeEvent(eventType, payload)
	if err != nil {
		return err
	}
	return n.PublishUser(ctx, userID, msg)
}

// StartPatternSubscriber subscribes to every user channel and calls onMessage for each
// incoming message until ctx is cancelled. A panicking callback is logged and skipped.
func (n *Notifier) StartPatternSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n == nil || n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userPattern)
	// Wait for the subscription so publishes right after start are not lost.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
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
								"panic", r, "stack", string(debug.Stack()))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
