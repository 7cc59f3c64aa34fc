// Package notifications delivers realtime notifications to connected
// websocket clients, fanned out through Redis pub/sub so every API instance
// reaches its own sockets.
package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"strings"

	"folio/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const (
	userChannelPrefix = "notifications:user:"
	broadcastChannel  = "notifications:broadcast"
)

// Message is the JSON frame pushed to clients.
type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Sink receives locally delivered payloads. The Hub implements it.
type Sink interface {
	Broadcast(userID uint, payload string)
	BroadcastAll(payload string)
}

// Notifier publishes notification payloads into Redis channels. Without
// Redis it hands payloads straight to the attached local sink.
type Notifier struct {
	rdb   *redis.Client
	local Sink
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser sends a message to one user's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if n.rdb == nil {
		if n.local != nil {
			n.local.Broadcast(userID, string(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast sends a message to every connected user.
func (n *Notifier) PublishBroadcast(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if n.rdb == nil {
		if n.local != nil {
			n.local.BroadcastAll(string(payload))
		}
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartSubscriber subscribes to every user channel and the broadcast channel
// and calls onMessage until ctx is done.
func (n *Notifier) StartSubscriber(ctx context.Context, onMessage func(channel, payload string)) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe notifications: %w", err)
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
								slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}

// UserChannel derives the Redis channel name for a user.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// parseUserChannel extracts the user id from a user channel name.
func parseUserChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
