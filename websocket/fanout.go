package websocket

import (
	"context"
	"encoding/json"
	"log"

	"github.com/go-redis/redis/v8"

	"github.com/HSouheill/affiliate_backend/models"
)

// DefaultFanoutChannel is the pub/sub channel shared by every instance.
const DefaultFanoutChannel = "notifications:fanout"

// RedisFanout publishes notifications to every instance; each instance's
// subscriber pushes them to its local hub.
type RedisFanout struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisFanout(client *redis.Client, channel string, hub *Hub) *RedisFanout {
	if channel == "" {
		channel = DefaultFanoutChannel
	}
	return &RedisFanout{client: client, channel: channel, hub: hub}
}

// Dispatch publishes n; delivery happens in Run on every instance, this one included.
func (f *RedisFanout) Dispatch(ctx context.Context, n models.Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, raw).Err()
}

// Run subscribes and forwards messages to the local hub until ctx is cancelled.
func (f *RedisFanout) Run(ctx context.Context) {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var n models.Notification
			if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				log.Printf("Ignoring malformed fan-out message: %v", err)
				continue
			}
			if err := f.hub.Push(ctx, n.SubjectID, n); err != nil {
				log.Printf("Failed to push fanned-out notification %s: %v", n.ID.Hex(), err)
			}
		}
	}
}
