package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"support_chat_service/internal/support/domain"
	"support_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// EventBus room-addressable fanout. A publish reaches every connection whose
// handler is currently subscribed to the room; there is no buffering or replay.
type EventBus interface {
	Publish(room, event string, payload interface{}) error
	Subscribe(ctx context.Context, room string, handler func(evt domain.Event)) error
	NumSub(room string) (int64, error)
}

// RedisPubSub definition redis pub/sub backed EventBus
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish serialize the event and publish it to the room channel
func (r *RedisPubSub) Publish(room, event string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(domain.Event{Name: event, Payload: body})
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, room, data).Err()
}

// Subscribe join the room channel, calling handler for every event until ctx
// is cancelled. Events published before the subscription settles are lost.
func (r *RedisPubSub) Subscribe(ctx context.Context, room string, handler func(evt domain.Event)) error {
	sub := r.client.Subscribe(r.ctx, room)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var evt domain.Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					logger.Log.Error(fmt.Sprintf("event decode failed on %s: %v", room, err))
					continue
				}
				handler(evt)
			case <-ctx.Done():
				logger.Log.Debug(fmt.Sprintf("%s , sub close", room))
				sub.Close()
				return
			}
		}
	}()
	return nil
}

// NumSub count live subscribers of the room channel, the presence answer
func (r *RedisPubSub) NumSub(room string) (int64, error) {
	counts, err := r.client.PubSubNumSub(r.ctx, room).Result()
	if err != nil {
		return 0, err
	}
	return counts[room], nil
}
