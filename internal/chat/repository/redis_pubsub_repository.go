package repository

import (
	"context"
	"encoding/json"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PubSub cross-instance fan-out of room events
type PubSub interface {
	Publish(ctx context.Context, channel string, event domain.RoomEvent) error
	Subscribe(ctx context.Context, channel string, handler func(domain.RoomEvent)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// RoomChannel redis channel name of a room
func RoomChannel(room string) string {
	return "chat:room:" + room
}

// Publish 將 event 序列化後，發布到指定 channel
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event domain.RoomEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, channel, data).Err()
}

// Subscribe 訂閱 channel，收到訊息後呼叫 handler 處理, stops when ctx is done
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(domain.RoomEvent)) error {
	sub := r.client.Subscribe(ctx, channel)
	// 確認訂閱成功
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}

				var event domain.RoomEvent
				if err := json.Unmarshal([]byte(m.Payload), &event); err != nil {
					logger.Log.Error("room event decode", zap.String("channel", channel), zap.Error(err))
					continue
				}
				handler(event)
			case <-ctx.Done():
				logger.Log.Info("room subscription closed", zap.String("channel", channel))
				return
			}
		}
	}()
	return nil
}
