package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"campus_chat_service/internal/chat/domain"
	"campus_chat_service/pkg/database"
	"campus_chat_service/pkg/logger"
	testtool "campus_chat_service/pkg/test_tool"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPubSubRoundTrip(t *testing.T) {
	logger.SetNewNop()
	host, port := testtool.StartOrSkip(t, testtool.RedisRequest())

	client, err := database.NewRedisStandalone(fmt.Sprintf("%s:%s", host, port), 0)
	require.NoError(t, err)
	defer client.Close()

	ps := NewRedisPubSub(client)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan domain.RoomEvent, 1)
	channel := RoomChannel("community-chat")
	require.NoError(t, ps.Subscribe(ctx, channel, func(e domain.RoomEvent) { got <- e }))

	data, _ := json.Marshal(domain.TypingPayload{UserID: "u1", IsTyping: true})
	require.NoError(t, ps.Publish(ctx, channel, domain.RoomEvent{Origin: "node-a", Event: domain.EventUserTyping, Data: data}))

	select {
	case e := <-got:
		assert.Equal(t, "node-a", e.Origin)
		assert.Equal(t, domain.EventUserTyping, e.Event)
		assert.JSONEq(t, `{"userId":"u1","isTyping":true}`, string(e.Data))
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
