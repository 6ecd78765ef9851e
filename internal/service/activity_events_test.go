package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestActivityPublisherRedisChannel(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	defer server.Close()

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "portal:activities")
	defer sub.Close()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewActivityPublisher(client, nil, "portal")
	require.NoError(t, publisher.Publish(ctx, ActivityEvent{Type: EventActivityPublished, ActivityID: "a1", Ambiente: "taller1"}))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event ActivityEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, "a1", event.ActivityID)
	require.NotEmpty(t, event.Source)
	require.False(t, event.SentAt.IsZero())
}

func TestActivityPublisherSubjects(t *testing.T) {
	publisher := NewActivityPublisher(nil, nil, "portal:prod").(*brokerActivityPublisher)
	require.Equal(t, "portal:prod:activities", publisher.redisStream)
	require.Equal(t, "portal.prod.activities", publisher.natsSubject)

	require.NoError(t, publisher.Publish(context.Background(), ActivityEvent{Type: EventActivityDeleted}))

	disabled := NewActivityPublisher(nil, nil, "").(*brokerActivityPublisher)
	require.Empty(t, disabled.natsSubject)
}
