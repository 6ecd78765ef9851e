package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
)

// Activity event types.
const (
	EventActivityPublished = "activity.published"
	EventActivityUpdated   = "activity.updated"
	EventActivityDeleted   = "activity.deleted"
)

// ActivityEvent announces a change to the activity feed.
type ActivityEvent struct {
	Source     string    `json:"source"`
	Type       string    `json:"type"`
	ActivityID string    `json:"activity_id"`
	Ambiente   string    `json:"ambiente,omitempty"`
	Title      string    `json:"title,omitempty"`
	ItemCount  int       `json:"item_count"`
	ActorUID   string    `json:"actor_uid"`
	SentAt     time.Time `json:"sent_at"`
}

// ActivityPublisher fans activity events out to other nodes and consumers.
type ActivityPublisher interface {
	Publish(ctx context.Context, event ActivityEvent) error
}

type brokerActivityPublisher struct {
	redis       *redis.Client
	redisStream string
	nats        *nats.Conn
	natsSubject string
	nodeID      string
}

// NewActivityPublisher publishes on <channelBase>:activities over redis and
// <channelBase>.activities over NATS. Nil clients are skipped.
func NewActivityPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string) ActivityPublisher {
	stream := ""
	subject := ""
	if channelBase != "" {
		stream = channelBase + ":activities"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".activities"
	}

	return &brokerActivityPublisher{
		redis:       redisClient,
		redisStream: stream,
		nats:        natsConn,
		natsSubject: subject,
		nodeID:      uuid.NewString(),
	}
}

func (p *brokerActivityPublisher) Publish(ctx context.Context, event ActivityEvent) error {
	event.Source = p.nodeID
	if event.SentAt.IsZero() {
		event.SentAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisStream != "" {
		if err := p.redis.Publish(ctx, p.redisStream, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.nats != nil && p.natsSubject != "" {
		if err := p.nats.Publish(p.natsSubject, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
