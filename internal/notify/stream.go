package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/mesophy/internal/model"
)

// DefaultStream is the redis stream notifications are appended to.
const DefaultStream = "device-notifications"

// StreamPublisher appends notifications to a redis stream with XADD.
type StreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewStreamPublisher(client *redis.Client, stream string) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream, maxLen: 10000}
}

func (p *StreamPublisher) Publish(ctx context.Context, n model.DeviceNotification) error {
	values := map[string]any{
		"id":        n.ID,
		"screen_id": n.ScreenID,
		"type":      n.NotificationType,
		"title":     n.Title,
		"priority":  strconv.Itoa(n.Priority),
		"payload":   string(n.Payload),
	}

	messageID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: values,
	}).Result()
	if err != nil {
		return fmt.Errorf("xadd to %s: %w", p.stream, err)
	}

	log.Debug().Str("stream", p.stream).Str("message_id", messageID).Str("screen_id", n.ScreenID).
		Msg("notification appended to stream")
	return nil
}
