package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
)

// Transport enqueues one event on a named channel. A nil error means the
// broker accepted the event; nothing is implied about downstream processing.
type Transport interface {
	Send(ctx context.Context, channel string, event Event) error
	Close() error
}

// RedisStreamTransport appends events to Redis streams, one stream per
// channel.
type RedisStreamTransport struct {
	client redis.Cmdable
}

func NewRedisStreamTransport(client redis.Cmdable) *RedisStreamTransport {
	return &RedisStreamTransport{client: client}
}

func (t *RedisStreamTransport) Send(ctx context.Context, channel string, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	args := &redis.XAddArgs{
		Stream: channel,
		Values: map[string]any{"event": eventJSON},
	}
	if _, err := t.client.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", channel, err)
	}
	return nil
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (t *RedisStreamTransport) Close() error { return nil }

// messageWriter is the subset of *kafka.Writer the transport needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaTransport publishes events to Kafka, using the channel as topic.
type KafkaTransport struct {
	writer messageWriter
}

func NewKafkaTransport(brokers []string, clientID string) *KafkaTransport {
	return &KafkaTransport{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		Transport:              &kafka.Transport{ClientID: clientID},
	}}
}

func (t *KafkaTransport) Send(ctx context.Context, channel string, event Event) error {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := kafka.Message{
		Topic:   channel,
		Value:   eventJSON,
		Headers: []kafka.Header{{Key: "event-type", Value: []byte(event.Type)}},
	}
	if err := t.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", channel, err)
	}
	return nil
}

func (t *KafkaTransport) Close() error {
	return t.writer.Close()
}
