package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
)

type Handler func(ctx context.Context, event Event) error

// Subscriber consumes one channel until its context is cancelled. Messages
// whose handler fails are delivered again until the handler succeeds.
type Subscriber interface {
	Start(ctx context.Context) error
}

// RedisSubscriber reads a stream through a consumer group. Entries whose
// handler failed stay in the group's pending list and are reclaimed with
// XAUTOCLAIM once they have been idle for ClaimMinIdle, on start and then
// every ClaimInterval.
type RedisSubscriber struct {
	client        redis.Cmdable
	group         string
	consumer      string
	stream        string
	handler       Handler
	batchSize     int64
	blockDuration time.Duration
	claimMinIdle  time.Duration
	claimInterval time.Duration
	log           *logger.Logger
}

type SubscriberConfig struct {
	Group         string
	Consumer      string
	Stream        string
	Handler       Handler
	BatchSize     int64
	BlockDuration time.Duration
	ClaimMinIdle  time.Duration
	ClaimInterval time.Duration
}

func NewRedisSubscriber(client redis.Cmdable, config SubscriberConfig, log *logger.Logger) *RedisSubscriber {
	if config.BatchSize == 0 {
		config.BatchSize = 10
	}
	if config.BlockDuration == 0 {
		config.BlockDuration = 5 * time.Second
	}
	if config.ClaimMinIdle == 0 {
		config.ClaimMinIdle = 30 * time.Second
	}
	if config.ClaimInterval == 0 {
		config.ClaimInterval = 30 * time.Second
	}
	return &RedisSubscriber{
		client:        client,
		group:         config.Group,
		consumer:      config.Consumer,
		stream:        config.Stream,
		handler:       config.Handler,
		batchSize:     config.BatchSize,
		blockDuration: config.BlockDuration,
		claimMinIdle:  config.ClaimMinIdle,
		claimInterval: config.ClaimInterval,
		log:           log,
	}
}

func (s *RedisSubscriber) Start(ctx context.Context) error {
	err := s.client.XGroupCreateMkStream(ctx, s.stream, s.group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	s.log.Info("subscriber started", "transport", "redis", "stream", s.stream, "group", s.group, "consumer", s.consumer)
	var lastClaim time.Time
	for {
		select {
		case <-ctx.Done():
			s.log.Info("subscriber stopping", "stream", s.stream)
			return ctx.Err()
		default:
			if time.Since(lastClaim) >= s.claimInterval {
				if err := s.claimPending(ctx); err != nil && ctx.Err() == nil {
					s.log.Warn("error reclaiming pending messages", "stream", s.stream, "error", err)
				}
				lastClaim = time.Now()
			}
			if err := s.readMessages(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn("error reading messages", "stream", s.stream, "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

func (s *RedisSubscriber) readMessages(ctx context.Context) error {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.group,
		Consumer: s.consumer,
		Streams:  []string{s.stream, ">"},
		Count:    s.batchSize,
		Block:    s.blockDuration,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		for _, message := range stream.Messages {
			s.handle(ctx, message)
		}
	}
	return nil
}

// claimPending takes over entries that were delivered to any consumer of the
// group but never acknowledged, and handles them again.
func (s *RedisSubscriber) claimPending(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := s.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   s.stream,
			Group:    s.group,
			Consumer: s.consumer,
			MinIdle:  s.claimMinIdle,
			Start:    start,
			Count:    s.batchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim pending messages: %w", err)
		}
		for _, message := range messages {
			s.log.Info("redelivering pending message", "stream", s.stream, "id", message.ID)
			s.handle(ctx, message)
		}
		if next == "" || next == "0-0" {
			return nil
		}
		start = next
	}
}

// handle acknowledges a message once it is handled or known to be
// unhandleable; any other failure leaves it pending.
func (s *RedisSubscriber) handle(ctx context.Context, message redis.XMessage) {
	err := s.processMessage(ctx, message)
	switch {
	case errors.Is(err, ErrMalformed):
		s.log.Error("dropping malformed message", "stream", s.stream, "id", message.ID, "error", err)
	case err != nil:
		s.log.Error("failed to process message, left pending", "stream", s.stream, "id", message.ID, "error", err)
		return
	}
	if err := s.client.XAck(ctx, s.stream, s.group, message.ID).Err(); err != nil {
		s.log.Warn("failed to ack message", "stream", s.stream, "id", message.ID, "error", err)
	}
}

func (s *RedisSubscriber) processMessage(ctx context.Context, message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return fmt.Errorf("%w: missing event field", ErrMalformed)
	}
	return dispatchRaw(ctx, s.stream, []byte(eventData), s.handler)
}

// messageReader is the subset of *kafka.Reader the subscriber needs.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSubscriber consumes a topic through a consumer group. A commit covers
// every earlier offset of the partition, so a failed message is retried in
// place with backoff rather than skipped.
type KafkaSubscriber struct {
	reader        messageReader
	topic         string
	handler       Handler
	retryDelay    time.Duration
	maxRetryDelay time.Duration
	log           *logger.Logger
}

func NewKafkaSubscriber(brokers []string, topic, group string, handler Handler, log *logger.Logger) *KafkaSubscriber {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &KafkaSubscriber{
		reader:        reader,
		topic:         topic,
		handler:       handler,
		retryDelay:    500 * time.Millisecond,
		maxRetryDelay: 30 * time.Second,
		log:           log,
	}
}

func (s *KafkaSubscriber) Start(ctx context.Context) error {
	defer s.reader.Close()
	s.log.Info("subscriber started", "transport", "kafka", "topic", s.topic)
	for {
		msg, err := s.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.log.Info("subscriber stopping", "topic", s.topic)
				return ctx.Err()
			}
			s.log.Warn("failed to fetch message", "topic", s.topic, "error", err)
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if err := s.handleWithRetry(ctx, msg); err != nil {
			s.log.Info("subscriber stopping", "topic", s.topic, "uncommittedOffset", msg.Offset)
			return err
		}
		if err := s.reader.CommitMessages(ctx, msg); err != nil {
			s.log.Warn("failed to commit message", "topic", s.topic, "offset", msg.Offset, "error", err)
		}
	}
}

// handleWithRetry returns nil once msg is handled or found malformed, and the
// context error if the subscriber is stopped first.
func (s *KafkaSubscriber) handleWithRetry(ctx context.Context, msg kafka.Message) error {
	delay := s.retryDelay
	for attempt := 1; ; attempt++ {
		err := dispatchRaw(ctx, s.topic, msg.Value, s.handler)
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrMalformed) {
			s.log.Error("dropping malformed message", "topic", s.topic, "offset", msg.Offset, "error", err)
			return nil
		}
		s.log.Error("failed to process message, retrying", "topic", s.topic, "offset", msg.Offset, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		if delay *= 2; s.maxRetryDelay > 0 && delay > s.maxRetryDelay {
			delay = s.maxRetryDelay
		}
	}
}

func dispatchRaw(ctx context.Context, channel string, raw []byte, handler Handler) error {
	var event Event
	err := json.Unmarshal(raw, &event)
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrMalformed, err)
	} else {
		err = handler(ctx, event)
	}
	metrics.IncEventConsumed(channel, err)
	return err
}
