package bus

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"league-system/models"
	"league-system/monitoring"
)

const (
	maxPublishAttempts = 3
	readBatchSize      = 16
)

type RedisBusOptions struct {
	// Consumer names this instance within each consumer group.
	Consumer        string
	PublishTimeout  time.Duration
	ConsumerBlock   time.Duration
	ReclaimMinIdle  time.Duration
	ReclaimInterval time.Duration
}

// RedisBus implements Bus on Redis Streams. One stream per topic keeps
// per-key ordering; consumer groups give at-least-once delivery.
type RedisBus struct {
	client *redis.Client
	opts   RedisBusOptions
}

func NewRedisBus(client *redis.Client, opts RedisBusOptions) *RedisBus {
	if opts.Consumer == "" {
		opts.Consumer = "consumer-1"
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 5 * time.Second
	}
	if opts.ConsumerBlock <= 0 {
		opts.ConsumerBlock = 5 * time.Second
	}
	if opts.ReclaimMinIdle <= 0 {
		opts.ReclaimMinIdle = time.Minute
	}
	if opts.ReclaimInterval <= 0 {
		opts.ReclaimInterval = 30 * time.Second
	}
	return &RedisBus{client: client, opts: opts}
}

// Publish blocks until the broker acknowledges or the bounded timeout
// elapses. Transient broker errors are retried with exponential backoff
// before the call fails with ErrBrokerUnavailable.
func (b *RedisBus) Publish(ctx context.Context, topic string, event models.DomainEvent) error {
	ctx, cancel := context.WithTimeout(ctx, b.opts.PublishTimeout)
	defer cancel()

	values := map[string]interface{}{
		"id":   event.ID,
		"type": event.Type,
		"key":  event.Key,
		"ts":   event.Timestamp.Format(time.RFC3339Nano),
		"data": string(event.Data),
	}

	var err error
	backOff := 100 * time.Millisecond
	for attempt := 0; attempt < maxPublishAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("publish %s: %v: %w", topic, ctx.Err(), models.ErrBrokerUnavailable)
			case <-time.After(backOff):
				backOff *= 2
			}
		}

		err = b.client.XAdd(ctx, &redis.XAddArgs{Stream: topic, Values: values}).Err()
		if err == nil {
			monitoring.EventPublished(topic)
			return nil
		}
	}

	return fmt.Errorf("publish %s: %v: %w", topic, err, models.ErrBrokerUnavailable)
}

// Subscribe starts a consumption loop for one consumer group. Handler
// success acknowledges the entry; handler failure leaves it pending, to be
// reclaimed and redelivered once it has been idle long enough.
func (b *RedisBus) Subscribe(ctx context.Context, topic, groupID string, handler Handler) {
	go b.consumeLoop(ctx, topic, groupID, handler)
	go b.reclaimLoop(ctx, topic, groupID, handler)
}

func (b *RedisBus) ensureGroup(ctx context.Context, topic, groupID string) error {
	err := b.client.XGroupCreateMkStream(ctx, topic, groupID, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return err
	}
	return nil
}

func (b *RedisBus) consumeLoop(ctx context.Context, topic, groupID string, handler Handler) {
	log := slog.With("topic", topic, "group", groupID)

	// Broker connection loss is retried here with exponential backoff,
	// transparent to the subscriber.
	backOff := time.Second
	for {
		if ctx.Err() != nil {
			return
		}

		if err := b.ensureGroup(ctx, topic, groupID); err != nil {
			log.Error("create consumer group", "error", err)
			backOff = b.sleepBackOff(ctx, backOff)
			continue
		}

		streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    groupID,
			Consumer: b.opts.Consumer,
			Streams:  []string{topic, ">"},
			Count:    readBatchSize,
			Block:    b.opts.ConsumerBlock,
		}).Result()
		if err == redis.Nil {
			backOff = time.Second
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error("read group", "error", err)
			backOff = b.sleepBackOff(ctx, backOff)
			continue
		}
		backOff = time.Second

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				b.process(ctx, topic, groupID, handler, msg)
			}
		}
	}
}

func (b *RedisBus) reclaimLoop(ctx context.Context, topic, groupID string, handler Handler) {
	ticker := time.NewTicker(b.opts.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		msgs, _, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   topic,
			Group:    groupID,
			Consumer: b.opts.Consumer,
			MinIdle:  b.opts.ReclaimMinIdle,
			Start:    "0-0",
			Count:    readBatchSize,
		}).Result()
		if err != nil {
			if ctx.Err() == nil {
				slog.Error("reclaim pending entries", "topic", topic, "group", groupID, "error", err)
			}
			continue
		}

		for _, msg := range msgs {
			b.process(ctx, topic, groupID, handler, msg)
		}
	}
}

// process invokes the handler exactly once for this delivery. Undecodable
// entries are acknowledged immediately so a poison message cannot loop.
func (b *RedisBus) process(ctx context.Context, topic, groupID string, handler Handler, msg redis.XMessage) {
	event, err := decodeMessage(msg)
	if err != nil {
		slog.Error("drop undecodable entry", "topic", topic, "entry", msg.ID, "error", err)
		b.ack(ctx, topic, groupID, msg.ID)
		monitoring.EventConsumed(topic, groupID, "malformed")
		return
	}

	if err := handler(ctx, event); err != nil {
		slog.Warn("handler failed, entry left pending",
			"topic", topic, "group", groupID, "event_id", event.ID, "type", event.Type, "error", err)
		monitoring.EventConsumed(topic, groupID, "retry")
		return
	}

	b.ack(ctx, topic, groupID, msg.ID)
	monitoring.EventConsumed(topic, groupID, "ok")
}

func (b *RedisBus) ack(ctx context.Context, topic, groupID, entryID string) {
	if err := b.client.XAck(ctx, topic, groupID, entryID).Err(); err != nil && ctx.Err() == nil {
		slog.Error("ack entry", "topic", topic, "entry", entryID, "error", err)
	}
}

func (b *RedisBus) sleepBackOff(ctx context.Context, backOff time.Duration) time.Duration {
	select {
	case <-ctx.Done():
	case <-time.After(backOff):
	}
	next := backOff * 2
	if next > 30*time.Second {
		next = 30 * time.Second
	}
	return next
}

func decodeMessage(msg redis.XMessage) (models.DomainEvent, error) {
	event := models.DomainEvent{}

	id, ok := msg.Values["id"].(string)
	if !ok || id == "" {
		return event, fmt.Errorf("entry %s: missing id", msg.ID)
	}
	eventType, ok := msg.Values["type"].(string)
	if !ok || eventType == "" {
		return event, fmt.Errorf("entry %s: missing type", msg.ID)
	}

	event.ID = id
	event.Type = eventType
	if key, ok := msg.Values["key"].(string); ok {
		event.Key = key
	}
	if data, ok := msg.Values["data"].(string); ok {
		event.Data = []byte(data)
	}
	if ts, ok := msg.Values["ts"].(string); ok {
		parsed, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return event, fmt.Errorf("entry %s: bad timestamp %q", msg.ID, ts)
		}
		event.Timestamp = parsed
	}

	return event, nil
}
