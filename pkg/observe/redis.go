package observe

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultRedisChannel is the Pub/Sub channel events are published to when no
// other channel is configured.
const DefaultRedisChannel = "collabtext.events"

// RedisSinkBufferSize bounds the number of events waiting to be published.
const RedisSinkBufferSize = 256

// Publisher is the subset of *redis.Client used by RedisSink.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes events as JSON to a Redis Pub/Sub channel so that
// dashboards or other tools can follow a session live. Observe never blocks:
// events are queued and published by Run, and dropped when the queue is full.
type RedisSink struct {
	client  Publisher
	channel string
	queue   chan Event
}

// NewRedisSink creates a sink publishing to channel.
func NewRedisSink(client Publisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{
		client:  client,
		channel: channel,
		queue:   make(chan Event, RedisSinkBufferSize),
	}
}

// DialRedis connects to the Redis server at addr and checks that it responds.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

// Observe queues e for publishing.
func (s *RedisSink) Observe(e Event) {
	select {
	case s.queue <- e:
	default:
		log.WithField("kind", e.Kind).Debug("Dropping event, Redis publish queue is full")
	}
}

// Run publishes queued events until ctx is cancelled.
func (s *RedisSink) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-s.queue:
			s.publish(ctx, e)
		}
	}
}

func (s *RedisSink) publish(ctx context.Context, e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		log.WithError(err).Warn("Failed to encode event")
		return
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		log.WithError(err).WithField("channel", s.channel).Warn("Failed to publish event to Redis")
	}
}
