// Package publish fans status events out to Redis subscribers and keeps a
// bounded list of recent events per device.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jamesprial/supercap-mcp/internal/watch"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher delivers watcher events somewhere outside the process.
type Publisher interface {
	Publish(ctx context.Context, ev watch.Event) error
	Close() error
}

// Message is the payload published for each event.
type Message struct {
	Device string `json:"device"`
	watch.Event
}

// Options configures a RedisPublisher.
type Options struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	// Device identifies the controller in messages and in the history key.
	Device string
	// History is the number of events kept; zero disables the list.
	History int
}

// RedisPublisher publishes events on a Pub/Sub channel and pushes them onto
// the list "supercap:{device}:events", trimmed to the configured length.
type RedisPublisher struct {
	client  redis.UniversalClient
	channel string
	device  string
	history int
	log     logrus.FieldLogger
}

// NewRedisPublisher connects to Redis and verifies the connection.
func NewRedisPublisher(ctx context.Context, opts Options, log logrus.FieldLogger) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", opts.Addr, err)
	}
	log.WithField("addr", opts.Addr).Info("redis connected")

	return newRedisPublisher(client, opts, log), nil
}

func newRedisPublisher(client redis.UniversalClient, opts Options, log logrus.FieldLogger) *RedisPublisher {
	return &RedisPublisher{
		client:  client,
		channel: opts.Channel,
		device:  opts.Device,
		history: opts.History,
		log:     log,
	}
}

// HistoryKey returns the list key holding recent events.
func (p *RedisPublisher) HistoryKey() string {
	return fmt.Sprintf("supercap:%s:events", p.device)
}

// Publish sends ev to subscribers. A failure to record history is logged and
// does not fail the publish.
func (p *RedisPublisher) Publish(ctx context.Context, ev watch.Event) error {
	data, err := Encode(p.device, ev)
	if err != nil {
		return err
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", ev.ID, err)
	}

	if p.history <= 0 {
		return nil
	}
	pipe := p.client.TxPipeline()
	pipe.LPush(ctx, p.HistoryKey(), data)
	pipe.LTrim(ctx, p.HistoryKey(), 0, int64(p.history-1))
	if _, err := pipe.Exec(ctx); err != nil {
		p.log.WithError(err).WithField("event_id", ev.ID).Warn("could not record event history")
	}
	return nil
}

// Recent returns up to n of the most recent events, newest first.
func (p *RedisPublisher) Recent(ctx context.Context, n int) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	items, err := p.client.LRange(ctx, p.HistoryKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read event history: %w", err)
	}
	out := make([]Message, 0, len(items))
	for _, item := range items {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			p.log.WithError(err).Warn("skipping malformed history entry")
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// Close closes the Redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

// Encode renders the published payload for ev.
func Encode(device string, ev watch.Event) ([]byte, error) {
	data, err := json.Marshal(Message{Device: device, Event: ev})
	if err != nil {
		return nil, fmt.Errorf("encode event %s: %w", ev.ID, err)
	}
	return data, nil
}

// Handler adapts p to a watch.Handler. Publish errors are logged.
func Handler(p Publisher, log logrus.FieldLogger) watch.Handler {
	return func(ctx context.Context, ev watch.Event) {
		if err := p.Publish(ctx, ev); err != nil {
			log.WithError(err).WithField("event_id", ev.ID).Error("publish failed")
		}
	}
}
