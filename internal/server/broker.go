package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/playverse/geohunt/internal/engine"
	"github.com/playverse/geohunt/internal/geo"
)

// SyncEvent is the payload broadcast to subscribers. One event type per
// engine output: positions, score changes, zone warnings, gate progress,
// completions.
type SyncEvent struct {
	Type       string                `json:"type"`
	TeamID     string                `json:"teamId,omitempty"`
	TeamName   string                `json:"teamName,omitempty"`
	TaskID     string                `json:"taskId,omitempty"`
	PlayerName string                `json:"playerName,omitempty"`
	Score      *int                  `json:"score,omitempty"`
	Reason     string                `json:"reason,omitempty"`
	Position   *geo.Coordinate       `json:"position,omitempty"`
	Gates      []engine.GateProgress `json:"gates,omitempty"`
	Warning    *engine.ZoneWarning   `json:"warning,omitempty"`
}

// Topic keys: events for one team's devices vs. game-wide broadcasts
// consumed by every team and by instructors.
func teamTopic(teamID string) string { return "team:" + teamID }
func gameTopic(gameID string) string { return "game:" + gameID }

const redisSyncChannel = "geohunt:sync"

type redisEnvelope struct {
	Topic string    `json:"topic"`
	Event SyncEvent `json:"event"`
}

// Broker is the pub/sub primitive behind the team sync channel: in-process
// fan-out keyed by topic, with optional Redis bridging so broadcasts reach
// subscribers on other server instances. Delivery is at-least-once with no
// ordering guarantee across clients; consumers that need true ordering use
// the server-stamped attempt log instead.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]map[chan []byte]struct{}
	rdb    *redis.Client
	logger *slog.Logger
}

// NewBroker creates a broker. rdb may be nil for single-instance setups.
func NewBroker(rdb *redis.Client, logger *slog.Logger) *Broker {
	return &Broker{
		subs:   make(map[string]map[chan []byte]struct{}),
		rdb:    rdb,
		logger: logger,
	}
}

// Subscribe returns a channel receiving JSON-encoded events for the topic.
func (b *Broker) Subscribe(topic string) chan []byte {
	ch := make(chan []byte, 16)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan []byte]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel from the topic's subscribers.
func (b *Broker) Unsubscribe(topic string, ch chan []byte) {
	b.mu.Lock()
	delete(b.subs[topic], ch)
	if len(b.subs[topic]) == 0 {
		delete(b.subs, topic)
	}
	b.mu.Unlock()
}

// Publish delivers an event to all local subscribers of the topic and, when
// Redis is configured, to peer instances. A peer echo of our own publish
// redelivers locally; that is within the at-least-once contract.
func (b *Broker) Publish(topic string, event SyncEvent) {
	data, _ := json.Marshal(event)
	b.deliver(topic, data)

	if b.rdb != nil {
		env, _ := json.Marshal(redisEnvelope{Topic: topic, Event: event})
		if err := b.rdb.Publish(context.Background(), redisSyncChannel, env).Err(); err != nil {
			b.logger.Warn("redis publish failed", "topic", topic, "error", err)
		}
	}
}

func (b *Broker) deliver(topic string, data []byte) {
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- data:
		default:
			// Drop if subscriber is slow.
		}
	}
	b.mu.RUnlock()
}

// Run bridges events published by peer instances into local subscribers.
// It blocks until ctx is cancelled. No-op without Redis.
func (b *Broker) Run(ctx context.Context) error {
	if b.rdb == nil {
		<-ctx.Done()
		return nil
	}

	sub := b.rdb.Subscribe(ctx, redisSyncChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-sub.Channel():
			if !ok {
				return nil
			}
			var env redisEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				b.logger.Warn("dropping malformed sync envelope", "error", err)
				continue
			}
			data, _ := json.Marshal(env.Event)
			b.deliver(env.Topic, data)
		}
	}
}
