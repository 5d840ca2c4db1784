// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rockps/rockps/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultQueueName is the Redis list the historian drains.
const DefaultQueueName = "rockps_lobby_events"

// channelPrefix namespaces the per-lobby pub/sub channels.
const channelPrefix = "rockps:lobby:"

// subscriberBuffer bounds how far a websocket listener may lag behind.
const subscriberBuffer = 16

// Connect creates a client for addr/db and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

func channelName(lobbyID int64) string {
	return channelPrefix + strconv.FormatInt(lobbyID, 10)
}

// Events publishes lobby events to Redis pub/sub for live listeners and appends them
// to the history queue. It also serves subscriptions, so every server instance sees
// the events of every other instance.
type Events struct {
	rdb    *redis.Client
	queue  string
	logger *logrus.Logger
}

func NewEvents(rdb *redis.Client, queue string, logger *logrus.Logger) *Events {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Events{rdb: rdb, queue: queue, logger: logger}
}

// Publish sends ev to the lobby channel and the history queue in one round trip.
func (e *Events) Publish(ctx context.Context, ev models.LobbyEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal LobbyEvent: %w", err)
	}

	_, err = e.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, channelName(ev.LobbyID), data)
		p.RPush(ctx, e.queue, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish lobby event to Redis: %w", err)
	}
	return nil
}

// Subscribe listens on the lobby channel. The returned channel closes when ctx ends or
// cancel is called.
func (e *Events) Subscribe(ctx context.Context, lobbyID int64) (<-chan models.LobbyEvent, func(), error) {
	ps := e.rdb.Subscribe(ctx, channelName(lobbyID))
	// wait for the subscription confirmation so no event published after return is missed
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe lobby %d: %w", lobbyID, err)
	}

	out := make(chan models.LobbyEvent, subscriberBuffer)
	subCtx, stop := context.WithCancel(ctx)
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			stop()
			_ = ps.Close()
		})
	}

	go func() {
		defer close(out)
		defer cancel()
		msgs := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev models.LobbyEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					e.logger.WithFields(logrus.Fields{"lobby_id": lobbyID, "error": err}).Warn("invalid lobby event on channel")
					continue
				}
				select {
				case out <- ev:
				default:
					e.logger.WithField("lobby_id", lobbyID).Debug("dropping event for slow listener")
				}
			}
		}
	}()
	return out, cancel, nil
}

// Queue is the consumer side of the history queue.
type Queue struct {
	rdb  *redis.Client
	name string
}

func NewQueue(rdb *redis.Client, name string) *Queue {
	if name == "" {
		name = DefaultQueueName
	}
	return &Queue{rdb: rdb, name: name}
}

// ErrEmpty is returned by Pop when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// Pop blocks up to timeout for the next event.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (models.LobbyEvent, error) {
	res, err := q.rdb.BLPop(ctx, timeout, q.name).Result()
	if errors.Is(err, redis.Nil) {
		return models.LobbyEvent{}, ErrEmpty
	}
	if err != nil {
		return models.LobbyEvent{}, fmt.Errorf("BLPop %s: %w", q.name, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return models.LobbyEvent{}, ErrEmpty
	}
	var ev models.LobbyEvent
	if err := json.Unmarshal([]byte(res[1]), &ev); err != nil {
		return models.LobbyEvent{}, fmt.Errorf("invalid lobby event record: %w", err)
	}
	return ev, nil
}
