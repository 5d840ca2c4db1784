// Package events fans committed lobby events out to interested listeners.
package events

import (
	"context"
	"sync"

	"github.com/rockps/rockps/internal/models"
)

// Publisher receives events after the transaction that produced them committed.
type Publisher interface {
	Publish(ctx context.Context, ev models.LobbyEvent) error
}

// Subscriber streams the events of one lobby until ctx ends or cancel is called.
type Subscriber interface {
	Subscribe(ctx context.Context, lobbyID int64) (<-chan models.LobbyEvent, func(), error)
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, models.LobbyEvent) error { return nil }

// subscriberBuffer is how many events a slow listener may lag before events are dropped for it.
const subscriberBuffer = 16

// Hub is an in-process Publisher and Subscriber.
type Hub struct {
	mu   sync.Mutex
	subs map[int64]map[chan models.LobbyEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[int64]map[chan models.LobbyEvent]struct{})}
}

// Publish delivers ev to every current subscriber of its lobby without blocking.
func (h *Hub) Publish(_ context.Context, ev models.LobbyEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs[ev.LobbyID] {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribe(ctx context.Context, lobbyID int64) (<-chan models.LobbyEvent, func(), error) {
	ch := make(chan models.LobbyEvent, subscriberBuffer)

	h.mu.Lock()
	if h.subs[lobbyID] == nil {
		h.subs[lobbyID] = make(map[chan models.LobbyEvent]struct{})
	}
	h.subs[lobbyID][ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[lobbyID], ch)
			if len(h.subs[lobbyID]) == 0 {
				delete(h.subs, lobbyID)
			}
			close(ch)
			h.mu.Unlock()
		})
	}
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, cancel, nil
}

// Multi publishes to every Publisher in order and returns the first error.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev models.LobbyEvent) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}
