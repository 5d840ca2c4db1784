package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rockps/rockps/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHubDeliversPerLobby(t *testing.T) {
	h := NewHub()
	ctx := context.Background()

	ch1, cancel1, err := h.Subscribe(ctx, 1)
	require.NoError(t, err)
	defer cancel1()
	ch2, cancel2, err := h.Subscribe(ctx, 2)
	require.NoError(t, err)
	defer cancel2()

	require.NoError(t, h.Publish(ctx, models.LobbyEvent{Type: models.EventLobbyJoined, LobbyID: 1}))

	select {
	case ev := <-ch1:
		assert.Equal(t, models.EventLobbyJoined, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("lobby 1 subscriber got nothing")
	}
	select {
	case ev := <-ch2:
		t.Fatalf("lobby 2 subscriber got %v", ev)
	default:
	}
}

func TestHubCancelClosesChannel(t *testing.T) {
	h := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	ch, _, err := h.Subscribe(ctx, 5)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("channel not closed after context cancel")
	}
	// publishing after cancel must not panic on the closed channel
	require.NoError(t, h.Publish(context.Background(), models.LobbyEvent{LobbyID: 5}))
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	h := NewHub()
	ch, cancel, err := h.Subscribe(context.Background(), 9)
	require.NoError(t, err)
	defer cancel()

	for i := 0; i < subscriberBuffer+5; i++ {
		require.NoError(t, h.Publish(context.Background(), models.LobbyEvent{LobbyID: 9}))
	}
	assert.Len(t, ch, subscriberBuffer)
}

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, models.LobbyEvent) error { return f.err }

func TestMultiPublishesToAll(t *testing.T) {
	h := NewHub()
	ch, cancel, err := h.Subscribe(context.Background(), 3)
	require.NoError(t, err)
	defer cancel()

	boom := errors.New("boom")
	m := Multi{failingPublisher{err: boom}, h}
	err = m.Publish(context.Background(), models.LobbyEvent{LobbyID: 3})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ch, 1)
}
