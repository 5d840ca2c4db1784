// internal/historian/historian_test.go
package historian

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rockps/rockps/internal/cache"
	"github.com/rockps/rockps/internal/models"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chanSource pops from a channel, reporting cache.ErrEmpty on timeout.
type chanSource chan models.LobbyEvent

func (c chanSource) Pop(ctx context.Context, timeout time.Duration) (models.LobbyEvent, error) {
	select {
	case ev := <-c:
		return ev, nil
	case <-time.After(timeout):
		return models.LobbyEvent{}, cache.ErrEmpty
	case <-ctx.Done():
		return models.LobbyEvent{}, ctx.Err()
	}
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.LobbyEvent
	fail    int
}

func (s *recordingSink) InsertLobbyEvents(_ context.Context, evs []models.LobbyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail > 0 {
		s.fail--
		return errors.New("db down")
	}
	s.batches = append(s.batches, append([]models.LobbyEvent(nil), evs...))
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func (s *recordingSink) batchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batches)
}

func runService(t *testing.T, svc *Service) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	return cancel, done
}

func TestFlushesFullBatch(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := make(chanSource, 10)
	sink := &recordingSink{}
	svc := NewService(src, sink, 3, time.Hour, logger)

	cancel, done := runService(t, svc)
	defer cancel()
	for i := 1; i <= 3; i++ {
		src <- models.LobbyEvent{Type: models.EventCardSubmitted, LobbyID: 1, RoundID: int64(i)}
	}

	require.Eventually(t, func() bool { return sink.total() == 3 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, sink.batchCount())
	cancel()
	assert.NoError(t, <-done)
}

func TestFlushesAfterDelay(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := make(chanSource, 10)
	sink := &recordingSink{}
	svc := NewService(src, sink, 100, 20*time.Millisecond, logger)

	cancel, done := runService(t, svc)
	defer cancel()
	src <- models.LobbyEvent{Type: models.EventLobbyCreated, LobbyID: 5}

	require.Eventually(t, func() bool { return sink.total() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestFailedBatchIsRetained(t *testing.T) {
	logger, hook := test.NewNullLogger()
	src := make(chanSource, 10)
	sink := &recordingSink{fail: 1}
	svc := NewService(src, sink, 100, 20*time.Millisecond, logger)

	cancel, done := runService(t, svc)
	defer cancel()
	src <- models.LobbyEvent{Type: models.EventLobbyJoined, LobbyID: 2}

	require.Eventually(t, func() bool { return sink.total() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)

	var sawError bool
	for _, e := range hook.AllEntries() {
		if e.Message == "flush lobby events" {
			sawError = true
		}
	}
	assert.True(t, sawError)
}

func TestShutdownFlushesRemainder(t *testing.T) {
	logger, _ := test.NewNullLogger()
	src := make(chanSource, 10)
	sink := &recordingSink{}
	svc := NewService(src, sink, 100, 50*time.Millisecond, logger)

	src <- models.LobbyEvent{Type: models.EventMatchFinished, LobbyID: 9}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	// let the event be popped, then stop before the delay triggers a flush
	require.Eventually(t, func() bool { return len(src) == 0 }, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 1, sink.total())
}
