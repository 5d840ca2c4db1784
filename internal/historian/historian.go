// Package historian drains the lobby event queue into the history table in batches.
package historian

import (
	"context"
	"errors"
	"time"

	"github.com/rockps/rockps/internal/cache"
	"github.com/rockps/rockps/internal/models"
	"github.com/sirupsen/logrus"
)

// Source yields queued events. Pop returns cache.ErrEmpty when nothing arrived in time.
type Source interface {
	Pop(ctx context.Context, timeout time.Duration) (models.LobbyEvent, error)
}

// Sink persists one batch atomically.
type Sink interface {
	InsertLobbyEvents(ctx context.Context, evs []models.LobbyEvent) error
}

// retryDelay is the pause after a failed pop so a broken connection does not spin.
const retryDelay = time.Second

type Service struct {
	source     Source
	sink       Sink
	batchSize  int
	flushDelay time.Duration
	logger     *logrus.Logger

	batch     []models.LobbyEvent
	lastFlush time.Time
}

func NewService(source Source, sink Sink, batchSize int, flushDelay time.Duration, logger *logrus.Logger) *Service {
	return &Service{
		source:     source,
		sink:       sink,
		batchSize:  batchSize,
		flushDelay: flushDelay,
		logger:     logger,
		batch:      make([]models.LobbyEvent, 0, batchSize),
	}
}

// Run pops events until ctx ends, flushing whenever the batch is full or flushDelay
// has passed since the last flush. Whatever is buffered at shutdown is flushed too.
func (s *Service) Run(ctx context.Context) error {
	s.lastFlush = time.Now()
	s.logger.Info("rockps-historian started")
	defer func() {
		// ctx is already done; give the final flush its own deadline
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.flush(flushCtx)
		s.logger.Info("rockps-historian shutting down")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		ev, err := s.source.Pop(ctx, s.flushDelay)
		switch {
		case err == nil:
			s.batch = append(s.batch, ev)
		case errors.Is(err, cache.ErrEmpty):
		case ctx.Err() != nil:
			return nil
		default:
			s.logger.WithError(err).Error("pop lobby event")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retryDelay):
			}
		}

		if len(s.batch) >= s.batchSize || time.Since(s.lastFlush) >= s.flushDelay {
			s.flush(ctx)
		}
	}
}

// flush writes the buffered batch. A failed batch is kept and retried on the next flush.
func (s *Service) flush(ctx context.Context) {
	s.lastFlush = time.Now()
	if len(s.batch) == 0 {
		return
	}
	if err := s.sink.InsertLobbyEvents(ctx, s.batch); err != nil {
		s.logger.WithFields(logrus.Fields{"count": len(s.batch), "error": err}).Error("flush lobby events")
		return
	}
	s.logger.WithField("count", len(s.batch)).Debug("flushed lobby events")
	s.batch = s.batch[:0]
}
