// internal/database/lobby_event.go
package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rockps/rockps/internal/models"
)

// InsertLobbyEvents appends a batch of events to the history table in one transaction.
func (s *Store) InsertLobbyEvents(ctx context.Context, evs []models.LobbyEvent) error {
	if len(evs) == 0 {
		return nil
	}
	q := `
	INSERT INTO lobby_events (lobby_id, round_id, user_id, type, status, payload, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, ev := range evs {
			var payload []byte
			if ev.Payload != nil {
				var err error
				if payload, err = json.Marshal(ev.Payload); err != nil {
					return fmt.Errorf("marshal payload: %w", err)
				}
			}
			batch.Queue(q,
				ev.LobbyID, nullID(ev.RoundID), nullID(ev.UserID), string(ev.Type), nullString(ev.Status),
				payload, time.UnixMilli(ev.Timestamp),
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// CountLobbyEvents returns how many history rows a lobby has.
func (s *Store) CountLobbyEvents(ctx context.Context, lobbyID int64) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM lobby_events WHERE lobby_id = $1`, lobbyID).Scan(&n)
	return n, err
}

func nullID(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
