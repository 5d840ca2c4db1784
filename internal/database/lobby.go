// internal/database/lobby.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
	"github.com/rockps/rockps/internal/store"
)

const lobbyColumns = `id, name, rounds, ruleset, status, creator_id, opponent_id, created_at`

func scanLobby(row pgx.Row) (*models.Lobby, error) {
	var (
		l       models.Lobby
		ruleset int16
		status  int16
	)
	err := row.Scan(&l.ID, &l.Name, &l.Rounds, &ruleset, &status, &l.CreatorID, &l.OpponentID, &l.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	l.Ruleset = rules.Ruleset(ruleset)
	l.Status = models.LobbyStatus(status)
	return &l, nil
}

// LockLobby reads the lobby and holds its row lock until the transaction ends.
func (t *pgTx) LockLobby(ctx context.Context, id int64) (*models.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE id = $1 FOR UPDATE`
	return scanLobby(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) GetLobby(ctx context.Context, id int64) (*models.Lobby, error) {
	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE id = $1`
	return scanLobby(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) ListLobbies(ctx context.Context, status models.LobbyStatus, offset, limit int) ([]*models.Lobby, int, error) {
	var total int
	if err := t.tx.QueryRow(ctx, `SELECT COUNT(*) FROM lobbies WHERE status = $1`, int16(status)).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count lobbies: %w", err)
	}

	q := `SELECT ` + lobbyColumns + ` FROM lobbies WHERE status = $1 ORDER BY id LIMIT $2 OFFSET $3`
	rows, err := t.tx.Query(ctx, q, int16(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list lobbies: %w", err)
	}
	defer rows.Close()

	var out []*models.Lobby
	for rows.Next() {
		l, err := scanLobby(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

// InsertLobby stores l and fills in its generated id and creation time.
func (t *pgTx) InsertLobby(ctx context.Context, l *models.Lobby) error {
	q := `
	INSERT INTO lobbies (name, rounds, ruleset, status, creator_id, opponent_id)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`
	return t.tx.QueryRow(ctx, q,
		l.Name, l.Rounds, int16(l.Ruleset), int16(l.Status), l.CreatorID, l.OpponentID,
	).Scan(&l.ID, &l.CreatedAt)
}

func (t *pgTx) UpdateLobby(ctx context.Context, l *models.Lobby) error {
	q := `UPDATE lobbies SET status = $2, opponent_id = $3 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, q, l.ID, int16(l.Status), l.OpponentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
