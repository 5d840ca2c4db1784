// internal/database/round.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
	"github.com/rockps/rockps/internal/store"
)

const roundColumns = `id, lobby_id, ruleset, status, creator_id, opponent_id, creator_card, opponent_card, winner_id`

func scanRound(row pgx.Row) (*models.Round, error) {
	var (
		r                         models.Round
		ruleset, status           int16
		creatorCard, opponentCard *int16
	)
	err := row.Scan(&r.ID, &r.LobbyID, &ruleset, &status, &r.CreatorID, &r.OpponentID, &creatorCard, &opponentCard, &r.WinnerID)
	if err != nil {
		return nil, notFound(err)
	}
	r.Ruleset = rules.Ruleset(ruleset)
	r.Status = models.RoundStatus(status)
	r.CreatorCard = toCard(creatorCard)
	r.OpponentCard = toCard(opponentCard)
	return &r, nil
}

func toCard(v *int16) *rules.Card {
	if v == nil {
		return nil
	}
	c := rules.Card(*v)
	return &c
}

func fromCard(c *rules.Card) *int16 {
	if c == nil {
		return nil
	}
	v := int16(*c)
	return &v
}

func (t *pgTx) GetRound(ctx context.Context, id int64) (*models.Round, error) {
	q := `SELECT ` + roundColumns + ` FROM rounds WHERE id = $1`
	return scanRound(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) ListRounds(ctx context.Context, lobbyID int64) ([]*models.Round, error) {
	q := `SELECT ` + roundColumns + ` FROM rounds WHERE lobby_id = $1 ORDER BY id`
	rows, err := t.tx.Query(ctx, q, lobbyID)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	defer rows.Close()

	var out []*models.Round
	for rows.Next() {
		r, err := scanRound(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertRounds stores the schedule in order, so ids follow round number.
func (t *pgTx) InsertRounds(ctx context.Context, rounds []*models.Round) error {
	q := `
	INSERT INTO rounds (lobby_id, ruleset, status, creator_id, opponent_id, creator_card, opponent_card, winner_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id
	`
	for _, r := range rounds {
		err := t.tx.QueryRow(ctx, q,
			r.LobbyID, int16(r.Ruleset), int16(r.Status), r.CreatorID, r.OpponentID,
			fromCard(r.CreatorCard), fromCard(r.OpponentCard), r.WinnerID,
		).Scan(&r.ID)
		if err != nil {
			return fmt.Errorf("insert round: %w", err)
		}
	}
	return nil
}

func (t *pgTx) UpdateRound(ctx context.Context, r *models.Round) error {
	q := `
	UPDATE rounds
	SET status = $2, opponent_id = $3, creator_card = $4, opponent_card = $5, winner_id = $6
	WHERE id = $1
	`
	tag, err := t.tx.Exec(ctx, q,
		r.ID, int16(r.Status), r.OpponentID, fromCard(r.CreatorCard), fromCard(r.OpponentCard), r.WinnerID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
