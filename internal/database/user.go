// internal/database/user.go
package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rating"
	"github.com/rockps/rockps/internal/store"
)

const userColumns = `id, username, password, current_lobby_id, rating, rating_deviation, volatility, created_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Password, &u.CurrentLobbyID,
		&u.Rating.Value, &u.Rating.Deviation, &u.Rating.Volatility,
		&u.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

// LockUser reads the user and holds its row lock, guarding lobby occupancy.
func (t *pgTx) LockUser(ctx context.Context, id int64) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1 FOR UPDATE`
	return scanUser(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(t.tx.QueryRow(ctx, q, id))
}

func (t *pgTx) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(t.tx.QueryRow(ctx, q, username))
}

// InsertUser expects u.Password to already be hashed.
func (t *pgTx) InsertUser(ctx context.Context, u *models.User) error {
	if u.Rating.IsZero() {
		u.Rating = rating.Default()
	}
	q := `
	INSERT INTO users (username, password, current_lobby_id, rating, rating_deviation, volatility)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING id, created_at
	`
	err := t.tx.QueryRow(ctx, q,
		u.Username, u.Password, u.CurrentLobbyID,
		u.Rating.Value, u.Rating.Deviation, u.Rating.Volatility,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (t *pgTx) SetUserLobby(ctx context.Context, userID int64, lobbyID *int64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE users SET current_lobby_id = $2 WHERE id = $1`, userID, lobbyID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (t *pgTx) SetUserRating(ctx context.Context, userID int64, r rating.Rating) error {
	q := `UPDATE users SET rating = $2, rating_deviation = $3, volatility = $4 WHERE id = $1`
	tag, err := t.tx.Exec(ctx, q, userID, r.Value, r.Deviation, r.Volatility)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
