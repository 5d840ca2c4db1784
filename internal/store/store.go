// Package store defines the persistence boundary consumed by the match core.
package store

import (
	"context"
	"errors"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rating"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint (username) is violated.
	ErrDuplicate = errors.New("record already exists")
)

// Store opens transactions. fn's changes are committed only if fn returns nil.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is a single read-modify-write unit. Lock* methods hold a row lock until the
// transaction ends; all lobby transitions must start with LockLobby.
type Tx interface {
	LockLobby(ctx context.Context, id int64) (*models.Lobby, error)
	GetLobby(ctx context.Context, id int64) (*models.Lobby, error)
	// ListLobbies returns one page of lobbies with the given status ordered by id, plus the total count.
	ListLobbies(ctx context.Context, status models.LobbyStatus, offset, limit int) ([]*models.Lobby, int, error)
	InsertLobby(ctx context.Context, l *models.Lobby) error
	UpdateLobby(ctx context.Context, l *models.Lobby) error

	GetRound(ctx context.Context, id int64) (*models.Round, error)
	// ListRounds returns a lobby's rounds in schedule (id) order.
	ListRounds(ctx context.Context, lobbyID int64) ([]*models.Round, error)
	InsertRounds(ctx context.Context, rounds []*models.Round) error
	UpdateRound(ctx context.Context, r *models.Round) error

	LockUser(ctx context.Context, id int64) (*models.User, error)
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	InsertUser(ctx context.Context, u *models.User) error
	SetUserLobby(ctx context.Context, userID int64, lobbyID *int64) error
	SetUserRating(ctx context.Context, userID int64, r rating.Rating) error
}
