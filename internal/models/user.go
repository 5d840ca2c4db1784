package models

import (
	"time"

	"github.com/rockps/rockps/internal/rating"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`

	// CurrentLobbyID is the lobby the user occupies, nil when free.
	CurrentLobbyID *int64        `json:"current_lobby_id"`
	Rating         rating.Rating `json:"rating"`
	CreatedAt      time.Time     `json:"created_at"`
}

// Clone returns a deep copy.
func (u *User) Clone() *User {
	c := *u
	c.CurrentLobbyID = cloneID(u.CurrentLobbyID)
	return &c
}
