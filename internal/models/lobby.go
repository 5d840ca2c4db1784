// internal/models/lobby.go
package models

import (
	"fmt"
	"time"

	"github.com/rockps/rockps/internal/rules"
)

// LobbyStatus is the lifecycle state of a lobby. Values match the stored status ids.
type LobbyStatus int

const (
	LobbyOpened   LobbyStatus = 1
	LobbyActive   LobbyStatus = 2
	LobbyFinished LobbyStatus = 3
	LobbyCanceled LobbyStatus = 4
)

func (s LobbyStatus) String() string {
	switch s {
	case LobbyOpened:
		return "opened"
	case LobbyActive:
		return "active"
	case LobbyFinished:
		return "finished"
	case LobbyCanceled:
		return "canceled"
	}
	return fmt.Sprintf("lobby_status(%d)", int(s))
}

func (s LobbyStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transitions are allowed.
func (s LobbyStatus) Terminal() bool {
	return s == LobbyFinished || s == LobbyCanceled
}

// Lobby represents a row in the lobbies table: a 1v1 best-of-N match container.
type Lobby struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Rounds     int           `json:"rounds"`
	Ruleset    rules.Ruleset `json:"ruleset"`
	Status     LobbyStatus   `json:"status"`
	CreatorID  int64         `json:"creator_id"`
	OpponentID *int64        `json:"opponent_id"`
	CreatedAt  time.Time     `json:"created_at"`
}

// IsParticipant reports whether userID occupies either slot.
func (l *Lobby) IsParticipant(userID int64) bool {
	if l.CreatorID == userID {
		return true
	}
	return l.OpponentID != nil && *l.OpponentID == userID
}

// Participants returns the occupied slots, creator first.
func (l *Lobby) Participants() []int64 {
	ids := []int64{l.CreatorID}
	if l.OpponentID != nil {
		ids = append(ids, *l.OpponentID)
	}
	return ids
}

// Clone returns a deep copy.
func (l *Lobby) Clone() *Lobby {
	c := *l
	c.OpponentID = cloneID(l.OpponentID)
	return &c
}

func cloneID(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// ID64 returns a pointer to a copy of id, for nullable id columns.
func ID64(id int64) *int64 {
	return &id
}
