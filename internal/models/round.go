package models

import (
	"fmt"

	"github.com/rockps/rockps/internal/rules"
)

// RoundStatus is the lifecycle state of a single round. Values match the stored status ids.
type RoundStatus int

const (
	RoundPending  RoundStatus = 1
	RoundActive   RoundStatus = 2
	RoundFinished RoundStatus = 3
	RoundCanceled RoundStatus = 4
)

func (s RoundStatus) String() string {
	switch s {
	case RoundPending:
		return "pending"
	case RoundActive:
		return "active"
	case RoundFinished:
		return "finished"
	case RoundCanceled:
		return "canceled"
	}
	return fmt.Sprintf("round_status(%d)", int(s))
}

func (s RoundStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Round is one card exchange inside a lobby (a "game" row).
// Rounds of a lobby are ordered by ID; the lowest ID is played first.
type Round struct {
	ID           int64         `json:"id"`
	LobbyID      int64         `json:"lobby_id"`
	Ruleset      rules.Ruleset `json:"ruleset"`
	Status       RoundStatus   `json:"status"`
	CreatorID    int64         `json:"creator_id"`
	OpponentID   *int64        `json:"opponent_id"`
	CreatorCard  *rules.Card   `json:"creator_card"`
	OpponentCard *rules.Card   `json:"opponent_card"`
	// WinnerID is nil on a draw or before resolution; Status disambiguates.
	WinnerID *int64 `json:"winner_id"`
}

// CardOf returns the card slot belonging to userID, or nil if userID plays neither slot.
func (r *Round) CardOf(userID int64) **rules.Card {
	if r.CreatorID == userID {
		return &r.CreatorCard
	}
	if r.OpponentID != nil && *r.OpponentID == userID {
		return &r.OpponentCard
	}
	return nil
}

// Open reports whether the round can still be played or canceled.
func (r *Round) Open() bool {
	return r.Status == RoundPending || r.Status == RoundActive
}

// Clone returns a deep copy.
func (r *Round) Clone() *Round {
	c := *r
	c.OpponentID = cloneID(r.OpponentID)
	c.WinnerID = cloneID(r.WinnerID)
	if r.CreatorCard != nil {
		v := *r.CreatorCard
		c.CreatorCard = &v
	}
	if r.OpponentCard != nil {
		v := *r.OpponentCard
		c.OpponentCard = &v
	}
	return &c
}
