package match

import (
	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
)

// LobbyView is the outward representation of a lobby with its derived score.
type LobbyView struct {
	ID         int64              `json:"id"`
	Name       string             `json:"name"`
	Rounds     int                `json:"rounds"`
	Ruleset    rules.Ruleset      `json:"ruleset"`
	Status     models.LobbyStatus `json:"status"`
	CreatorID  int64              `json:"creator_id"`
	OpponentID *int64             `json:"opponent_id"`
	Score      Score              `json:"score"`
	Majority   int                `json:"majority"`
	WinnerID   *int64             `json:"winner_id"`
}

// RoundView is a round as seen by one viewer.
type RoundView struct {
	ID            int64              `json:"id"`
	LobbyID       int64              `json:"lobby_id"`
	Number        int                `json:"number"`
	Status        models.RoundStatus `json:"status"`
	CreatorID     int64              `json:"creator_id"`
	OpponentID    *int64             `json:"opponent_id"`
	CreatorCard   *rules.Card        `json:"creator_card"`
	OpponentCard  *rules.Card        `json:"opponent_card"`
	OpponentReady bool               `json:"opponent_ready"`
	WinnerID      *int64             `json:"winner_id"`
	Draw          bool               `json:"draw"`
}

// Page is one slice of a lobby listing.
type Page struct {
	Items  []LobbyView `json:"items"`
	Offset int         `json:"offset"`
	Limit  int         `json:"limit"`
	Total  int         `json:"total"`
}

func NewLobbyView(l *models.Lobby, rounds []*models.Round) LobbyView {
	score := Tally(l, rounds)
	v := LobbyView{
		ID:         l.ID,
		Name:       l.Name,
		Rounds:     l.Rounds,
		Ruleset:    l.Ruleset,
		Status:     l.Status,
		CreatorID:  l.CreatorID,
		OpponentID: l.OpponentID,
		Score:      score,
		Majority:   Majority(l.Rounds),
	}
	if l.Status == models.LobbyFinished {
		v.WinnerID = score.Winner(l)
	}
	return v
}

// NewRoundView renders r (the number-th round, 1-based) for viewerID. Until a round is
// finished the viewer only ever sees their own card; the opponent's is reported by
// OpponentReady alone.
func NewRoundView(r *models.Round, number int, viewerID int64) RoundView {
	v := RoundView{
		ID:         r.ID,
		LobbyID:    r.LobbyID,
		Number:     number,
		Status:     r.Status,
		CreatorID:  r.CreatorID,
		OpponentID: r.OpponentID,
		WinnerID:   r.WinnerID,
	}
	if r.Status == models.RoundFinished {
		v.CreatorCard = r.CreatorCard
		v.OpponentCard = r.OpponentCard
		v.OpponentReady = true
		v.Draw = r.WinnerID == nil
		return v
	}

	switch {
	case viewerID == r.CreatorID:
		v.CreatorCard = r.CreatorCard
		v.OpponentReady = r.OpponentCard != nil
	case r.OpponentID != nil && viewerID == *r.OpponentID:
		v.OpponentCard = r.OpponentCard
		v.OpponentReady = r.CreatorCard != nil
	}
	return v
}

// NewRoundViews renders a lobby's schedule for viewerID.
func NewRoundViews(rounds []*models.Round, viewerID int64) []RoundView {
	out := make([]RoundView, 0, len(rounds))
	for i, r := range rounds {
		out = append(out, NewRoundView(r, i+1, viewerID))
	}
	return out
}
