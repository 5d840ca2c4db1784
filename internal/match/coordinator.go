package match

import (
	"fmt"

	"github.com/rockps/rockps/internal/models"
)

// Score is the running tally of rounds won in a lobby. Draws count for neither side.
type Score struct {
	Creator  int `json:"creator"`
	Opponent int `json:"opponent"`
}

// Tally recomputes the score from the lobby's finished rounds.
func Tally(l *models.Lobby, rounds []*models.Round) Score {
	var s Score
	for _, r := range rounds {
		if r.Status != models.RoundFinished || r.WinnerID == nil {
			continue
		}
		switch {
		case *r.WinnerID == l.CreatorID:
			s.Creator++
		case l.OpponentID != nil && *r.WinnerID == *l.OpponentID:
			s.Opponent++
		}
	}
	return s
}

// Majority is the number of round wins that decides a best-of-n match.
func Majority(n int) int {
	return n/2 + 1
}

// Winner returns the match winner, or nil if no side reached the majority.
func (s Score) Winner(l *models.Lobby) *int64 {
	need := Majority(l.Rounds)
	switch {
	case s.Creator >= need:
		return models.ID64(l.CreatorID)
	case s.Opponent >= need && l.OpponentID != nil:
		return models.ID64(*l.OpponentID)
	}
	return nil
}

// Outcome describes what OnRoundCompleted did.
type Outcome struct {
	Score Score
	// Finished is true when the lobby moved to finished.
	Finished bool
	// WinnerID is the match winner; nil when finished without majority or still running.
	WinnerID *int64
	// Activated is the round that became active next, if any.
	Activated *models.Round
	// Changed lists rounds other than the completed one whose status changed.
	Changed []*models.Round
}

// OnRoundCompleted advances the match after completed has finished. rounds must be the
// lobby's full schedule in order, including completed. It mutates l and rounds in place.
func OnRoundCompleted(l *models.Lobby, rounds []*models.Round, completed *models.Round) (Outcome, error) {
	if completed.Status != models.RoundFinished {
		return Outcome{}, ErrInvariant.with(fmt.Sprintf("round %d completed while %v", completed.ID, completed.Status), nil)
	}
	if l.Status != models.LobbyActive {
		return Outcome{}, ErrInvariant.with(fmt.Sprintf("round %d completed in %v lobby %d", completed.ID, l.Status, l.ID), nil)
	}

	out := Outcome{Score: Tally(l, rounds)}

	if winner := out.Score.Winner(l); winner != nil {
		l.Status = models.LobbyFinished
		out.Finished = true
		out.WinnerID = winner
		for _, r := range rounds {
			if r.Status == models.RoundPending && CancelRound(r) {
				out.Changed = append(out.Changed, r)
			}
		}
		return out, nil
	}

	for _, r := range rounds {
		if r.Status == models.RoundActive {
			return Outcome{}, ErrInvariant.with(fmt.Sprintf("round %d still active after round %d finished", r.ID, completed.ID), nil)
		}
		if r.Status == models.RoundPending {
			r.Status = models.RoundActive
			out.Activated = r
			out.Changed = append(out.Changed, r)
			return out, nil
		}
	}

	// last scheduled round played without a majority (draws)
	l.Status = models.LobbyFinished
	out.Finished = true
	return out, nil
}
