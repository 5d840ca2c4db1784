package match

import (
	"fmt"

	"github.com/rockps/rockps/internal/models"
)

// BuildSchedule returns the lobby's full round set, all pending, in play order.
// existing is what storage already holds for the lobby; scheduling twice is a StateError.
func BuildSchedule(l *models.Lobby, existing []*models.Round) ([]*models.Round, error) {
	if len(existing) > 0 {
		return nil, ErrAlreadyScheduled.with(fmt.Sprintf("lobby %d already has %d rounds", l.ID, len(existing)), nil)
	}
	if !validRoundCount(l.Rounds) {
		return nil, ErrInvariant.with(fmt.Sprintf("lobby %d has round count %d", l.ID, l.Rounds), nil)
	}

	rounds := make([]*models.Round, 0, l.Rounds)
	for i := 0; i < l.Rounds; i++ {
		rounds = append(rounds, &models.Round{
			LobbyID:   l.ID,
			Ruleset:   l.Ruleset,
			Status:    models.RoundPending,
			CreatorID: l.CreatorID,
		})
	}
	return rounds, nil
}

// StartSchedule back-fills the opponent on every round and activates the first one.
func StartSchedule(rounds []*models.Round, opponentID int64) error {
	if len(rounds) == 0 {
		return ErrInvariant.with("no rounds to start", nil)
	}
	for _, r := range rounds {
		if r.Status != models.RoundPending {
			return ErrAlreadyScheduled.with(fmt.Sprintf("round %d is %v", r.ID, r.Status), nil)
		}
		r.OpponentID = models.ID64(opponentID)
	}
	rounds[0].Status = models.RoundActive
	return nil
}

func validRoundCount(n int) bool {
	return n >= 1 && n%2 == 1
}
