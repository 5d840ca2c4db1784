package match

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
)

const maxNameLen = 128

// NewLobby validates the create request and returns an opened lobby without rounds.
// Occupancy of the creator is checked by the caller with the creator's row locked.
func NewLobby(creatorID int64, name string, rounds, maxRounds int, ruleset rules.Ruleset) (*models.Lobby, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxNameLen {
		return nil, ErrInvalidName
	}
	if !validRoundCount(rounds) {
		return nil, ErrInvalidRoundCount.with(fmt.Sprintf("got %d", rounds), nil)
	}
	if maxRounds > 0 && rounds > maxRounds {
		return nil, ErrInvalidRoundCount.with(fmt.Sprintf("at most %d rounds allowed", maxRounds), nil)
	}
	if !ruleset.Valid() {
		return nil, ErrInvalidRuleset
	}
	return &models.Lobby{
		Name:      name,
		Rounds:    rounds,
		Ruleset:   ruleset,
		Status:    models.LobbyOpened,
		CreatorID: creatorID,
	}, nil
}

// CheckFree fails with ErrUserAlreadyInLobby when u already occupies a lobby.
func CheckFree(u *models.User) error {
	if u.CurrentLobbyID != nil {
		return ErrUserAlreadyInLobby.with(fmt.Sprintf("user %d is in lobby %d", u.ID, *u.CurrentLobbyID), nil)
	}
	return nil
}

// Join seats u as the opponent and moves the lobby to active.
// Scheduling the rounds is the caller's next step inside the same transaction.
func Join(l *models.Lobby, u *models.User) error {
	if l.Status != models.LobbyOpened {
		return ErrLobbyNotJoinable.with(fmt.Sprintf("lobby %d is %v", l.ID, l.Status), nil)
	}
	if err := CheckFree(u); err != nil {
		return err
	}
	if l.CreatorID == u.ID || l.OpponentID != nil {
		// an opened lobby never has an opponent and its creator always occupies it
		return ErrInvariant.with(fmt.Sprintf("opened lobby %d has inconsistent slots", l.ID), nil)
	}
	l.OpponentID = models.ID64(u.ID)
	l.Status = models.LobbyActive
	return nil
}

// Leave cancels the lobby on behalf of userID and every open round in rounds.
// It returns the rounds that changed. Terminal lobbies reject leave with ErrForbidden.
func Leave(l *models.Lobby, rounds []*models.Round, userID int64) ([]*models.Round, error) {
	if !l.IsParticipant(userID) {
		return nil, ErrForbidden.with(fmt.Sprintf("user %d is not in lobby %d", userID, l.ID), nil)
	}
	switch l.Status {
	case models.LobbyOpened:
		if len(rounds) > 0 {
			return nil, ErrInvariant.with(fmt.Sprintf("opened lobby %d already has rounds", l.ID), nil)
		}
		l.Status = models.LobbyCanceled
		return nil, nil
	case models.LobbyActive:
		var changed []*models.Round
		for _, r := range rounds {
			if CancelRound(r) {
				changed = append(changed, r)
			}
		}
		l.Status = models.LobbyCanceled
		return changed, nil
	}
	return nil, ErrForbidden.with(fmt.Sprintf("lobby %d is %v", l.ID, l.Status), nil)
}
