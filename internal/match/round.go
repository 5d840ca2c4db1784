package match

import (
	"fmt"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
)

// SubmitCard plays card for userID in round r. When both slots are filled the round is
// resolved: status becomes finished and WinnerID is set (nil on a draw). resolved reports that.
func SubmitCard(r *models.Round, userID int64, card rules.Card) (resolved bool, err error) {
	slot := r.CardOf(userID)
	if slot == nil {
		return false, ErrForbidden.with(fmt.Sprintf("user %d does not play round %d", userID, r.ID), nil)
	}
	if r.Status != models.RoundActive {
		return false, ErrRoundNotActive.with(fmt.Sprintf("round %d is %v", r.ID, r.Status), nil)
	}
	if *slot != nil {
		return false, ErrAlreadyPlayed
	}
	if err := rules.Validate(card, r.Ruleset); err != nil {
		return false, ErrInvalidCard.with("", err)
	}

	c := card
	*slot = &c

	if r.CreatorCard == nil || r.OpponentCard == nil {
		return false, nil
	}
	if err := resolveRound(r); err != nil {
		return false, err
	}
	return true, nil
}

func resolveRound(r *models.Round) error {
	if r.OpponentID == nil {
		return ErrInvariant.with(fmt.Sprintf("round %d resolved without opponent", r.ID), nil)
	}
	out, err := rules.Resolve(*r.CreatorCard, *r.OpponentCard, r.Ruleset)
	if err != nil {
		// both cards were validated on submission
		return ErrInvariant.with(fmt.Sprintf("round %d holds an invalid card", r.ID), err)
	}
	switch out {
	case rules.AWins:
		r.WinnerID = models.ID64(r.CreatorID)
	case rules.BWins:
		r.WinnerID = models.ID64(*r.OpponentID)
	default:
		r.WinnerID = nil
	}
	r.Status = models.RoundFinished
	return nil
}

// CancelRound marks a pending or active round canceled. It reports whether r changed.
func CancelRound(r *models.Round) bool {
	if !r.Open() {
		return false
	}
	r.Status = models.RoundCanceled
	return true
}
