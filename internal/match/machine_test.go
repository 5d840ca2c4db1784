package match

import (
	"errors"
	"testing"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(c rules.Card) *rules.Card { return &c }

func activeRound(ruleset rules.Ruleset) *models.Round {
	return &models.Round{
		ID:         10,
		LobbyID:    1,
		Ruleset:    ruleset,
		Status:     models.RoundActive,
		CreatorID:  1,
		OpponentID: models.ID64(2),
	}
}

func TestBuildScheduleCounts(t *testing.T) {
	for n := 1; n <= 15; n += 2 {
		l := &models.Lobby{ID: 4, Rounds: n, Ruleset: rules.Extended, CreatorID: 1, Status: models.LobbyActive}
		rounds, err := BuildSchedule(l, nil)
		require.NoError(t, err)
		require.Len(t, rounds, n)
		for _, r := range rounds {
			assert.Equal(t, models.RoundPending, r.Status)
			assert.Equal(t, rules.Extended, r.Ruleset)
			assert.Equal(t, int64(1), r.CreatorID)
			assert.Nil(t, r.OpponentID)
			assert.Equal(t, int64(4), r.LobbyID)
		}

		require.NoError(t, StartSchedule(rounds, 2))
		assert.Equal(t, models.RoundActive, rounds[0].Status)
		for i, r := range rounds {
			require.NotNil(t, r.OpponentID)
			assert.Equal(t, int64(2), *r.OpponentID)
			if i > 0 {
				assert.Equal(t, models.RoundPending, r.Status)
			}
		}
	}
}

func TestBuildScheduleExactlyOnce(t *testing.T) {
	l := &models.Lobby{ID: 4, Rounds: 3, CreatorID: 1}
	_, err := BuildSchedule(l, []*models.Round{{ID: 1}})
	require.ErrorIs(t, err, ErrAlreadyScheduled)
	assert.Equal(t, KindState, KindOf(err))

	rounds := []*models.Round{{Status: models.RoundActive}}
	assert.ErrorIs(t, StartSchedule(rounds, 2), ErrAlreadyScheduled)
}

func TestBuildScheduleRejectsEvenCount(t *testing.T) {
	_, err := BuildSchedule(&models.Lobby{Rounds: 4}, nil)
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestSubmitCardResolves(t *testing.T) {
	r := activeRound(rules.Standard)

	resolved, err := SubmitCard(r, 1, rules.Rock)
	require.NoError(t, err)
	assert.False(t, resolved)
	assert.Equal(t, models.RoundActive, r.Status)

	resolved, err = SubmitCard(r, 2, rules.Scissors)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, models.RoundFinished, r.Status)
	require.NotNil(t, r.WinnerID)
	assert.Equal(t, int64(1), *r.WinnerID)
}

func TestSubmitCardOpponentWins(t *testing.T) {
	r := activeRound(rules.Extended)
	_, err := SubmitCard(r, 2, rules.Spock)
	require.NoError(t, err)
	_, err = SubmitCard(r, 1, rules.Rock)
	require.NoError(t, err)
	require.NotNil(t, r.WinnerID)
	assert.Equal(t, int64(2), *r.WinnerID)
}

func TestSubmitCardDraw(t *testing.T) {
	r := activeRound(rules.Standard)
	_, err := SubmitCard(r, 1, rules.Paper)
	require.NoError(t, err)
	resolved, err := SubmitCard(r, 2, rules.Paper)
	require.NoError(t, err)
	assert.True(t, resolved)
	assert.Equal(t, models.RoundFinished, r.Status)
	assert.Nil(t, r.WinnerID)
}

func TestSubmitCardFailures(t *testing.T) {
	r := activeRound(rules.Standard)

	_, err := SubmitCard(r, 3, rules.Rock)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, KindForbidden, KindOf(err))

	_, err = SubmitCard(r, 1, rules.Lizard)
	assert.ErrorIs(t, err, ErrInvalidCard)
	assert.ErrorIs(t, err, rules.ErrInvalidCard)
	assert.Nil(t, r.CreatorCard, "rejected card must not be stored")

	_, err = SubmitCard(r, 1, rules.Paper)
	require.NoError(t, err)
	_, err = SubmitCard(r, 1, rules.Paper)
	assert.ErrorIs(t, err, ErrAlreadyPlayed)
	assert.Equal(t, KindConflict, KindOf(err))

	pending := activeRound(rules.Standard)
	pending.Status = models.RoundPending
	_, err = SubmitCard(pending, 1, rules.Rock)
	assert.ErrorIs(t, err, ErrRoundNotActive)
}

func TestCancelRound(t *testing.T) {
	r := activeRound(rules.Standard)
	assert.True(t, CancelRound(r))
	assert.Equal(t, models.RoundCanceled, r.Status)
	assert.False(t, CancelRound(r))

	f := activeRound(rules.Standard)
	f.Status = models.RoundFinished
	assert.False(t, CancelRound(f))
	assert.Equal(t, models.RoundFinished, f.Status)
}

func TestNewLobbyValidation(t *testing.T) {
	_, err := NewLobby(1, "x", 2, 0, rules.Standard)
	assert.ErrorIs(t, err, ErrInvalidRoundCount)
	_, err = NewLobby(1, "x", 0, 0, rules.Standard)
	assert.ErrorIs(t, err, ErrInvalidRoundCount)
	_, err = NewLobby(1, "x", -3, 0, rules.Standard)
	assert.ErrorIs(t, err, ErrInvalidRoundCount)
	_, err = NewLobby(1, "x", 101, 99, rules.Standard)
	assert.ErrorIs(t, err, ErrInvalidRoundCount)
	_, err = NewLobby(1, "  ", 3, 0, rules.Standard)
	assert.ErrorIs(t, err, ErrInvalidName)
	_, err = NewLobby(1, "x", 3, 0, rules.Ruleset(9))
	assert.ErrorIs(t, err, ErrInvalidRuleset)

	l, err := NewLobby(1, " friday ", 5, 0, rules.Extended)
	require.NoError(t, err)
	assert.Equal(t, "friday", l.Name)
	assert.Equal(t, models.LobbyOpened, l.Status)
	assert.Nil(t, l.OpponentID)
}

func TestJoinRules(t *testing.T) {
	l := &models.Lobby{ID: 1, Status: models.LobbyOpened, CreatorID: 1, Rounds: 3}
	busy := &models.User{ID: 2, CurrentLobbyID: models.ID64(8)}
	assert.ErrorIs(t, Join(l, busy), ErrUserAlreadyInLobby)

	free := &models.User{ID: 2}
	require.NoError(t, Join(l, free))
	assert.Equal(t, models.LobbyActive, l.Status)
	assert.Equal(t, int64(2), *l.OpponentID)

	assert.ErrorIs(t, Join(l, &models.User{ID: 3}), ErrLobbyNotJoinable)
}

func TestLeaveRules(t *testing.T) {
	opened := &models.Lobby{ID: 1, Status: models.LobbyOpened, CreatorID: 1}
	_, err := Leave(opened, nil, 2)
	assert.ErrorIs(t, err, ErrForbidden)

	changed, err := Leave(opened, nil, 1)
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Equal(t, models.LobbyCanceled, opened.Status)

	_, err = Leave(opened, nil, 1)
	assert.ErrorIs(t, err, ErrForbidden)

	active := &models.Lobby{ID: 2, Status: models.LobbyActive, CreatorID: 1, OpponentID: models.ID64(2)}
	rounds := []*models.Round{
		{ID: 1, Status: models.RoundFinished},
		{ID: 2, Status: models.RoundActive},
		{ID: 3, Status: models.RoundPending},
	}
	changed, err = Leave(active, rounds, 2)
	require.NoError(t, err)
	assert.Len(t, changed, 2)
	assert.Equal(t, models.RoundFinished, rounds[0].Status)
	assert.Equal(t, models.RoundCanceled, rounds[1].Status)
	assert.Equal(t, models.RoundCanceled, rounds[2].Status)
	assert.Equal(t, models.LobbyCanceled, active.Status)
}

func finished(id, winner int64) *models.Round {
	r := &models.Round{ID: id, Status: models.RoundFinished, CreatorID: 1, OpponentID: models.ID64(2)}
	if winner != 0 {
		r.WinnerID = models.ID64(winner)
	}
	return r
}

func TestOnRoundCompletedMajority(t *testing.T) {
	l := &models.Lobby{ID: 1, Rounds: 3, Status: models.LobbyActive, CreatorID: 1, OpponentID: models.ID64(2)}
	rounds := []*models.Round{finished(1, 1), finished(2, 1), {ID: 3, Status: models.RoundPending}}

	out, err := OnRoundCompleted(l, rounds, rounds[1])
	require.NoError(t, err)
	assert.True(t, out.Finished)
	require.NotNil(t, out.WinnerID)
	assert.Equal(t, int64(1), *out.WinnerID)
	assert.Equal(t, Score{Creator: 2}, out.Score)
	assert.Equal(t, models.LobbyFinished, l.Status)
	assert.Equal(t, models.RoundCanceled, rounds[2].Status)
	assert.Len(t, out.Changed, 1)
	assert.Nil(t, out.Activated)
}

func TestOnRoundCompletedAdvances(t *testing.T) {
	l := &models.Lobby{ID: 1, Rounds: 5, Status: models.LobbyActive, CreatorID: 1, OpponentID: models.ID64(2)}
	rounds := []*models.Round{
		finished(1, 2),
		{ID: 2, Status: models.RoundPending},
		{ID: 3, Status: models.RoundPending},
		{ID: 4, Status: models.RoundPending},
		{ID: 5, Status: models.RoundPending},
	}
	out, err := OnRoundCompleted(l, rounds, rounds[0])
	require.NoError(t, err)
	assert.False(t, out.Finished)
	require.NotNil(t, out.Activated)
	assert.Equal(t, int64(2), out.Activated.ID)
	assert.Equal(t, models.RoundActive, rounds[1].Status)
	assert.Equal(t, models.RoundPending, rounds[2].Status)
	assert.Equal(t, models.LobbyActive, l.Status)
}

func TestOnRoundCompletedAllDrawsNoWinner(t *testing.T) {
	l := &models.Lobby{ID: 1, Rounds: 3, Status: models.LobbyActive, CreatorID: 1, OpponentID: models.ID64(2)}
	rounds := []*models.Round{finished(1, 0), finished(2, 1), finished(3, 0)}
	out, err := OnRoundCompleted(l, rounds, rounds[2])
	require.NoError(t, err)
	assert.True(t, out.Finished)
	assert.Nil(t, out.WinnerID)
	assert.Equal(t, Score{Creator: 1}, out.Score)
	assert.Equal(t, models.LobbyFinished, l.Status)
}

func TestOnRoundCompletedRejectsBadState(t *testing.T) {
	l := &models.Lobby{ID: 1, Rounds: 3, Status: models.LobbyCanceled, CreatorID: 1, OpponentID: models.ID64(2)}
	rounds := []*models.Round{finished(1, 1)}
	_, err := OnRoundCompleted(l, rounds, rounds[0])
	assert.ErrorIs(t, err, ErrInvariant)

	l.Status = models.LobbyActive
	_, err = OnRoundCompleted(l, rounds, &models.Round{ID: 9, Status: models.RoundActive})
	assert.ErrorIs(t, err, ErrInvariant)
}

func TestMajority(t *testing.T) {
	assert.Equal(t, 1, Majority(1))
	assert.Equal(t, 2, Majority(3))
	assert.Equal(t, 3, Majority(5))
	assert.Equal(t, 4, Majority(7))
}

func TestRoundViewRedaction(t *testing.T) {
	r := activeRound(rules.Standard)
	r.CreatorCard = card(rules.Rock)

	asCreator := NewRoundView(r, 1, 1)
	require.NotNil(t, asCreator.CreatorCard)
	assert.Equal(t, rules.Rock, *asCreator.CreatorCard)
	assert.False(t, asCreator.OpponentReady)

	asOpponent := NewRoundView(r, 1, 2)
	assert.Nil(t, asOpponent.CreatorCard, "opponent card must stay hidden")
	assert.Nil(t, asOpponent.OpponentCard)
	assert.True(t, asOpponent.OpponentReady)

	r.Status = models.RoundCanceled
	assert.Nil(t, NewRoundView(r, 1, 2).CreatorCard)

	r.Status = models.RoundFinished
	r.OpponentCard = card(rules.Rock)
	done := NewRoundView(r, 1, 2)
	require.NotNil(t, done.CreatorCard)
	require.NotNil(t, done.OpponentCard)
	assert.True(t, done.Draw)
}

func TestErrorMatching(t *testing.T) {
	err := ErrAlreadyPlayed.with("custom reason", errors.New("cause"))
	assert.ErrorIs(t, err, ErrAlreadyPlayed)
	assert.NotErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "custom reason")
	assert.True(t, BlameUser(err))
	assert.False(t, BlameUser(ErrInvariant))
	assert.False(t, BlameUser(errors.New("db down")))
	assert.Equal(t, KindInternal, KindOf(errors.New("db down")))
}
