package store

import (
	"context"
	"errors"
	"testing"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRollbackOnError(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.WithTx(ctx, func(tx Tx) error {
		require.NoError(t, tx.InsertUser(ctx, &models.User{Username: "alice"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = m.WithTx(ctx, func(tx Tx) error {
		_, err := tx.GetUserByUsername(ctx, "alice")
		return err
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCommitAndReturnedCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	var lobbyID int64
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		l := &models.Lobby{Name: "one", Rounds: 3, Ruleset: rules.Standard, Status: models.LobbyOpened, CreatorID: 1}
		if err := tx.InsertLobby(ctx, l); err != nil {
			return err
		}
		lobbyID = l.ID
		// mutating the caller's struct must not leak without UpdateLobby
		l.Name = "changed"
		return nil
	}))

	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		l, err := tx.GetLobby(ctx, lobbyID)
		require.NoError(t, err)
		assert.Equal(t, "one", l.Name)
		assert.False(t, l.CreatedAt.IsZero())
		return nil
	}))
}

func TestMemoryDuplicateUsername(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		return tx.InsertUser(ctx, &models.User{Username: "bob"})
	}))
	err := m.WithTx(ctx, func(tx Tx) error {
		return tx.InsertUser(ctx, &models.User{Username: "bob"})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestMemoryListLobbiesPaging(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		for i := 0; i < 5; i++ {
			status := models.LobbyOpened
			if i == 2 {
				status = models.LobbyActive
			}
			if err := tx.InsertLobby(ctx, &models.Lobby{Rounds: 1, Ruleset: rules.Standard, Status: status}); err != nil {
				return err
			}
		}
		return nil
	}))

	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		page, total, err := tx.ListLobbies(ctx, models.LobbyOpened, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, page, 2)
		assert.Equal(t, int64(2), page[0].ID)
		assert.Equal(t, int64(4), page[1].ID)

		page, _, err = tx.ListLobbies(ctx, models.LobbyOpened, 10, 2)
		require.NoError(t, err)
		assert.Empty(t, page)
		return nil
	}))
}

func TestMemoryRoundsOrderedByID(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.WithTx(ctx, func(tx Tx) error {
		rounds := []*models.Round{{LobbyID: 7}, {LobbyID: 8}, {LobbyID: 7}}
		if err := tx.InsertRounds(ctx, rounds); err != nil {
			return err
		}
		got, err := tx.ListRounds(ctx, 7)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Less(t, got[0].ID, got[1].ID)
		return nil
	}))
}

func TestMemoryCanceledContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := m.WithTx(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}
