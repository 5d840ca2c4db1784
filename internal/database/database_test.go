package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rules"
	"github.com/rockps/rockps/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore connects to the database named by DATABASE_URL and skips the test otherwise.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, Migrate(ctx, pool))
	return NewStore(pool)
}

func insertUser(t *testing.T, s *Store) *models.User {
	t.Helper()
	u := &models.User{Username: fmt.Sprintf("u%d", time.Now().UnixNano()), Password: "hash"}
	require.NoError(t, s.WithTx(context.Background(), func(tx store.Tx) error {
		return tx.InsertUser(context.Background(), u)
	}))
	return u
}

func TestUserUniqueUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := insertUser(t, s)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		return tx.InsertUser(ctx, &models.User{Username: u.Username, Password: "x"})
	})
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestLobbyAndRoundsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a, b := insertUser(t, s), insertUser(t, s)

	l := &models.Lobby{Name: "db", Rounds: 3, Ruleset: rules.Extended, Status: models.LobbyOpened, CreatorID: a.ID}
	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.InsertLobby(ctx, l); err != nil {
			return err
		}
		return tx.SetUserLobby(ctx, a.ID, models.ID64(l.ID))
	}))
	assert.NotZero(t, l.ID)

	card := rules.Spock
	err := s.WithTx(ctx, func(tx store.Tx) error {
		locked, err := tx.LockLobby(ctx, l.ID)
		if err != nil {
			return err
		}
		locked.OpponentID = models.ID64(b.ID)
		locked.Status = models.LobbyActive
		if err := tx.UpdateLobby(ctx, locked); err != nil {
			return err
		}
		rounds := make([]*models.Round, 3)
		for i := range rounds {
			rounds[i] = &models.Round{LobbyID: l.ID, Ruleset: rules.Extended, Status: models.RoundPending, CreatorID: a.ID, OpponentID: models.ID64(b.ID)}
		}
		rounds[0].Status = models.RoundActive
		rounds[0].CreatorCard = &card
		return tx.InsertRounds(ctx, rounds)
	})
	require.NoError(t, err)

	require.NoError(t, s.WithTx(ctx, func(tx store.Tx) error {
		got, err := tx.GetLobby(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, models.LobbyActive, got.Status)
		assert.Equal(t, rules.Extended, got.Ruleset)
		require.NotNil(t, got.OpponentID)
		assert.Equal(t, b.ID, *got.OpponentID)

		rounds, err := tx.ListRounds(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, rounds, 3)
		assert.Less(t, rounds[0].ID, rounds[1].ID)
		require.NotNil(t, rounds[0].CreatorCard)
		assert.Equal(t, rules.Spock, *rounds[0].CreatorCard)
		assert.Nil(t, rounds[0].OpponentCard)

		user, err := tx.GetUser(ctx, a.ID)
		require.NoError(t, err)
		require.NotNil(t, user.CurrentLobbyID)
		assert.Equal(t, l.ID, *user.CurrentLobbyID)
		return nil
	}))
}

func TestNotFoundMapping(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.GetLobby(ctx, -1)
		return err
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestInsertLobbyEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lobbyID := time.Now().UnixNano()
	evs := []models.LobbyEvent{
		{Type: models.EventLobbyCreated, LobbyID: lobbyID, UserID: 1, Status: "opened", Timestamp: time.Now().UnixMilli()},
		{Type: models.EventRoundFinished, LobbyID: lobbyID, RoundID: 3, Payload: map[string]interface{}{"draw": true}, Timestamp: time.Now().UnixMilli()},
	}
	require.NoError(t, s.InsertLobbyEvents(ctx, evs))

	n, err := s.CountLobbyEvents(ctx, lobbyID)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
