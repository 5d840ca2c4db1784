package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rating"
)

// Memory is an in-process Store. Transactions are fully serialized and work on a
// copy of the data that replaces the committed state only when fn succeeds.
type Memory struct {
	mu   sync.Mutex
	data *memData
	now  func() time.Time
}

type memData struct {
	lobbies  map[int64]*models.Lobby
	rounds   map[int64]*models.Round
	users    map[int64]*models.User
	lobbySeq int64
	roundSeq int64
	userSeq  int64
}

// NewMemory initializes and returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		data: &memData{
			lobbies: make(map[int64]*models.Lobby),
			rounds:  make(map[int64]*models.Round),
			users:   make(map[int64]*models.User),
		},
		now: time.Now,
	}
}

func (m *Memory) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&memTx{data: work, now: m.now}); err != nil {
		return err
	}
	m.data = work
	return nil
}

func (d *memData) clone() *memData {
	c := &memData{
		lobbies:  make(map[int64]*models.Lobby, len(d.lobbies)),
		rounds:   make(map[int64]*models.Round, len(d.rounds)),
		users:    make(map[int64]*models.User, len(d.users)),
		lobbySeq: d.lobbySeq,
		roundSeq: d.roundSeq,
		userSeq:  d.userSeq,
	}
	for k, v := range d.lobbies {
		c.lobbies[k] = v.Clone()
	}
	for k, v := range d.rounds {
		c.rounds[k] = v.Clone()
	}
	for k, v := range d.users {
		c.users[k] = v.Clone()
	}
	return c
}

type memTx struct {
	data *memData
	now  func() time.Time
}

func (t *memTx) LockLobby(ctx context.Context, id int64) (*models.Lobby, error) {
	return t.GetLobby(ctx, id)
}

func (t *memTx) GetLobby(_ context.Context, id int64) (*models.Lobby, error) {
	l, ok := t.data.lobbies[id]
	if !ok {
		return nil, ErrNotFound
	}
	return l.Clone(), nil
}

func (t *memTx) ListLobbies(_ context.Context, status models.LobbyStatus, offset, limit int) ([]*models.Lobby, int, error) {
	var matched []*models.Lobby
	for _, l := range t.data.lobbies {
		if l.Status == status {
			matched = append(matched, l)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	if offset >= total {
		return []*models.Lobby{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page := make([]*models.Lobby, 0, end-offset)
	for _, l := range matched[offset:end] {
		page = append(page, l.Clone())
	}
	return page, total, nil
}

func (t *memTx) InsertLobby(_ context.Context, l *models.Lobby) error {
	t.data.lobbySeq++
	l.ID = t.data.lobbySeq
	if l.CreatedAt.IsZero() {
		l.CreatedAt = t.now()
	}
	t.data.lobbies[l.ID] = l.Clone()
	return nil
}

func (t *memTx) UpdateLobby(_ context.Context, l *models.Lobby) error {
	if _, ok := t.data.lobbies[l.ID]; !ok {
		return ErrNotFound
	}
	t.data.lobbies[l.ID] = l.Clone()
	return nil
}

func (t *memTx) GetRound(_ context.Context, id int64) (*models.Round, error) {
	r, ok := t.data.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (t *memTx) ListRounds(_ context.Context, lobbyID int64) ([]*models.Round, error) {
	var out []*models.Round
	for _, r := range t.data.rounds {
		if r.LobbyID == lobbyID {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertRounds(_ context.Context, rounds []*models.Round) error {
	for _, r := range rounds {
		t.data.roundSeq++
		r.ID = t.data.roundSeq
		t.data.rounds[r.ID] = r.Clone()
	}
	return nil
}

func (t *memTx) UpdateRound(_ context.Context, r *models.Round) error {
	if _, ok := t.data.rounds[r.ID]; !ok {
		return ErrNotFound
	}
	t.data.rounds[r.ID] = r.Clone()
	return nil
}

func (t *memTx) LockUser(ctx context.Context, id int64) (*models.User, error) {
	return t.GetUser(ctx, id)
}

func (t *memTx) GetUser(_ context.Context, id int64) (*models.User, error) {
	u, ok := t.data.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return u.Clone(), nil
}

func (t *memTx) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range t.data.users {
		if u.Username == username {
			return u.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) InsertUser(_ context.Context, u *models.User) error {
	for _, existing := range t.data.users {
		if existing.Username == u.Username {
			return ErrDuplicate
		}
	}
	t.data.userSeq++
	u.ID = t.data.userSeq
	if u.CreatedAt.IsZero() {
		u.CreatedAt = t.now()
	}
	if u.Rating.IsZero() {
		u.Rating = rating.Default()
	}
	t.data.users[u.ID] = u.Clone()
	return nil
}

func (t *memTx) SetUserLobby(_ context.Context, userID int64, lobbyID *int64) error {
	u, ok := t.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.CurrentLobbyID = nil
	if lobbyID != nil {
		id := *lobbyID
		u.CurrentLobbyID = &id
	}
	return nil
}

func (t *memTx) SetUserRating(_ context.Context, userID int64, r rating.Rating) error {
	u, ok := t.data.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.Rating = r
	return nil
}
