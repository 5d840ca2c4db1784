// internal/match/service.go
package match

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rockps/rockps/internal/events"
	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rating"
	"github.com/rockps/rockps/internal/rules"
	"github.com/rockps/rockps/internal/store"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMaxRounds = 99
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// Service is the match core exposed to the transport layer. Every mutating call runs in
// one store transaction that starts by locking the lobby row, so transitions of a lobby
// never interleave.
type Service struct {
	store     store.Store
	publisher events.Publisher
	logger    *logrus.Logger
	maxRounds int
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithMaxRounds caps the round count accepted by CreateLobby.
func WithMaxRounds(n int) Option {
	return func(s *Service) { s.maxRounds = n }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, pub events.Publisher, logger *logrus.Logger, opts ...Option) *Service {
	if pub == nil {
		pub = events.Nop{}
	}
	s := &Service{
		store:     st,
		publisher: pub,
		logger:    logger,
		maxRounds: DefaultMaxRounds,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateLobby opens a lobby owned by creatorID and marks the creator as occupying it.
func (s *Service) CreateLobby(ctx context.Context, creatorID int64, name string, rounds int, ruleset rules.Ruleset) (int64, error) {
	l, err := NewLobby(creatorID, name, rounds, s.maxRounds, ruleset)
	if err != nil {
		return 0, err
	}

	var evs []models.LobbyEvent
	err = s.store.WithTx(ctx, func(tx store.Tx) error {
		creator, err := lockUser(ctx, tx, creatorID)
		if err != nil {
			return err
		}
		if err := CheckFree(creator); err != nil {
			return err
		}
		if err := tx.InsertLobby(ctx, l); err != nil {
			return fmt.Errorf("insert lobby: %w", err)
		}
		if err := tx.SetUserLobby(ctx, creatorID, models.ID64(l.ID)); err != nil {
			return fmt.Errorf("set creator lobby: %w", err)
		}
		evs = append(evs, s.event(models.EventLobbyCreated, l, 0, creatorID, nil))
		return nil
	})
	if err != nil {
		return 0, s.fail("create lobby", err)
	}

	s.logger.WithFields(logrus.Fields{"lobby_id": l.ID, "creator_id": creatorID, "rounds": rounds, "ruleset": ruleset}).Debug("lobby created")
	s.publish(ctx, evs)
	return l.ID, nil
}

// JoinLobby seats userID as the opponent, schedules every round and activates the first.
func (s *Service) JoinLobby(ctx context.Context, lobbyID, userID int64) (*LobbyView, error) {
	var (
		view LobbyView
		evs  []models.LobbyEvent
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := lockLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		if l.Status != models.LobbyOpened {
			return ErrLobbyNotJoinable.with(fmt.Sprintf("lobby %d is %v", l.ID, l.Status), nil)
		}
		u, err := lockUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if err := Join(l, u); err != nil {
			return err
		}

		existing, err := tx.ListRounds(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		rounds, err := BuildSchedule(l, existing)
		if err != nil {
			return err
		}
		if err := StartSchedule(rounds, userID); err != nil {
			return err
		}
		if err := tx.InsertRounds(ctx, rounds); err != nil {
			return fmt.Errorf("insert rounds: %w", err)
		}
		if err := tx.UpdateLobby(ctx, l); err != nil {
			return fmt.Errorf("update lobby: %w", err)
		}
		if err := tx.SetUserLobby(ctx, userID, models.ID64(l.ID)); err != nil {
			return fmt.Errorf("set opponent lobby: %w", err)
		}

		view = NewLobbyView(l, rounds)
		evs = append(evs,
			s.event(models.EventLobbyJoined, l, 0, userID, nil),
			s.event(models.EventRoundActivated, l, rounds[0].ID, 0, map[string]interface{}{"number": 1}),
		)
		return nil
	})
	if err != nil {
		return nil, s.fail("join lobby", err)
	}

	s.logger.WithFields(logrus.Fields{"lobby_id": lobbyID, "opponent_id": userID}).Debug("lobby joined")
	s.publish(ctx, evs)
	return &view, nil
}

// LeaveLobby abandons the lobby for both participants and cancels every unfinished round.
func (s *Service) LeaveLobby(ctx context.Context, lobbyID, userID int64) (*LobbyView, error) {
	var (
		view LobbyView
		evs  []models.LobbyEvent
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := lockLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		rounds, err := tx.ListRounds(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		changed, err := Leave(l, rounds, userID)
		if err != nil {
			return err
		}
		for _, r := range changed {
			if err := tx.UpdateRound(ctx, r); err != nil {
				return fmt.Errorf("cancel round %d: %w", r.ID, err)
			}
		}
		if err := tx.UpdateLobby(ctx, l); err != nil {
			return fmt.Errorf("update lobby: %w", err)
		}
		if err := releaseParticipants(ctx, tx, l); err != nil {
			return err
		}

		view = NewLobbyView(l, rounds)
		evs = append(evs, s.event(models.EventLobbyCanceled, l, 0, userID, map[string]interface{}{"canceled_rounds": len(changed)}))
		return nil
	})
	if err != nil {
		return nil, s.fail("leave lobby", err)
	}

	s.logger.WithFields(logrus.Fields{"lobby_id": lobbyID, "user_id": userID}).Debug("lobby canceled")
	s.publish(ctx, evs)
	return &view, nil
}

// SubmitCard plays card for userID in roundID and, if that resolves the round, advances the match.
func (s *Service) SubmitCard(ctx context.Context, roundID, userID int64, card rules.Card) (*RoundView, error) {
	var (
		view RoundView
		evs  []models.LobbyEvent
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		r, err := tx.GetRound(ctx, roundID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoundNotFound.with(fmt.Sprintf("round %d", roundID), nil)
		}
		if err != nil {
			return fmt.Errorf("get round: %w", err)
		}
		var e []models.LobbyEvent
		view, e, err = s.submitLocked(ctx, tx, r.LobbyID, roundID, userID, card)
		evs = e
		return err
	})
	if err != nil {
		return nil, s.fail("submit card", err)
	}
	s.publish(ctx, evs)
	return &view, nil
}

// PlayCurrent plays card into the active round of the lobby userID currently occupies.
func (s *Service) PlayCurrent(ctx context.Context, userID int64, card rules.Card) (*RoundView, error) {
	var (
		view RoundView
		evs  []models.LobbyEvent
	)
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		u, err := getUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		if u.CurrentLobbyID == nil {
			return ErrNoActiveRound.with(fmt.Sprintf("user %d is not in a lobby", userID), nil)
		}
		lobbyID := *u.CurrentLobbyID
		if _, err := lockLobby(ctx, tx, lobbyID); err != nil {
			return err
		}
		rounds, err := tx.ListRounds(ctx, lobbyID)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		var active *models.Round
		for _, r := range rounds {
			if r.Status == models.RoundActive {
				active = r
				break
			}
		}
		if active == nil {
			return ErrNoActiveRound.with(fmt.Sprintf("lobby %d has no active round", lobbyID), nil)
		}
		var e []models.LobbyEvent
		view, e, err = s.submitLocked(ctx, tx, lobbyID, active.ID, userID, card)
		evs = e
		return err
	})
	if err != nil {
		return nil, s.fail("play current round", err)
	}
	s.publish(ctx, evs)
	return &view, nil
}

// submitLocked does the round transition and match coordination under the lobby lock.
// Rounds are re-read after the lock is taken so no stale state is acted on.
func (s *Service) submitLocked(ctx context.Context, tx store.Tx, lobbyID, roundID, userID int64, card rules.Card) (RoundView, []models.LobbyEvent, error) {
	l, err := lockLobby(ctx, tx, lobbyID)
	if err != nil {
		return RoundView{}, nil, err
	}
	rounds, err := tx.ListRounds(ctx, l.ID)
	if err != nil {
		return RoundView{}, nil, fmt.Errorf("list rounds: %w", err)
	}
	idx := -1
	for i, r := range rounds {
		if r.ID == roundID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return RoundView{}, nil, ErrRoundNotFound.with(fmt.Sprintf("round %d", roundID), nil)
	}
	r := rounds[idx]

	if r.Status == models.RoundActive && l.Status != models.LobbyActive {
		return RoundView{}, nil, ErrInvariant.with(fmt.Sprintf("active round %d in %v lobby %d", r.ID, l.Status, l.ID), nil)
	}
	resolved, err := SubmitCard(r, userID, card)
	if err != nil {
		return RoundView{}, nil, err
	}
	if err := tx.UpdateRound(ctx, r); err != nil {
		return RoundView{}, nil, fmt.Errorf("update round: %w", err)
	}

	evs := []models.LobbyEvent{s.event(models.EventCardSubmitted, l, r.ID, userID, nil)}
	if !resolved {
		return NewRoundView(r, idx+1, userID), evs, nil
	}

	evs = append(evs, s.event(models.EventRoundFinished, l, r.ID, 0, map[string]interface{}{
		"number":        idx + 1,
		"creator_card":  *r.CreatorCard,
		"opponent_card": *r.OpponentCard,
		"winner_id":     r.WinnerID,
	}))

	out, err := OnRoundCompleted(l, rounds, r)
	if err != nil {
		return RoundView{}, nil, err
	}
	for _, c := range out.Changed {
		if err := tx.UpdateRound(ctx, c); err != nil {
			return RoundView{}, nil, fmt.Errorf("update round %d: %w", c.ID, err)
		}
	}
	if out.Activated != nil {
		evs = append(evs, s.event(models.EventRoundActivated, l, out.Activated.ID, 0, map[string]interface{}{
			"number": roundNumber(rounds, out.Activated.ID),
		}))
	}
	if out.Finished {
		if err := tx.UpdateLobby(ctx, l); err != nil {
			return RoundView{}, nil, fmt.Errorf("update lobby: %w", err)
		}
		if err := releaseParticipants(ctx, tx, l); err != nil {
			return RoundView{}, nil, err
		}
		payload := map[string]interface{}{
			"score":     out.Score,
			"winner_id": out.WinnerID,
		}
		if out.WinnerID != nil {
			ratings, err := rateMatch(ctx, tx, l, *out.WinnerID)
			if err != nil {
				return RoundView{}, nil, err
			}
			payload["ratings"] = ratings
		}
		evs = append(evs, s.event(models.EventMatchFinished, l, 0, 0, payload))
		s.logger.WithFields(logrus.Fields{
			"lobby_id":       l.ID,
			"creator_score":  out.Score.Creator,
			"opponent_score": out.Score.Opponent,
		}).Debug("match finished")
	}
	return NewRoundView(r, idx+1, userID), evs, nil
}

// GetLobby returns the lobby with its current score.
func (s *Service) GetLobby(ctx context.Context, lobbyID int64) (*LobbyView, error) {
	var view LobbyView
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := getLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		rounds, err := tx.ListRounds(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		view = NewLobbyView(l, rounds)
		return nil
	})
	if err != nil {
		return nil, s.fail("get lobby", err)
	}
	return &view, nil
}

// ListOpenLobbies pages through lobbies waiting for an opponent, oldest first.
func (s *Service) ListOpenLobbies(ctx context.Context, offset, limit int) (*Page, error) {
	if limit == 0 {
		limit = DefaultPageLimit
	}
	if offset < 0 || limit < 1 || limit > MaxPageLimit {
		return nil, ErrInvalidPage
	}

	page := Page{Offset: offset, Limit: limit, Items: []LobbyView{}}
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		lobbies, total, err := tx.ListLobbies(ctx, models.LobbyOpened, offset, limit)
		if err != nil {
			return fmt.Errorf("list lobbies: %w", err)
		}
		page.Total = total
		for _, l := range lobbies {
			page.Items = append(page.Items, NewLobbyView(l, nil))
		}
		return nil
	})
	if err != nil {
		return nil, s.fail("list lobbies", err)
	}
	return &page, nil
}

// ListRounds returns the lobby's schedule as seen by requestingUserID, who must be a participant.
func (s *Service) ListRounds(ctx context.Context, lobbyID, requestingUserID int64) ([]RoundView, error) {
	var views []RoundView
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := getLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		if !l.IsParticipant(requestingUserID) {
			return ErrForbidden.with(fmt.Sprintf("user %d is not in lobby %d", requestingUserID, l.ID), nil)
		}
		rounds, err := tx.ListRounds(ctx, l.ID)
		if err != nil {
			return fmt.Errorf("list rounds: %w", err)
		}
		views = NewRoundViews(rounds, requestingUserID)
		return nil
	})
	if err != nil {
		return nil, s.fail("list rounds", err)
	}
	return views, nil
}

// IsParticipant reports whether userID is seated in lobbyID.
func (s *Service) IsParticipant(ctx context.Context, lobbyID, userID int64) (bool, error) {
	var ok bool
	err := s.store.WithTx(ctx, func(tx store.Tx) error {
		l, err := getLobby(ctx, tx, lobbyID)
		if err != nil {
			return err
		}
		ok = l.IsParticipant(userID)
		return nil
	})
	if err != nil {
		return false, s.fail("check participant", err)
	}
	return ok, nil
}

func (s *Service) event(typ models.LobbyEventType, l *models.Lobby, roundID, userID int64, payload map[string]interface{}) models.LobbyEvent {
	return models.LobbyEvent{
		Type:      typ,
		LobbyID:   l.ID,
		RoundID:   roundID,
		UserID:    userID,
		Status:    l.Status.String(),
		Payload:   payload,
		Timestamp: s.now().UnixMilli(),
	}
}

func (s *Service) publish(ctx context.Context, evs []models.LobbyEvent) {
	for _, ev := range evs {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.WithFields(logrus.Fields{
				"lobby_id": ev.LobbyID,
				"event":    ev.Type,
				"error":    err,
			}).Warn("failed to publish lobby event")
		}
	}
}

// fail logs defects and passes err through unchanged.
func (s *Service) fail(op string, err error) error {
	switch KindOf(err) {
	case KindState:
		s.logger.WithFields(logrus.Fields{"op": op, "defect": true, "error": err}).Error("match invariant violated")
	case KindInternal:
		s.logger.WithFields(logrus.Fields{"op": op, "error": err}).Error("match operation failed")
	}
	return err
}

func lockLobby(ctx context.Context, tx store.Tx, id int64) (*models.Lobby, error) {
	l, err := tx.LockLobby(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLobbyNotFound.with(fmt.Sprintf("lobby %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lock lobby: %w", err)
	}
	return l, nil
}

func getLobby(ctx context.Context, tx store.Tx, id int64) (*models.Lobby, error) {
	l, err := tx.GetLobby(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrLobbyNotFound.with(fmt.Sprintf("lobby %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get lobby: %w", err)
	}
	return l, nil
}

func lockUser(ctx context.Context, tx store.Tx, id int64) (*models.User, error) {
	u, err := tx.LockUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound.with(fmt.Sprintf("user %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lock user: %w", err)
	}
	return u, nil
}

func getUser(ctx context.Context, tx store.Tx, id int64) (*models.User, error) {
	u, err := tx.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUserNotFound.with(fmt.Sprintf("user %d", id), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// releaseParticipants clears the occupancy of both seats once a lobby is terminal.
func releaseParticipants(ctx context.Context, tx store.Tx, l *models.Lobby) error {
	for _, id := range l.Participants() {
		if err := tx.SetUserLobby(ctx, id, nil); err != nil {
			return fmt.Errorf("release user %d: %w", id, err)
		}
	}
	return nil
}

// rateMatch applies a Glicko-2 update to both seats of a decided match and returns
// the new rating values keyed by user id.
func rateMatch(ctx context.Context, tx store.Tx, l *models.Lobby, winnerID int64) (map[int64]float64, error) {
	if l.OpponentID == nil {
		return nil, ErrInvariant.with(fmt.Sprintf("finished lobby %d has no opponent", l.ID), nil)
	}
	loserID := l.CreatorID
	if winnerID == l.CreatorID {
		loserID = *l.OpponentID
	}

	// lock in id order so two finishing lobbies never wait on each other
	first, second := winnerID, loserID
	if first > second {
		first, second = second, first
	}
	users := make(map[int64]*models.User, 2)
	for _, id := range []int64{first, second} {
		u, err := lockUser(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		users[id] = u
	}

	w, lo := rating.Update1v1(users[winnerID].Rating, users[loserID].Rating)
	if err := tx.SetUserRating(ctx, winnerID, w); err != nil {
		return nil, fmt.Errorf("rate winner %d: %w", winnerID, err)
	}
	if err := tx.SetUserRating(ctx, loserID, lo); err != nil {
		return nil, fmt.Errorf("rate loser %d: %w", loserID, err)
	}
	return map[int64]float64{winnerID: w.Value, loserID: lo.Value}, nil
}

func roundNumber(rounds []*models.Round, id int64) int {
	for i, r := range rounds {
		if r.ID == id {
			return i + 1
		}
	}
	return 0
}
