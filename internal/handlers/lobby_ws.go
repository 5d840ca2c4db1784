// internal/handlers/lobby_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rockps/rockps/internal/match"
	"github.com/rockps/rockps/internal/middleware"
	"github.com/rockps/rockps/internal/models"
	"github.com/sirupsen/logrus"
)

// writeTimeout bounds a single frame write to a slow client.
const writeTimeout = 5 * time.Second

// stateMessage is the first frame a listener receives.
type stateMessage struct {
	Type  string          `json:"type"`
	Lobby match.LobbyView `json:"lobby"`
}

// LobbyWSHandler streams a lobby's events to one of its participants until the
// match ends or the client goes away.
func LobbyWSHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		lobbyID, err := pathID(r, "id")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}

		// the stream outlives the server's write timeout
		_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"lobby"},
			OriginPatterns: []string{"*"},
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "lobby" {
			c.Close(BadSubprotocolError, "client must speak the lobby subprotocol")
			return
		}

		ok, err := s.Match.IsParticipant(r.Context(), lobbyID, userID)
		switch {
		case errors.Is(err, match.ErrLobbyNotFound):
			c.Close(InvalidLobbyIDError, "lobby does not exist")
			return
		case err != nil:
			c.Close(websocket.StatusInternalError, "lobby lookup failed")
			return
		case !ok:
			c.Close(NotParticipantError, "user is not in this lobby")
			return
		}

		middleware.LogWebSocketConnect(s.Logger, r.RemoteAddr, r.URL.Path)

		// reads are only drained for control frames; ctx ends when the client disconnects
		ctx := c.CloseRead(r.Context())
		evs, cancel, err := s.Events.Subscribe(ctx, lobbyID)
		if err != nil {
			middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
			c.Close(websocket.StatusInternalError, "subscribe failed")
			return
		}
		defer cancel()

		// snapshot after subscribing so no transition falls between the two
		view, err := s.Match.GetLobby(ctx, lobbyID)
		if err == nil {
			err = writeFrame(ctx, c, stateMessage{Type: "lobby_state", Lobby: *view})
		}
		if err != nil {
			middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
			return
		}

		err = pumpEvents(ctx, c, evs, s.Logger.WithFields(logrus.Fields{"lobby_id": lobbyID, "user_id": userID}))
		middleware.LogWebSocketDisconnect(s.Logger, r.RemoteAddr, r.URL.Path, err)
		if err == nil {
			c.Close(websocket.StatusNormalClosure, "lobby closed")
		}
	}
}

// pumpEvents forwards events until a terminal one was sent (nil) or the connection fails.
func pumpEvents(ctx context.Context, c *websocket.Conn, evs <-chan models.LobbyEvent, log *logrus.Entry) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-evs:
			if !ok {
				return errors.New("event stream closed")
			}
			if err := writeFrame(ctx, c, ev); err != nil {
				return err
			}
			log.WithField("type", ev.Type).Debug("event sent")
			if ev.Type == models.EventMatchFinished || ev.Type == models.EventLobbyCanceled {
				return nil
			}
		}
	}
}

func writeFrame(ctx context.Context, c *websocket.Conn, v interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, c, v)
}
