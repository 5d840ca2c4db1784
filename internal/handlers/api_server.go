// internal/handlers/api_server.go
package handlers

import (
	"net/http"

	"github.com/rockps/rockps/internal/account"
	"github.com/rockps/rockps/internal/events"
	"github.com/rockps/rockps/internal/match"
	"github.com/rockps/rockps/internal/middleware"
	"github.com/sirupsen/logrus"
)

// APIServer bundles the services the HTTP handlers call into.
type APIServer struct {
	Match    *match.Service
	Accounts *account.Service
	Events   events.Subscriber
	Logger   *logrus.Logger
}

// userHandler is a handler that runs only for an authenticated caller.
type userHandler func(w http.ResponseWriter, r *http.Request, userID int64)

// authenticated resolves the caller from the request token and rejects anonymous requests.
func (s *APIServer) authenticated(h userHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := requestToken(r)
		if token == "" {
			writeError(w, s.Logger, errUnauthorized)
			return
		}
		userID, err := s.Accounts.Authenticate(token)
		if err != nil {
			writeError(w, s.Logger, errUnauthorized)
			return
		}
		h(w, r, userID)
	}
}

// Routes builds the full HTTP surface wrapped in request logging.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /user/create", CreateUserHandler(s))
	mux.HandleFunc("POST /user/login", LoginHandler(s))
	mux.HandleFunc("GET /user/me", s.authenticated(MeHandler(s)))

	mux.HandleFunc("POST /lobby/create", s.authenticated(CreateLobbyHandler(s)))
	mux.HandleFunc("GET /lobby/list", s.authenticated(ListLobbiesHandler(s)))
	mux.HandleFunc("GET /lobby/{id}", s.authenticated(GetLobbyHandler(s)))
	mux.HandleFunc("POST /lobby/{id}/join", s.authenticated(JoinLobbyHandler(s)))
	mux.HandleFunc("POST /lobby/{id}/leave", s.authenticated(LeaveLobbyHandler(s)))
	mux.HandleFunc("GET /lobby/{id}/rounds", s.authenticated(ListRoundsHandler(s)))
	mux.HandleFunc("GET /lobby/{id}/ws", s.authenticated(LobbyWSHandler(s)))

	mux.HandleFunc("POST /round/{id}/card", s.authenticated(SubmitCardHandler(s)))
	mux.HandleFunc("POST /game/card", s.authenticated(PlayCardHandler(s)))

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return middleware.LogMiddleware(s.Logger)(mux)
}
