package handlers

import (
	"net/http"
	"time"

	"github.com/rockps/rockps/internal/models"
	"github.com/rockps/rockps/internal/rating"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID             int64         `json:"id"`
	Username       string        `json:"username"`
	CurrentLobbyID *int64        `json:"current_lobby_id"`
	Rating         rating.Rating `json:"rating"`
	CreatedAt      time.Time     `json:"created_at"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:             u.ID,
		Username:       u.Username,
		CurrentLobbyID: u.CurrentLobbyID,
		Rating:         u.Rating,
		CreatedAt:      u.CreatedAt,
	}
}

type loginResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

// CreateUserHandler registers a user.
//
// Request payload:
//
//	{
//	  "username": "alice",
//	  "password": "password"
//	}
func CreateUserHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		u, err := s.Accounts.Register(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, newUserResponse(u))
	}
}

// LoginHandler returns a token for valid credentials. The token is also sent via the Cookie header.
func LoginHandler(s *APIServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req credentialsRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		token, u, err := s.Accounts.Login(r.Context(), req.Username, req.Password)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     AuthCookie,
			Value:    token,
			HttpOnly: true,
			Path:     "/",
			MaxAge:   s.Accounts.TokenTTL(),
		})
		writeJSON(w, http.StatusOK, loginResponse{
			Token: token,
			User:  newUserResponse(u),
		})
	}
}

func MeHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		u, err := s.Accounts.Get(r.Context(), userID)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, newUserResponse(u))
	}
}
