// internal/handlers/game.go
package handlers

import (
	"net/http"

	"github.com/rockps/rockps/internal/rules"
)

type cardRequest struct {
	Card int `json:"card"`
}

// SubmitCardHandler plays the caller's card into a specific round.
func SubmitCardHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		roundID, err := pathID(r, "id")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		var req cardRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		v, err := s.Match.SubmitCard(r.Context(), roundID, userID, rules.Card(req.Card))
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// PlayCardHandler plays into the active round of whatever lobby the caller occupies.
func PlayCardHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		var req cardRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		v, err := s.Match.PlayCurrent(r.Context(), userID, rules.Card(req.Card))
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
