// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rockps/rockps/internal/match"
	"github.com/rockps/rockps/internal/rules"
)

type createLobbyRequest struct {
	Name   string `json:"name"`
	Rounds int    `json:"rounds"`
	// Ruleset may be sent as "standard"/"extended" or as its numeric id.
	Ruleset json.RawMessage `json:"ruleset"`
}

func parseRuleset(raw json.RawMessage) (rules.Ruleset, error) {
	rs, err := rules.ParseRuleset(strings.Trim(string(raw), `"`))
	if err != nil {
		return 0, match.ErrInvalidRuleset
	}
	return rs, nil
}

// CreateLobbyHandler opens a lobby owned by the caller.
func CreateLobbyHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		var req createLobbyRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, s.Logger, err)
			return
		}
		ruleset, err := parseRuleset(req.Ruleset)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}

		id, err := s.Match.CreateLobby(r.Context(), userID, req.Name, req.Rounds, ruleset)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
	}
}

// ListLobbiesHandler pages through lobbies waiting for an opponent.
func ListLobbiesHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, _ int64) {
		offset, err := queryInt(r, "offset")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		limit, err := queryInt(r, "limit")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}

		page, err := s.Match.ListOpenLobbies(r.Context(), offset, limit)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func GetLobbyHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, _ int64) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		v, err := s.Match.GetLobby(r.Context(), id)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func JoinLobbyHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		v, err := s.Match.JoinLobby(r.Context(), id, userID)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

func LeaveLobbyHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		v, err := s.Match.LeaveLobby(r.Context(), id, userID)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}

// ListRoundsHandler returns the schedule with the opponent's unrevealed cards hidden.
func ListRoundsHandler(s *APIServer) userHandler {
	return func(w http.ResponseWriter, r *http.Request, userID int64) {
		id, err := pathID(r, "id")
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		rounds, err := s.Match.ListRounds(r.Context(), id, userID)
		if err != nil {
			writeError(w, s.Logger, err)
			return
		}
		writeJSON(w, http.StatusOK, rounds)
	}
}
