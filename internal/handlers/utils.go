package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/rockps/rockps/internal/match"
	"github.com/sirupsen/logrus"
)

// AuthCookie is the cookie the login handler sets and every handler accepts.
const AuthCookie = "auth_token"

type errorBody struct {
	Code   string `json:"code"`
	Field  string `json:"field,omitempty"`
	Reason string `json:"reason,omitempty"`
}

var (
	errUnauthorized   = &match.Error{Kind: match.KindForbidden, Code: "unauthorized", Reason: "missing or invalid auth token"}
	errInvalidPayload = &match.Error{Kind: match.KindValidation, Code: "invalid_payload", Reason: "request body is not valid JSON"}
	errInvalidID      = &match.Error{Kind: match.KindValidation, Code: "invalid_id", Field: "id", Reason: "id must be a positive integer"}
)

// statusFor maps an error kind to its HTTP status.
func statusFor(err error) int {
	if errors.Is(err, errUnauthorized) {
		return http.StatusUnauthorized
	}
	if errors.Is(err, errInvalidPayload) || errors.Is(err, errInvalidID) {
		return http.StatusBadRequest
	}
	switch match.KindOf(err) {
	case match.KindValidation:
		return http.StatusUnprocessableEntity
	case match.KindConflict:
		return http.StatusConflict
	case match.KindForbidden:
		return http.StatusForbidden
	case match.KindNotFound:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// writeError renders err as {"error":{...}}. Internal details never reach the client.
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status := statusFor(err)
	body := errorBody{Code: "internal", Reason: "internal server error"}

	var me *match.Error
	if status != http.StatusInternalServerError && errors.As(err, &me) {
		body = errorBody{Code: me.Code, Field: me.Field, Reason: me.Reason}
	} else {
		logger.WithError(err).Error("request failed")
	}
	writeJSON(w, status, map[string]errorBody{"error": body})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON request. An empty body leaves v untouched.
func decodeBody(r *http.Request, v interface{}) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && err.Error() != "EOF" {
		return errInvalidPayload
	}
	return nil
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, errInvalidID
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, match.ErrInvalidPage
	}
	return n, nil
}

// requestToken prefers the Authorization header and falls back to the auth cookie.
func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return extractCookieToken(r.Header.Get("Cookie"), AuthCookie)
}

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	for _, part := range strings.Split(cookieHeader, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && name == cookieName {
			return value
		}
	}
	return ""
}
