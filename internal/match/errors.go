// internal/match/errors.go
package match

import (
	"errors"
	"fmt"
)

// Kind classifies an Error for the transport layer.
type Kind int

const (
	// KindInternal covers errors that did not originate in the match core (storage, I/O).
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindForbidden
	KindNotFound
	// KindState marks a broken invariant. It indicates a bug, not a retryable condition.
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindState:
		return "state"
	}
	return "internal"
}

// Error is the error type returned by the match core.
type Error struct {
	Kind Kind
	// Code is a stable machine-readable identifier; errors.Is compares on it.
	Code string
	// Field names the offending input, if any.
	Field  string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Code
	if e.Reason != "" {
		msg = fmt.Sprintf("%s: %s", e.Code, e.Reason)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same Code, so the exported sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// with returns a copy of e carrying a specific reason and cause.
func (e *Error) with(reason string, err error) *Error {
	c := *e
	if reason != "" {
		c.Reason = reason
	}
	c.Err = err
	return &c
}

var (
	ErrInvalidCard       = &Error{Kind: KindValidation, Code: "invalid_card", Field: "card", Reason: "card is not allowed by the lobby ruleset"}
	ErrInvalidRoundCount = &Error{Kind: KindValidation, Code: "invalid_round_count", Field: "rounds", Reason: "round count must be a positive odd number"}
	ErrInvalidRuleset    = &Error{Kind: KindValidation, Code: "invalid_ruleset", Field: "ruleset", Reason: "unknown ruleset"}
	ErrInvalidName       = &Error{Kind: KindValidation, Code: "invalid_name", Field: "name", Reason: "name must be 1 to 128 characters"}
	ErrInvalidPage       = &Error{Kind: KindValidation, Code: "invalid_page", Field: "limit", Reason: "offset must be >= 0 and limit between 1 and 100"}

	ErrUserAlreadyInLobby = &Error{Kind: KindConflict, Code: "user_already_in_lobby", Reason: "user already occupies a lobby"}
	ErrAlreadyPlayed      = &Error{Kind: KindConflict, Code: "already_played", Field: "card", Reason: "user already played a card this round"}
	ErrLobbyNotJoinable   = &Error{Kind: KindConflict, Code: "lobby_not_joinable", Reason: "lobby is not open"}
	ErrRoundNotActive     = &Error{Kind: KindConflict, Code: "round_not_active", Reason: "round is not active"}

	ErrForbidden = &Error{Kind: KindForbidden, Code: "forbidden", Reason: "user is not a participant"}

	ErrLobbyNotFound = &Error{Kind: KindNotFound, Code: "lobby_not_found", Field: "lobby_id", Reason: "lobby does not exist"}
	ErrRoundNotFound = &Error{Kind: KindNotFound, Code: "round_not_found", Field: "round_id", Reason: "round does not exist"}
	ErrUserNotFound  = &Error{Kind: KindNotFound, Code: "user_not_found", Field: "user_id", Reason: "user does not exist"}
	ErrNoActiveRound = &Error{Kind: KindNotFound, Code: "no_active_round", Reason: "user has no active round"}

	ErrAlreadyScheduled = &Error{Kind: KindState, Code: "already_scheduled", Reason: "lobby rounds were already scheduled"}
	ErrInvariant        = &Error{Kind: KindState, Code: "invariant", Reason: "lobby state invariant violated"}
)

// KindOf returns the Kind of err, KindInternal for errors outside the taxonomy.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// BlameUser reports whether err was caused by the caller's input or actions.
func BlameUser(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindConflict, KindForbidden, KindNotFound:
		return true
	}
	return false
}
