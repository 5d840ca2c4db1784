// internal/rules/rules.go
package rules

import (
	"errors"
	"fmt"
)

// Card is a playable hand sign. Values match the stored card ids.
type Card int

const (
	Rock     Card = 1
	Paper    Card = 2
	Scissors Card = 3
	Lizard   Card = 4
	Spock    Card = 5
)

var cardNames = map[Card]string{
	Rock:     "rock",
	Paper:    "paper",
	Scissors: "scissors",
	Lizard:   "lizard",
	Spock:    "spock",
}

func (c Card) String() string {
	if n, ok := cardNames[c]; ok {
		return n
	}
	return fmt.Sprintf("card(%d)", int(c))
}

// Ruleset selects the card set a lobby plays with.
type Ruleset int

const (
	// Standard allows rock, paper and scissors.
	Standard Ruleset = 1
	// Extended adds lizard and spock.
	Extended Ruleset = 2
)

func (r Ruleset) String() string {
	switch r {
	case Standard:
		return "standard"
	case Extended:
		return "extended"
	}
	return fmt.Sprintf("ruleset(%d)", int(r))
}

// Valid reports whether r is a known ruleset.
func (r Ruleset) Valid() bool {
	return r == Standard || r == Extended
}

// ParseRuleset accepts "standard"/"extended" (case-sensitive) or the numeric ids "1"/"2".
func ParseRuleset(s string) (Ruleset, error) {
	switch s {
	case "standard", "1":
		return Standard, nil
	case "extended", "2":
		return Extended, nil
	}
	return 0, fmt.Errorf("unknown ruleset %q", s)
}

func (r Ruleset) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("unknown ruleset %d", int(r))
	}
	return []byte(r.String()), nil
}

func (r *Ruleset) UnmarshalText(b []byte) error {
	parsed, err := ParseRuleset(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// Cards returns the cards allowed by the ruleset in ascending order.
func (r Ruleset) Cards() []Card {
	switch r {
	case Standard:
		return []Card{Rock, Paper, Scissors}
	case Extended:
		return []Card{Rock, Paper, Scissors, Lizard, Spock}
	}
	return nil
}

// Allows reports whether c may be played under r.
func (r Ruleset) Allows(c Card) bool {
	switch r {
	case Standard:
		return c >= Rock && c <= Scissors
	case Extended:
		return c >= Rock && c <= Spock
	}
	return false
}

// Outcome is the result of one card exchange from A's point of view.
type Outcome int

const (
	Draw Outcome = iota
	AWins
	BWins
)

func (o Outcome) String() string {
	switch o {
	case AWins:
		return "a_wins"
	case BWins:
		return "b_wins"
	}
	return "draw"
}

// ErrInvalidCard is returned when a card is outside the active ruleset.
var ErrInvalidCard = errors.New("card is not allowed by ruleset")

// InvalidCardError names the offending card and ruleset.
type InvalidCardError struct {
	Card    Card
	Ruleset Ruleset
}

func (e *InvalidCardError) Error() string {
	return fmt.Sprintf("%v is not allowed by the %v ruleset", e.Card, e.Ruleset)
}

func (e *InvalidCardError) Unwrap() error { return ErrInvalidCard }

// beats[x] lists the cards x defeats.
var beats = map[Card][2]Card{
	Rock:     {Scissors, Lizard},
	Paper:    {Rock, Spock},
	Scissors: {Paper, Lizard},
	Lizard:   {Spock, Paper},
	Spock:    {Scissors, Rock},
}

// Beats reports whether a defeats b. It ignores rulesets.
func Beats(a, b Card) bool {
	for _, c := range beats[a] {
		if c == b {
			return true
		}
	}
	return false
}

// Validate returns an *InvalidCardError when c is not allowed by r.
func Validate(c Card, r Ruleset) error {
	if !r.Allows(c) {
		return &InvalidCardError{Card: c, Ruleset: r}
	}
	return nil
}

// Resolve decides a round between card a and card b.
func Resolve(a, b Card, r Ruleset) (Outcome, error) {
	if err := Validate(a, r); err != nil {
		return Draw, err
	}
	if err := Validate(b, r); err != nil {
		return Draw, err
	}
	switch {
	case a == b:
		return Draw, nil
	case Beats(a, b):
		return AWins, nil
	default:
		return BWins, nil
	}
}
