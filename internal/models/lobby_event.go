package models

// LobbyEventType names a committed lobby transition.
type LobbyEventType string

const (
	EventLobbyCreated   LobbyEventType = "lobby_created"
	EventLobbyJoined    LobbyEventType = "lobby_joined"
	EventLobbyCanceled  LobbyEventType = "lobby_canceled"
	EventCardSubmitted  LobbyEventType = "card_submitted"
	EventRoundFinished  LobbyEventType = "round_finished"
	EventRoundActivated LobbyEventType = "round_activated"
	EventMatchFinished  LobbyEventType = "match_finished"
)

// LobbyEvent is published after a lobby transaction commits and recorded by the historian.
// card_submitted events never carry the card itself.
type LobbyEvent struct {
	Type      LobbyEventType         `json:"type"`
	LobbyID   int64                  `json:"lobby_id"`
	RoundID   int64                  `json:"round_id,omitempty"`
	UserID    int64                  `json:"user_id,omitempty"`
	Status    string                 `json:"status,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}
