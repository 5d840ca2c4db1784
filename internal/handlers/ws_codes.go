// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the lobby event stream.
const (
	BadSubprotocolError websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	NotParticipantError websocket.StatusCode = 3001 // Caller is not seated in the lobby.
	InvalidLobbyIDError websocket.StatusCode = 3003 // Target lobby ID does not exist or is malformed.
)
