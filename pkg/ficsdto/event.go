package ficsdto

import "time"

const (
	EventNetwork       = "network"
	EventGameList      = "game_list"
	EventGameState     = "game_state"
	EventChat          = "chat"
	EventProtocolError = "protocol_error"
)

// Event is the JSON form of a client event, as cached and forwarded.
type Event struct {
	Type      string        `json:"type"`
	SessionID string        `json:"session_id,omitempty"`
	At        time.Time     `json:"at"`
	Connected *bool         `json:"connected,omitempty"`
	Games     []GameSummary `json:"games,omitempty"`
	State     *GameState    `json:"state,omitempty"`
	Line      string        `json:"line,omitempty"`
	Error     *Error        `json:"error,omitempty"`
}
