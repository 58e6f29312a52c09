package ficsdto

const (
	ActionListGames = "list_games"
	ActionObserve   = "observe"
	ActionUnobserve = "unobserve"
)

// Command is a request from a UI to the watcher.
type Command struct {
	Action string `json:"action"`
	GameID int    `json:"game_id,omitempty"`
}
