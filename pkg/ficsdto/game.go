package ficsdto

type GameSummary struct {
	ID        int    `json:"id"`
	White     string `json:"white"`
	Black     string `json:"black"`
	Ratings   [2]int `json:"ratings"`
	Type      string `json:"type"`
	Private   bool   `json:"private"`
	Rated     bool   `json:"rated"`
	Initial   int    `json:"initial_min"`
	Increment int    `json:"increment_sec"`
}

type Castling struct {
	WhiteShort bool `json:"white_short"`
	WhiteLong  bool `json:"white_long"`
	BlackShort bool `json:"black_short"`
	BlackLong  bool `json:"black_long"`
}

type Clock struct {
	White int `json:"white"`
	Black int `json:"black"`
}

type GameState struct {
	ID              int       `json:"id"`
	FEN             string    `json:"fen"`
	Ranks           [8]string `json:"ranks"`
	SideToMove      string    `json:"side_to_move"`
	EnPassantFile   int       `json:"en_passant_file"`
	Castling        Castling  `json:"castling"`
	ReversibleMoves int       `json:"reversible_moves"`
	White           string    `json:"white"`
	Black           string    `json:"black"`
	Relation        string    `json:"relation"`
	InitialTime     int       `json:"initial_time"`
	Increment       int       `json:"increment"`
	Material        Clock     `json:"material"`
	Remaining       Clock     `json:"remaining"`
	MoveNumber      int       `json:"move_number"`
	LastMove        string    `json:"last_move"`
	LastMoveVerbose string    `json:"last_move_verbose"`
	LastMoveTime    string    `json:"last_move_time"`
	Flipped         bool      `json:"flipped"`
}
