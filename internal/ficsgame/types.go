package ficsgame

import "fmt"

// GameType is the variant column of a game listing.
type GameType int

const (
	Standard GameType = iota
	NonStandard
	Untimed
	Examined
	Lightning
	Blitz
	Suicide
	Wild
	Crazyhouse
	Bughouse
	Losers
	Atomic
)

var gameTypeNames = [...]string{
	Standard:    "Standard",
	NonStandard: "Nonstandard",
	Untimed:     "Untimed",
	Examined:    "Examined",
	Lightning:   "Lightning",
	Blitz:       "Blitz",
	Suicide:     "Suicide",
	Wild:        "Wild",
	Crazyhouse:  "Crazyhouse",
	Bughouse:    "Bughouse",
	Losers:      "Losers",
	Atomic:      "Atomic",
}

func (t GameType) String() string {
	if t < 0 || int(t) >= len(gameTypeNames) {
		return fmt.Sprintf("GameType(%d)", int(t))
	}
	return gameTypeNames[t]
}

var gameTypeLetters = map[byte]GameType{
	'b': Blitz,
	'l': Lightning,
	'u': Untimed,
	'e': Examined,
	's': Standard,
	'w': Wild,
	'x': Atomic,
	'z': Crazyhouse,
	'B': Bughouse,
	'L': Losers,
	'S': Suicide,
	'n': NonStandard,
}

// GameTypeFromLetter maps a listing type letter to its GameType.
func GameTypeFromLetter(c byte) (GameType, bool) {
	t, ok := gameTypeLetters[c]
	return t, ok
}

// Side indexes per-player arrays.
type Side int

const (
	White Side = 0
	Black Side = 1
)

func (s Side) String() string {
	if s == Black {
		return "Black"
	}
	return "White"
}

// Castling distance index.
const (
	Short = 0
	Long  = 1
)

// Relation is the viewer's relation to a game as reported in style 12.
type Relation int

const (
	RelationIsolated            Relation = -3
	RelationObservingExamined   Relation = -2
	RelationPlayingOpponentMove Relation = -1
	RelationObserving           Relation = 0
	RelationPlayingMyMove       Relation = 1
	RelationExaminer            Relation = 2
)

func (r Relation) String() string {
	switch r {
	case RelationIsolated:
		return "isolated"
	case RelationObservingExamined:
		return "observing_examined"
	case RelationPlayingOpponentMove:
		return "playing_opponent_move"
	case RelationObserving:
		return "observing"
	case RelationPlayingMyMove:
		return "playing_my_move"
	case RelationExaminer:
		return "examiner"
	default:
		return fmt.Sprintf("relation(%d)", int(r))
	}
}

// UnratedRating marks a rating column that is not a number (++++, ----).
const UnratedRating = -1

// GameSummary is one row of a game listing.
type GameSummary struct {
	ID        int
	Players   [2]string
	Ratings   [2]int
	Type      GameType
	Private   bool
	Rated     bool
	Initial   int // minutes
	Increment int // seconds
}

// GameList is a listing in server order.
type GameList []GameSummary

// GameState is one style-12 snapshot.
type GameState struct {
	ID              int
	Board           Board
	SideToMove      Side
	PawnPush        int // file of a double pawn push on the last move, -1 if none
	Castling        [2][2]bool
	ReversibleMoves int
	Players         [2]string
	Relation        Relation
	InitialTime     int // seconds
	Increment       int // seconds
	Material        [2]int
	Remaining       [2]int // as sent by the server; milliseconds once "iset ms 1" is active
	MoveNumber      int
	LastMoveVerbose string
	LastMoveTime    string
	LastMovePretty  string
	Flipped         bool
}
