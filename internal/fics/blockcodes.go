package fics

import "fmt"

// Block mode delimiters.
const (
	BlockStart     byte = 21
	BlockSeparator byte = 22
	BlockEnd       byte = 23
	BlockPoseStart byte = 24
	BlockPoseEnd   byte = 25
)

// Command codes echoed in the second field of a block reply.
const (
	BlockGameMove     = 1
	BlockAllObservers = 14
	BlockDate         = 32
	BlockFinger       = 37
	BlockGames        = 43
	BlockHistory      = 51
	BlockISet         = 56
	BlockIVariables   = 58
	BlockMoves        = 77
	BlockObserve      = 80
	BlockPrimary      = 91
	BlockQuit         = 97
	BlockRefresh      = 101
	BlockSet          = 109
	BlockStyle        = 128
	BlockTell         = 132
	BlockUnobserve    = 138
	BlockVariables    = 143
	BlockWho          = 146
	BlockSought       = 157
)

// Error codes replace the command code when the server rejects a command.
const (
	BlockErrBadCommand = 512
	BlockErrBadParams  = 513
	BlockErrAmbiguous  = 514
	BlockErrRights     = 515
	BlockErrObsolete   = 516
	BlockErrRemoved    = 517
	BlockErrNotPlaying = 518
	BlockErrNoSequence = 519
	BlockErrLength     = 520
)

var blockCodeNames = map[int]string{
	BlockGameMove:      "game_move",
	BlockAllObservers:  "allobservers",
	BlockDate:          "date",
	BlockFinger:        "finger",
	BlockGames:         "games",
	BlockHistory:       "history",
	BlockISet:          "iset",
	BlockIVariables:    "ivariables",
	BlockMoves:         "moves",
	BlockObserve:       "observe",
	BlockPrimary:       "primary",
	BlockQuit:          "quit",
	BlockRefresh:       "refresh",
	BlockSet:           "set",
	BlockStyle:         "style",
	BlockTell:          "tell",
	BlockUnobserve:     "unobserve",
	BlockVariables:     "variables",
	BlockWho:           "who",
	BlockSought:        "sought",
	BlockErrBadCommand: "bad command",
	BlockErrBadParams:  "bad parameters",
	BlockErrAmbiguous:  "ambiguous",
	BlockErrRights:     "insufficient rights",
	BlockErrObsolete:   "obsolete",
	BlockErrRemoved:    "removed",
	BlockErrNotPlaying: "not playing",
	BlockErrNoSequence: "no sequence",
	BlockErrLength:     "too long",
}

// BlockCodeName describes a block reply code.
func BlockCodeName(code int) string {
	if n, ok := blockCodeNames[code]; ok {
		return n
	}
	return fmt.Sprintf("code %d", code)
}

// IsErrorCode reports whether code marks a rejected command.
func IsErrorCode(code int) bool {
	return code >= BlockErrBadCommand && code <= BlockErrLength
}
