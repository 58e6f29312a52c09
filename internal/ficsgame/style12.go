package ficsgame

import (
	"strconv"
	"strings"
)

// Style12Tag prefixes every style-12 line.
const Style12Tag = "<12> "

const (
	rankOffset   = len(Style12Tag)
	rankStride   = 9
	sideOffset   = rankOffset + 8*rankStride
	style12MinLn = sideOffset + 1

	// pawn push, 4 castling flags, reversible, id, 2 names, relation,
	// initial, increment, 2 material, 2 clocks, move number,
	// verbose move, move time, pretty move, orientation
	style12Fields = 21
)

// IsStyle12 reports whether line carries a style-12 board.
func IsStyle12(line string) bool { return strings.HasPrefix(line, Style12Tag) }

// ParseStyle12 decodes a "<12> " game-state line. Trailing fields beyond the
// orientation flag are ignored.
func ParseStyle12(line string) (GameState, error) {
	line = strings.TrimRight(line, "\r\n")
	if !IsStyle12(line) {
		return GameState{}, style12Err(line, "missing %q tag", Style12Tag)
	}
	if len(line) < style12MinLn {
		return GameState{}, style12Err(line, "line too short (%d bytes)", len(line))
	}

	var gs GameState
	for r := 0; r < 8; r++ {
		off := rankOffset + r*rankStride
		if line[off+8] != ' ' {
			return GameState{}, style12Err(line, "rank %d is not 8 squares wide", r)
		}
		for f := 0; f < 8; f++ {
			gs.Board[r][f] = pieceFromLetter(line[off+f])
		}
	}

	switch line[sideOffset] {
	case 'W':
		gs.SideToMove = White
	case 'B':
		gs.SideToMove = Black
	default:
		return GameState{}, style12Err(line, "side to move %q", line[sideOffset])
	}

	tail := strings.Fields(line[sideOffset+1:])
	if len(tail) < style12Fields {
		return GameState{}, style12Err(line, "expected %d fields after the board, got %d", style12Fields, len(tail))
	}

	p := tailParser{line: line, tok: tail}
	gs.PawnPush = p.intIn("pawn push", -1, 7)
	gs.Castling[White][Short] = p.flag("white short castle")
	gs.Castling[White][Long] = p.flag("white long castle")
	gs.Castling[Black][Short] = p.flag("black short castle")
	gs.Castling[Black][Long] = p.flag("black long castle")
	gs.ReversibleMoves = p.intIn("reversible moves", 0, -1)
	gs.ID = p.intIn("game id", 1, -1)
	gs.Players[White] = p.str()
	gs.Players[Black] = p.str()
	gs.Relation = Relation(p.intIn("relation", int(RelationIsolated), int(RelationExaminer)))
	gs.InitialTime = p.intIn("initial time", 0, -1)
	gs.Increment = p.intIn("increment", 0, -1)
	gs.Material[White] = p.integer("white material")
	gs.Material[Black] = p.integer("black material")
	gs.Remaining[White] = p.integer("white clock")
	gs.Remaining[Black] = p.integer("black clock")
	gs.MoveNumber = p.intIn("move number", 0, -1)
	gs.LastMoveVerbose = p.str()
	gs.LastMoveTime = p.str()
	gs.LastMovePretty = p.str()
	gs.Flipped = p.flag("orientation")
	if p.err != nil {
		return GameState{}, p.err
	}
	return gs, nil
}

// tailParser walks the whitespace separated fields, keeping the first error.
type tailParser struct {
	line string
	tok  []string
	i    int
	err  *ParseError
}

func (p *tailParser) str() string {
	s := p.tok[p.i]
	p.i++
	return s
}

func (p *tailParser) integer(name string) int {
	s := p.str()
	if p.err != nil {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		p.err = style12Err(p.line, "%s %q is not a number", name, s)
		return 0
	}
	return n
}

// intIn parses an integer bounded by lo and hi; hi < lo means no upper bound.
func (p *tailParser) intIn(name string, lo, hi int) int {
	n := p.integer(name)
	if p.err != nil {
		return 0
	}
	if n < lo || (hi >= lo && n > hi) {
		p.err = style12Err(p.line, "%s %d out of range", name, n)
		return 0
	}
	return n
}

func (p *tailParser) flag(name string) bool {
	return p.intIn(name, 0, 1) == 1
}
