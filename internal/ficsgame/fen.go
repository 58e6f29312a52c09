package ficsgame

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// FEN renders the snapshot in Forsyth-Edwards notation.
func (g GameState) FEN() string {
	var b strings.Builder
	b.WriteString(g.ChessBoard().String())

	if g.SideToMove == Black {
		b.WriteString(" b ")
	} else {
		b.WriteString(" w ")
	}

	castle := ""
	if g.Castling[White][Short] {
		castle += "K"
	}
	if g.Castling[White][Long] {
		castle += "Q"
	}
	if g.Castling[Black][Short] {
		castle += "k"
	}
	if g.Castling[Black][Long] {
		castle += "q"
	}
	if castle == "" {
		castle = "-"
	}
	b.WriteString(castle)

	b.WriteByte(' ')
	b.WriteString(g.enPassantSquare())

	move := g.MoveNumber
	if move < 1 {
		move = 1
	}
	fmt.Fprintf(&b, " %d %d", g.ReversibleMoves, move)
	return b.String()
}

// ChessBoard converts the style-12 board. Row 0 is rank 8.
func (g GameState) ChessBoard() *nchess.Board {
	squares := make(map[nchess.Square]nchess.Piece, 32)
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if p := toChessPiece(g.Board[r][f]); p != nchess.NoPiece {
				squares[nchess.NewSquare(nchess.File(f), nchess.Rank(7-r))] = p
			}
		}
	}
	return nchess.NewBoard(squares)
}

func toChessPiece(p Piece) nchess.Piece {
	if p == Empty || int(p.Kind()) >= len(kindLetters) {
		return nchess.NoPiece
	}
	color := nchess.White
	if p.IsBlack() {
		color = nchess.Black
	}
	return nchess.NewPiece(nchess.PieceTypeFromByte(kindLetters[p.Kind()]), color)
}

// enPassantSquare is the square behind a pawn that just advanced two ranks.
func (g GameState) enPassantSquare() string {
	if g.PawnPush < 0 || g.PawnPush > 7 {
		return "-"
	}
	file := string(rune('a' + g.PawnPush))
	if g.SideToMove == White {
		return file + "6"
	}
	return file + "3"
}

// Position loads the snapshot into a chess position.
func (g GameState) Position() (*nchess.Position, error) {
	opt, err := nchess.FEN(g.FEN())
	if err != nil {
		return nil, fmt.Errorf("decode fen: %w", err)
	}
	return nchess.NewGame(opt).Position(), nil
}
