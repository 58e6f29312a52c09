package ficsgame

import (
	"testing"

	nchess "github.com/corentings/chess/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGameStateFEN(t *testing.T) {
	gs, err := ParseStyle12(sampleStyle12)
	require.NoError(t, err)
	assert.Equal(t, "r1bqk2r/pppp1ppp/5n2/2b1P3/8/2N5/PPP1PPPP/R1BQKB1R w KQkq - 1 6", gs.FEN())

	gs.SideToMove = Black
	gs.PawnPush = 4
	gs.Castling[White] = [2]bool{false, true}
	gs.Castling[Black] = [2]bool{}
	assert.Equal(t, "r1bqk2r/pppp1ppp/5n2/2b1P3/8/2N5/PPP1PPPP/R1BQKB1R b Q e3 1 6", gs.FEN())
}

func TestGameStatePosition(t *testing.T) {
	gs, err := ParseStyle12(sampleStyle12)
	require.NoError(t, err)

	pos, err := gs.Position()
	require.NoError(t, err)
	assert.Equal(t, nchess.White, pos.Turn())
	assert.Equal(t, nchess.BlackKing, pos.Board().Piece(nchess.NewSquare(nchess.FileE, nchess.Rank8)))
	assert.Equal(t, nchess.WhiteKnight, pos.Board().Piece(nchess.NewSquare(nchess.FileC, nchess.Rank3)))
}

func TestGameStateChessBoard(t *testing.T) {
	gs, err := ParseStyle12(sampleStyle12)
	require.NoError(t, err)

	b := gs.ChessBoard()
	assert.Equal(t, nchess.BlackRook, b.Piece(nchess.NewSquare(nchess.FileA, nchess.Rank8)))
	assert.Equal(t, nchess.WhitePawn, b.Piece(nchess.NewSquare(nchess.FileE, nchess.Rank5)))
	assert.Equal(t, nchess.BlackBishop, b.Piece(nchess.NewSquare(nchess.FileC, nchess.Rank5)))
	assert.Equal(t, nchess.NoPiece, b.Piece(nchess.NewSquare(nchess.FileD, nchess.Rank2)))
	assert.Len(t, b.SquareMap(), 29)

	var empty GameState
	empty.PawnPush = -1
	assert.Equal(t, "8/8/8/8/8/8/8/8 w - - 0 1", empty.FEN())
}
