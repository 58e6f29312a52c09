package dtoconv

import (
	"time"

	"github.com/park285/cheese-fics/internal/fics"
	"github.com/park285/cheese-fics/internal/ficsgame"
	"github.com/park285/cheese-fics/pkg/ficsdto"
)

// ToDTOEvent converts a client event. ok is false for unknown event types.
func ToDTOEvent(sessionID string, ev fics.Event, at time.Time) (out ficsdto.Event, ok bool) {
	out = ficsdto.Event{SessionID: sessionID, At: at.UTC()}
	switch e := ev.(type) {
	case fics.NetworkEvent:
		connected := e.Connected
		out.Type = ficsdto.EventNetwork
		out.Connected = &connected
	case fics.GameListEvent:
		out.Type = ficsdto.EventGameList
		out.Games = ToDTOGameList(e.Games)
	case fics.GameStateEvent:
		out.Type = ficsdto.EventGameState
		out.State = ToDTOGameState(&e.State)
	case fics.ChatEvent:
		out.Type = ficsdto.EventChat
		out.Line = e.Line
	case fics.ProtocolErrorEvent:
		out.Type = ficsdto.EventProtocolError
		out.Error = ToDTOError(e.Code, e.Err)
	default:
		return ficsdto.Event{}, false
	}
	return out, true
}

func ToDTOGameList(games ficsgame.GameList) []ficsdto.GameSummary {
	if games == nil {
		return nil
	}
	out := make([]ficsdto.GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, ToDTOGameSummary(g))
	}
	return out
}

func ToDTOGameSummary(g ficsgame.GameSummary) ficsdto.GameSummary {
	return ficsdto.GameSummary{
		ID:        g.ID,
		White:     g.Players[ficsgame.White],
		Black:     g.Players[ficsgame.Black],
		Ratings:   g.Ratings,
		Type:      g.Type.String(),
		Private:   g.Private,
		Rated:     g.Rated,
		Initial:   g.Initial,
		Increment: g.Increment,
	}
}

func ToDTOGameState(s *ficsgame.GameState) *ficsdto.GameState {
	if s == nil {
		return nil
	}
	return &ficsdto.GameState{
		ID:              s.ID,
		FEN:             s.FEN(),
		Ranks:           toDTORanks(s.Board),
		SideToMove:      s.SideToMove.String(),
		EnPassantFile:   s.PawnPush,
		Castling:        toDTOCastling(s.Castling),
		ReversibleMoves: s.ReversibleMoves,
		White:           s.Players[ficsgame.White],
		Black:           s.Players[ficsgame.Black],
		Relation:        s.Relation.String(),
		InitialTime:     s.InitialTime,
		Increment:       s.Increment,
		Material:        ficsdto.Clock{White: s.Material[ficsgame.White], Black: s.Material[ficsgame.Black]},
		Remaining:       ficsdto.Clock{White: s.Remaining[ficsgame.White], Black: s.Remaining[ficsgame.Black]},
		MoveNumber:      s.MoveNumber,
		LastMove:        s.LastMovePretty,
		LastMoveVerbose: s.LastMoveVerbose,
		LastMoveTime:    s.LastMoveTime,
		Flipped:         s.Flipped,
	}
}

// ToDTOError marks transport-level failures as retryable.
func ToDTOError(code fics.ErrorCode, err error) *ficsdto.Error {
	out := &ficsdto.Error{Code: code.String()}
	if err != nil {
		out.Message = err.Error()
	}
	switch code {
	case fics.CodeTransport, fics.CodeLoginTimeout:
		out.Retryable = true
	}
	return out
}

func toDTORanks(b ficsgame.Board) [8]string {
	var out [8]string
	for i := range b {
		var rank [8]byte
		for f, p := range b.Row(i) {
			rank[f] = p.Letter()
		}
		out[i] = string(rank[:])
	}
	return out
}

func toDTOCastling(c [2][2]bool) ficsdto.Castling {
	return ficsdto.Castling{
		WhiteShort: c[ficsgame.White][ficsgame.Short],
		WhiteLong:  c[ficsgame.White][ficsgame.Long],
		BlackShort: c[ficsgame.Black][ficsgame.Short],
		BlackLong:  c[ficsgame.Black][ficsgame.Long],
	}
}
