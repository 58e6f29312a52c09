package dtoconv

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/park285/cheese-fics/internal/fics"
	"github.com/park285/cheese-fics/internal/ficsgame"
	"github.com/park285/cheese-fics/pkg/ficsdto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const style12 = "<12> r-bqk--r pppp-ppp -----n-- --b-P--- -------- --N----- PPP-PPPP R-BQKB-R W -1 1 1 1 1 1 8 GuestLYKS GuestGJWZ 0 5 5 36 35 209 289 6 B/f8-c5 (0:13) Bc5 0 1 0"

func TestToDTOGameState(t *testing.T) {
	gs, err := ficsgame.ParseStyle12(style12)
	require.NoError(t, err)

	dto := ToDTOGameState(&gs)
	require.NotNil(t, dto)
	assert.Equal(t, 8, dto.ID)
	assert.Equal(t, "r1bqk2r/pppp1ppp/5n2/2b1P3/8/2N5/PPP1PPPP/R1BQKB1R w KQkq - 1 6", dto.FEN)
	assert.Equal(t, "r-bqk--r", dto.Ranks[0])
	assert.Equal(t, "R-BQKB-R", dto.Ranks[7])
	assert.Equal(t, "White", dto.SideToMove)
	assert.Equal(t, -1, dto.EnPassantFile)
	assert.Equal(t, ficsdto.Castling{WhiteShort: true, WhiteLong: true, BlackShort: true, BlackLong: true}, dto.Castling)
	assert.Equal(t, "GuestLYKS", dto.White)
	assert.Equal(t, "GuestGJWZ", dto.Black)
	assert.Equal(t, "observing", dto.Relation)
	assert.Equal(t, ficsdto.Clock{White: 36, Black: 35}, dto.Material)
	assert.Equal(t, ficsdto.Clock{White: 209, Black: 289}, dto.Remaining)
	assert.Equal(t, "Bc5", dto.LastMove)
	assert.Equal(t, "B/f8-c5", dto.LastMoveVerbose)
	assert.False(t, dto.Flipped)

	assert.Nil(t, ToDTOGameState(nil))
}

func TestToDTOEvent(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.FixedZone("KST", 9*3600))
	list := ficsgame.GameList{{
		ID: 28, Players: [2]string{"TryMe", "Jack"}, Ratings: [2]int{-1, 1737},
		Type: ficsgame.Standard, Initial: 30, Increment: 20,
	}}

	cases := []struct {
		name  string
		ev    fics.Event
		check func(t *testing.T, out ficsdto.Event)
	}{
		{"network", fics.NetworkEvent{Connected: true}, func(t *testing.T, out ficsdto.Event) {
			assert.Equal(t, ficsdto.EventNetwork, out.Type)
			require.NotNil(t, out.Connected)
			assert.True(t, *out.Connected)
		}},
		{"games", fics.GameListEvent{Games: list}, func(t *testing.T, out ficsdto.Event) {
			assert.Equal(t, ficsdto.EventGameList, out.Type)
			require.Len(t, out.Games, 1)
			assert.Equal(t, ficsdto.GameSummary{
				ID: 28, White: "TryMe", Black: "Jack", Ratings: [2]int{-1, 1737},
				Type: "Standard", Initial: 30, Increment: 20,
			}, out.Games[0])
		}},
		{"chat", fics.ChatEvent{Line: "Jack(C): hi"}, func(t *testing.T, out ficsdto.Event) {
			assert.Equal(t, ficsdto.EventChat, out.Type)
			assert.Equal(t, "Jack(C): hi", out.Line)
		}},
		{"error", fics.ProtocolErrorEvent{Code: fics.CodeTransport, Err: errors.New("reset")}, func(t *testing.T, out ficsdto.Event) {
			assert.Equal(t, ficsdto.EventProtocolError, out.Type)
			require.NotNil(t, out.Error)
			assert.Equal(t, fics.CodeTransport.String(), out.Error.Code)
			assert.Equal(t, "reset", out.Error.Message)
			assert.True(t, out.Error.Retryable)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, ok := ToDTOEvent("sess-1", tc.ev, at)
			require.True(t, ok)
			assert.Equal(t, "sess-1", out.SessionID)
			assert.Equal(t, at.UTC(), out.At)
			tc.check(t, out)
		})
	}

	_, ok := ToDTOEvent("sess-1", nil, at)
	assert.False(t, ok)
}

func TestEventJSONOmitsUnsetPayloads(t *testing.T) {
	out, ok := ToDTOEvent("", fics.ChatEvent{Line: "hello"}, time.Unix(0, 0))
	require.True(t, ok)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.Equal(t, "chat", fields["type"])
	assert.NotContains(t, fields, "state")
	assert.NotContains(t, fields, "games")
	assert.NotContains(t, fields, "session_id")
}

func TestToDTOErrorRejectedIsFinal(t *testing.T) {
	e := ToDTOError(fics.CodeCommandRejected, &fics.CommandError{ID: 10, Code: fics.BlockErrBadCommand, Command: "bogus"})
	assert.False(t, e.Retryable)
	assert.NotEmpty(t, e.Message)
}
