package watch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/park285/cheese-fics/internal/fics"
	"github.com/park285/cheese-fics/internal/ficsgame"
	"github.com/park285/cheese-fics/internal/msgcat"
	"github.com/park285/cheese-fics/internal/store"
	"github.com/park285/cheese-fics/pkg/ficsdto"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const style12 = "<12> r-bqk--r pppp-ppp -----n-- --b-P--- -------- --N----- PPP-PPPP R-BQKB-R W -1 1 1 1 1 1 8 GuestLYKS GuestGJWZ 0 5 5 36 35 209000 289000 6 B/f8-c5 (0:13) Bc5 0 1 0"

type fakeClient struct {
	calls      []string
	observeErr error
}

func (f *fakeClient) SessionID() string { return "sess-1" }

func (f *fakeClient) ListGames() error {
	f.calls = append(f.calls, "games")
	return nil
}

func (f *fakeClient) ObserveGame(id int) error {
	f.calls = append(f.calls, "observe")
	return f.observeErr
}

func (f *fakeClient) UnobserveGame(id int) error {
	f.calls = append(f.calls, "unobserve")
	return nil
}

type fakeArchive struct{ saved []*ficsdto.GameState }

func (a *fakeArchive) SaveState(_ context.Context, sid string, st *ficsdto.GameState) error {
	if sid != "sess-1" {
		return errors.New("unexpected session")
	}
	a.saved = append(a.saved, st)
	return nil
}

type fakeEgress struct {
	events []ficsdto.Event
	err    error
}

func (e *fakeEgress) Publish(_ context.Context, ev ficsdto.Event) error {
	e.events = append(e.events, ev)
	return e.err
}

type fixture struct {
	w       *Watcher
	out     *bytes.Buffer
	client  *fakeClient
	cache   *store.Store
	archive *fakeArchive
	egress  *fakeEgress
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cat, err := msgcat.New("")
	require.NoError(t, err)

	f := &fixture{
		out:     &bytes.Buffer{},
		client:  &fakeClient{},
		cache:   store.NewStore(rdb),
		archive: &fakeArchive{},
		egress:  &fakeEgress{},
	}
	f.w = New(Options{
		Client: f.client, Catalog: cat, Out: f.out,
		Host: "freechess.org", Username: "guest",
		Cache: f.cache, Archive: f.archive, Egress: f.egress,
		Now: func() time.Time { return time.Unix(1700000000, 0) },
	})
	return f
}

func TestGameStateFansOut(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gs, err := ficsgame.ParseStyle12(style12)
	require.NoError(t, err)

	require.NoError(t, f.w.HandleEvent(ctx, fics.GameStateEvent{State: gs}))

	require.Len(t, f.archive.saved, 1)
	assert.Equal(t, 8, f.archive.saved[0].ID)
	cached, err := f.cache.LoadState(ctx, 8)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "Bc5", cached.LastMove)
	require.Len(t, f.egress.events, 1)
	assert.Equal(t, ficsdto.EventGameState, f.egress.events[0].Type)
	assert.Contains(t, f.out.String(), "GuestLYKS 3:29 vs GuestGJWZ 4:49")
}

func TestGameListIsCachedAndPrinted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	list := ficsgame.GameList{{ID: 28, Players: [2]string{"TryMe", "Jack"}, Ratings: [2]int{-1, 1737}, Initial: 30, Increment: 20}}

	require.NoError(t, f.w.HandleEvent(ctx, fics.GameListEvent{Games: list}))
	games, err := f.cache.LoadList(ctx)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, "TryMe", games[0].White)

	lines := strings.Split(strings.TrimSpace(f.out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 games in progress", lines[0])

	f.out.Reset()
	require.NoError(t, f.w.HandleEvent(ctx, fics.GameListEvent{}))
	assert.Equal(t, "no games in progress\n", f.out.String())
}

func TestSinkFailuresDoNotStopEvents(t *testing.T) {
	f := newFixture(t)
	f.egress.err = errors.New("uplink down")

	err := f.w.HandleEvent(context.Background(), fics.ChatEvent{Line: "Jack(C): hello"})
	require.NoError(t, err)
	assert.Equal(t, "Jack(C): hello\n", f.out.String())
}

func TestRunStopsOnDisconnect(t *testing.T) {
	f := newFixture(t)
	events := make(chan fics.Event, 3)
	events <- fics.NetworkEvent{Connected: true}
	events <- fics.ProtocolErrorEvent{Code: fics.CodeMalformedBlock, Err: errors.New("bad")}
	events <- fics.NetworkEvent{Connected: false}

	err := f.w.Run(context.Background(), events)
	assert.ErrorIs(t, err, ErrDisconnected)
	out := f.out.String()
	assert.Contains(t, out, "connected to freechess.org as guest (session sess-1)")
	assert.Contains(t, out, "protocol error [malformed_block]: bad")
	assert.Contains(t, out, "connection to freechess.org closed")
	assert.Len(t, f.egress.events, 3)
}

func TestRunStopsOnContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, f.w.Run(ctx, make(chan fics.Event)), context.Canceled)
}

func TestHandleCommand(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.w.HandleCommand(ctx, ficsdto.Command{Action: ficsdto.ActionListGames}))
	require.NoError(t, f.w.HandleCommand(ctx, ficsdto.Command{Action: ficsdto.ActionObserve, GameID: 8}))
	ids, err := f.cache.Observed(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{8}, ids)

	require.NoError(t, f.w.HandleCommand(ctx, ficsdto.Command{Action: ficsdto.ActionUnobserve, GameID: 8}))
	ids, _ = f.cache.Observed(ctx)
	assert.Empty(t, ids)
	assert.Equal(t, []string{"games", "observe", "unobserve"}, f.client.calls)
	assert.Contains(t, f.out.String(), "observing game 8")

	assert.Error(t, f.w.HandleCommand(ctx, ficsdto.Command{Action: "resign"}))

	f.client.observeErr = fics.ErrNotReady
	assert.ErrorIs(t, f.w.HandleCommand(ctx, ficsdto.Command{Action: ficsdto.ActionObserve, GameID: 9}), fics.ErrNotReady)
	ids, _ = f.cache.Observed(ctx)
	assert.Empty(t, ids)
}
