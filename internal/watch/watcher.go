// Package watch drains client events into the console, the snapshot cache,
// the archive and the UI uplink, and applies UI commands to the client.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/park285/cheese-fics/internal/adapter/dtoconv"
	"github.com/park285/cheese-fics/internal/fics"
	"github.com/park285/cheese-fics/internal/msgcat"
	"github.com/park285/cheese-fics/internal/uplink"
	"github.com/park285/cheese-fics/pkg/ficsdto"
	"go.uber.org/zap"
)

// ErrDisconnected is returned by Run when the FICS session goes away.
var ErrDisconnected = errors.New("watch: fics session disconnected")

const sinkTimeout = 5 * time.Second

// Controller is the part of *fics.Client the watcher drives.
type Controller interface {
	SessionID() string
	ListGames() error
	ObserveGame(id int) error
	UnobserveGame(id int) error
}

// Cache is implemented by *store.Store.
type Cache interface {
	SaveState(ctx context.Context, st *ficsdto.GameState) error
	SaveList(ctx context.Context, games []ficsdto.GameSummary) error
	MarkObserved(ctx context.Context, id int) error
	UnmarkObserved(ctx context.Context, id int) error
}

// Archive is implemented by *archive.Repository.
type Archive interface {
	SaveState(ctx context.Context, sessionID string, st *ficsdto.GameState) error
}

type Options struct {
	Client  Controller
	Catalog *msgcat.Catalog
	Out     io.Writer

	Host     string
	Username string

	// Optional sinks; nil disables.
	Cache   Cache
	Archive Archive
	Egress  uplink.Egress

	Logger *zap.Logger
	Now    func() time.Time
}

type Watcher struct {
	opts   Options
	logger *zap.Logger
}

func New(opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{opts: opts, logger: opts.Logger}
}

// Run handles events until ctx ends or the session disconnects.
func (w *Watcher) Run(ctx context.Context, events <-chan fics.Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-events:
			if err := w.HandleEvent(ctx, ev); err != nil {
				return err
			}
		}
	}
}

// HandleEvent fans one event out to the sinks. Sink failures are logged;
// only a lost session is returned as an error.
func (w *Watcher) HandleEvent(ctx context.Context, ev fics.Event) error {
	dto, ok := dtoconv.ToDTOEvent(w.opts.Client.SessionID(), ev, w.opts.Now())
	if !ok {
		return nil
	}

	sctx, cancel := context.WithTimeout(ctx, sinkTimeout)
	defer cancel()

	w.print(dto)
	switch dto.Type {
	case ficsdto.EventGameList:
		if w.opts.Cache != nil {
			w.check("cache_list", w.opts.Cache.SaveList(sctx, dto.Games))
		}
	case ficsdto.EventGameState:
		if w.opts.Cache != nil {
			w.check("cache_state", w.opts.Cache.SaveState(sctx, dto.State))
		}
		if w.opts.Archive != nil {
			w.check("archive_state", w.opts.Archive.SaveState(sctx, dto.SessionID, dto.State))
		}
	}
	if w.opts.Egress != nil {
		w.check("uplink_publish", w.opts.Egress.Publish(sctx, dto))
	}

	if dto.Type == ficsdto.EventNetwork && !*dto.Connected {
		return ErrDisconnected
	}
	return nil
}

// HandleCommand applies a UI command to the client.
func (w *Watcher) HandleCommand(ctx context.Context, cmd ficsdto.Command) error {
	w.logger.Info("watch_command", zap.String("action", cmd.Action), zap.Int("game_id", cmd.GameID))
	switch cmd.Action {
	case ficsdto.ActionListGames:
		return w.opts.Client.ListGames()
	case ficsdto.ActionObserve:
		if err := w.opts.Client.ObserveGame(cmd.GameID); err != nil {
			return err
		}
		w.line("game.observe", cmd)
		if w.opts.Cache != nil {
			w.check("cache_observed", w.opts.Cache.MarkObserved(ctx, cmd.GameID))
		}
		return nil
	case ficsdto.ActionUnobserve:
		if err := w.opts.Client.UnobserveGame(cmd.GameID); err != nil {
			return err
		}
		w.line("game.unobserve", cmd)
		if w.opts.Cache != nil {
			w.check("cache_unobserved", w.opts.Cache.UnmarkObserved(ctx, cmd.GameID))
		}
		return nil
	default:
		return fmt.Errorf("watch: unknown action %q", cmd.Action)
	}
}

func (w *Watcher) print(ev ficsdto.Event) {
	switch ev.Type {
	case ficsdto.EventNetwork:
		data := map[string]any{"Host": w.opts.Host, "Username": w.opts.Username, "SessionID": ev.SessionID}
		if *ev.Connected {
			w.line("net.up", data)
		} else {
			w.line("net.down", data)
		}
	case ficsdto.EventGameList:
		if len(ev.Games) == 0 {
			w.line("game.list.empty", nil)
			return
		}
		w.line("game.list.header", map[string]any{"Count": len(ev.Games)})
		for _, g := range ev.Games {
			w.line("game.row", g)
		}
	case ficsdto.EventGameState:
		w.line("game.state", ev.State)
	case ficsdto.EventChat:
		w.line("chat.line", ev)
	case ficsdto.EventProtocolError:
		w.line("protocol.error", ev.Error)
	}
}

func (w *Watcher) line(key string, data any) {
	if w.opts.Catalog == nil {
		return
	}
	s, err := w.opts.Catalog.Render(key, data)
	if err != nil {
		w.logger.Warn("watch_render_failed", zap.String("key", key), zap.Error(err))
		return
	}
	_, _ = fmt.Fprintln(w.opts.Out, s)
}

func (w *Watcher) check(sink string, err error) {
	if err != nil {
		w.logger.Warn("watch_sink_failed", zap.String("sink", sink), zap.Error(err))
	}
}
