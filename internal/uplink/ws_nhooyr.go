package uplink

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/park285/cheese-fics/pkg/ficsdto"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

var ErrHubNotConnected = errors.New("uplink: hub not connected")

const (
	dialTimeout      = 10 * time.Second
	pingTimeout      = 3 * time.Second
	sendTimeout      = 5 * time.Second
	maxPingFailures  = 2
	defaultPingEvery = 30 * time.Second
)

type commandEntry struct {
	id       int
	callback CommandCallback
}

type stateEntry struct {
	id       int
	callback StateCallback
}

// WebSocket keeps a link to the UI hub open, reconnecting with backoff.
type WebSocket struct {
	wsURL  string
	logger *zap.Logger

	mu         sync.RWMutex
	conn       *websocket.Conn
	connCancel context.CancelFunc
	state      State
	writeMu    sync.Mutex

	cmdCbs   []commandEntry
	stateCbs []stateEntry
	nextCbID int
	cbM      sync.RWMutex

	maxReconnectAttempts int
	pingInterval         time.Duration
	headerProvider       HeaderProvider

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	rootCtx    context.Context
	rootCancel context.CancelFunc
}

var _ Hub = (*WebSocket)(nil)

func NewWebSocket(wsURL string, maxReconnectAttempts int, logger *zap.Logger) *WebSocket {
	if logger == nil {
		logger = zap.NewNop()
	}
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &WebSocket{
		wsURL:                wsURL,
		logger:               logger,
		state:                StateDisconnected,
		maxReconnectAttempts: maxReconnectAttempts,
		pingInterval:         defaultPingEvery,
		stopCh:               make(chan struct{}),
		rootCtx:              rootCtx,
		rootCancel:           rootCancel,
	}
}

// SetHeaderProvider injects headers into every handshake.
func (ws *WebSocket) SetHeaderProvider(h HeaderProvider) { ws.headerProvider = h }

func (ws *WebSocket) SetPingInterval(d time.Duration) {
	if d > 0 {
		ws.pingInterval = d
	}
}

func (ws *WebSocket) State() State {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.state
}

// Connect dials once. On failure a background reconnect is scheduled and
// the dial error is returned.
func (ws *WebSocket) Connect(ctx context.Context) error {
	if ws.isStopping() {
		return ErrHubNotConnected
	}
	switch ws.State() {
	case StateConnected, StateConnecting, StateReconnecting:
		return nil
	}
	ws.setState(StateConnecting)

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	conn, err := ws.dial(dialCtx)
	if err != nil {
		ws.logger.Warn("uplink_hub_dial_failed", zap.String("url", ws.wsURL), zap.Error(err))
		ws.setState(StateFailed)
		ws.scheduleReconnect()
		return err
	}
	ws.attach(conn)
	return nil
}

func (ws *WebSocket) dial(ctx context.Context) (*websocket.Conn, error) {
	conn, _, err := websocket.Dial(ctx, ws.wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
		HTTPHeader:      ws.buildHeaders(),
	})
	return conn, err
}

func (ws *WebSocket) attach(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ws.rootCtx)
	ws.mu.Lock()
	ws.conn = conn
	ws.connCancel = cancel
	ws.mu.Unlock()
	ws.logger.Info("uplink_hub_connected", zap.String("url", ws.wsURL))
	ws.setState(StateConnected)

	ws.wg.Add(2)
	go ws.listen(ctx, conn)
	go ws.pingLoop(ctx, conn)
}

// detach reports whether conn was still the current connection.
func (ws *WebSocket) detach(conn *websocket.Conn, code websocket.StatusCode, reason string) bool {
	ws.mu.Lock()
	if conn == nil || ws.conn != conn {
		ws.mu.Unlock()
		return false
	}
	ws.conn = nil
	cancel := ws.connCancel
	ws.connCancel = nil
	ws.mu.Unlock()

	_ = conn.Close(code, reason)
	if cancel != nil {
		cancel()
	}
	return true
}

func (ws *WebSocket) lost(conn *websocket.Conn, reason string, err error) {
	if ws.isStopping() {
		return
	}
	if !ws.detach(conn, websocket.StatusGoingAway, reason) {
		return
	}
	ws.logger.Warn("uplink_hub_lost", zap.String("reason", reason), zap.Error(err))
	ws.setState(StateDisconnected)
	ws.scheduleReconnect()
}

func (ws *WebSocket) listen(ctx context.Context, conn *websocket.Conn) {
	defer ws.wg.Done()
	for {
		var cmd ficsdto.Command
		if err := wsjson.Read(ctx, conn, &cmd); err != nil {
			ws.lost(conn, "read failure", err)
			return
		}

		ws.cbM.RLock()
		callbacks := append([]commandEntry(nil), ws.cmdCbs...)
		ws.cbM.RUnlock()
		for _, entry := range callbacks {
			entry.callback(cmd)
		}
	}
}

func (ws *WebSocket) pingLoop(ctx context.Context, conn *websocket.Conn) {
	defer ws.wg.Done()
	t := time.NewTicker(ws.pingInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err == nil {
				failures = 0
				continue
			}
			failures++
			if failures >= maxPingFailures {
				ws.lost(conn, "ping failure", err)
				return
			}
		}
	}
}

func (ws *WebSocket) scheduleReconnect() {
	if ws.maxReconnectAttempts <= 0 || ws.isStopping() {
		return
	}
	ws.setState(StateReconnecting)

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		for attempt := 1; attempt <= ws.maxReconnectAttempts; attempt++ {
			select {
			case <-ws.stopCh:
				return
			case <-time.After(backoffDuration(attempt)):
			}

			dialCtx, cancel := context.WithTimeout(ws.rootCtx, dialTimeout)
			conn, err := ws.dial(dialCtx)
			cancel()
			if err != nil {
				ws.logger.Debug("uplink_hub_reconnect_failed", zap.Int("attempt", attempt), zap.Error(err))
				continue
			}
			if ws.isStopping() {
				_ = conn.Close(websocket.StatusNormalClosure, "close")
				return
			}
			ws.attach(conn)
			return
		}
		ws.logger.Error("uplink_hub_gave_up", zap.Int("attempts", ws.maxReconnectAttempts))
		ws.setState(StateFailed)
	}()
}

// Send writes v as one JSON message.
func (ws *WebSocket) Send(ctx context.Context, v any) error {
	ws.mu.RLock()
	conn, state := ws.conn, ws.state
	ws.mu.RUnlock()
	if conn == nil || state != StateConnected {
		return ErrHubNotConnected
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sendTimeout)
		defer cancel()
	}
	ws.writeMu.Lock()
	defer ws.writeMu.Unlock()
	return wsjson.Write(ctx, conn, v)
}

func (ws *WebSocket) OnCommand(cb CommandCallback) int {
	if cb == nil {
		return 0
	}
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.cmdCbs = append(ws.cmdCbs, commandEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveCommandCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.cmdCbs {
		if cb.id == id {
			ws.cmdCbs = append(ws.cmdCbs[:i], ws.cmdCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) OnStateChange(cb StateCallback) int {
	if cb == nil {
		return 0
	}
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	ws.nextCbID++
	ws.stateCbs = append(ws.stateCbs, stateEntry{id: ws.nextCbID, callback: cb})
	return ws.nextCbID
}

func (ws *WebSocket) RemoveStateCallback(id int) {
	ws.cbM.Lock()
	defer ws.cbM.Unlock()
	for i, cb := range ws.stateCbs {
		if cb.id == id {
			ws.stateCbs = append(ws.stateCbs[:i], ws.stateCbs[i+1:]...)
			return
		}
	}
}

func (ws *WebSocket) setState(state State) {
	ws.mu.Lock()
	ws.state = state
	ws.mu.Unlock()

	ws.cbM.RLock()
	callbacks := append([]stateEntry(nil), ws.stateCbs...)
	ws.cbM.RUnlock()
	for _, entry := range callbacks {
		entry.callback(state)
	}
}

// Close stops reconnecting, closes the link and waits for the background
// goroutines or ctx.
func (ws *WebSocket) Close(ctx context.Context) error {
	ws.stopOnce.Do(func() { close(ws.stopCh) })

	ws.mu.RLock()
	conn := ws.conn
	ws.mu.RUnlock()
	ws.detach(conn, websocket.StatusNormalClosure, "close")
	ws.rootCancel()

	done := make(chan struct{})
	go func() {
		ws.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		ws.setState(StateDisconnected)
		return nil
	}
}

func (ws *WebSocket) isStopping() bool {
	select {
	case <-ws.stopCh:
		return true
	default:
		return false
	}
}

func (ws *WebSocket) buildHeaders() http.Header {
	hdr := http.Header{}
	if ws.headerProvider == nil {
		return hdr
	}
	for k, v := range ws.headerProvider() {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		hdr.Set(k, v)
	}
	return hdr
}
