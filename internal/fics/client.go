package fics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/park285/cheese-fics/internal/ficsgame"
	"go.uber.org/zap"
)

const (
	DefaultHost           = "freechess.org"
	DefaultPort           = 5000
	defaultDialTimeout    = 10 * time.Second
	defaultLoginTimeout   = 30 * time.Second
	defaultCommandTimeout = 30 * time.Second
	defaultWriteTimeout   = 10 * time.Second
	defaultWriteQueue     = 64
)

type Options struct {
	Host           string
	Port           int
	Interface      string
	DialTimeout    time.Duration
	LoginTimeout   time.Duration
	CommandTimeout time.Duration
	WriteTimeout   time.Duration
	WriteQueueSize int
	Logger         *zap.Logger

	// Resolve and Dial replace DNS lookup and the telnet dialer.
	Resolve ResolveFunc
	Dial    DialFunc
}

func (o *Options) applyDefaults() {
	if strings.TrimSpace(o.Host) == "" {
		o.Host = DefaultHost
	}
	if o.Port <= 0 {
		o.Port = DefaultPort
	}
	if strings.TrimSpace(o.Interface) == "" {
		o.Interface = DefaultInterface
	}
	if o.DialTimeout <= 0 {
		o.DialTimeout = defaultDialTimeout
	}
	if o.LoginTimeout <= 0 {
		o.LoginTimeout = defaultLoginTimeout
	}
	if o.CommandTimeout <= 0 {
		o.CommandTimeout = defaultCommandTimeout
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = defaultWriteTimeout
	}
	if o.WriteQueueSize <= 0 {
		o.WriteQueueSize = defaultWriteQueue
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Resolve == nil {
		o.Resolve = defaultResolve
	}
	if o.Dial == nil {
		o.Dial = TelnetDial
	}
}

// Client is a FICS connection. Requests come from any goroutine; replies,
// game updates and chat are delivered to the event handler from the
// connection's reader goroutine.
type Client struct {
	opts   Options
	logger *zap.Logger
	corr   *Correlator

	mu         sync.Mutex
	handler    EventHandler
	state      State
	activeGame int
	transport  *Transport
	sessionID  string
	cause      error
	closing    bool
	downSent   bool

	// reader goroutine only
	session *Session
	framer  Framer

	ready      chan struct{}
	readyErr   error
	readyOnce  sync.Once
	loginTimer *time.Timer
	closeOnce  sync.Once
}

func New(opts Options) *Client {
	opts.applyDefaults()
	return &Client{
		opts:   opts,
		logger: opts.Logger,
		corr:   NewCorrelator(opts.Logger),
		ready:  make(chan struct{}),
	}
}

// SetEventHandler replaces the handler. nil installs a no-op.
func (c *Client) SetEventHandler(h EventHandler) {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID identifies this connection in logs and stored records.
func (c *Client) SessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

// ActiveGame returns the observed game id, 0 when none.
func (c *Client) ActiveGame() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeGame
}

// Connect dials the server and starts the login. It returns once the TCP
// connection is up; NetworkEvent{Connected: true} follows when the session
// is ready. Use WaitReady to block for it.
func (c *Client) Connect(ctx context.Context, username, password string) error {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		return ErrClientClosed
	}
	if c.transport != nil {
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.sessionID = uuid.NewString()
	c.logger = c.opts.Logger.With(zap.String("session_id", c.sessionID))
	c.mu.Unlock()

	conn, err := dialAny(ctx, c.opts.Host, c.opts.Port, c.opts.DialTimeout, c.opts.Resolve, c.opts.Dial)
	if err != nil {
		c.logger.Warn("fics_connect_failed", zap.String("host", c.opts.Host), zap.Int("port", c.opts.Port), zap.Error(err))
		return fmt.Errorf("connect %s:%d: %w", c.opts.Host, c.opts.Port, err)
	}

	t := newTransport(conn, c.opts.WriteQueueSize, c.opts.WriteTimeout, c.onData, c.onClose, c.logger)
	c.session = NewSession(username, password, c.opts.Interface, t.Write, c.onStateChange)

	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		_ = conn.Close()
		return ErrClientClosed
	}
	c.transport = t
	c.mu.Unlock()

	c.logger.Info("fics_connected", zap.String("host", c.opts.Host), zap.Int("port", c.opts.Port), zap.String("remote", conn.RemoteAddr().String()))
	c.session.Start()
	c.mu.Lock()
	if !c.closing {
		c.loginTimer = time.AfterFunc(c.opts.LoginTimeout, c.loginTimedOut)
	}
	c.mu.Unlock()
	t.start()
	return nil
}

// WaitReady blocks until the session is idle, fails, or ctx ends.
func (c *Client) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return c.readyErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Command sends text as a numbered command and waits for its block reply.
// A reply with a block error code is returned together with a *CommandError.
func (c *Client) Command(ctx context.Context, text string) (Reply, error) {
	t, err := c.readyTransport()
	if err != nil {
		return Reply{}, err
	}
	p, err := c.corr.Register(text)
	if err != nil {
		return Reply{}, err
	}
	if err := t.Write(p.Line()); err != nil {
		c.corr.Forget(p.ID)
		return Reply{}, fmt.Errorf("send %q: %w", text, err)
	}

	wctx, cancel := context.WithTimeout(ctx, c.opts.CommandTimeout)
	defer cancel()
	r, err := p.Wait(wctx)
	if err != nil {
		if wctx.Err() != nil {
			c.corr.Cancel(p.ID)
			c.logger.Warn("fics_command_timeout", zap.Int("id", p.ID), zap.String("command", text))
		}
		return r, fmt.Errorf("command %q: %w", text, err)
	}
	return r, nil
}

// ListGames requests the game listing; the result arrives as a GameListEvent.
func (c *Client) ListGames() error {
	return c.fire("games", func(r Reply) {
		list, errs := ficsgame.ParseGameList(r.Text)
		for _, err := range errs {
			c.publish(ProtocolErrorEvent{Code: CodeMalformedSummary, Err: err})
		}
		c.publish(GameListEvent{Games: list})
	})
}

// ObserveGame starts observing id. Only one game is observed at a time; a
// different game already observed is unobserved first.
func (c *Client) ObserveGame(id int) error {
	if id <= 0 {
		return fmt.Errorf("observe: invalid game id %d", id)
	}
	if _, err := c.readyTransport(); err != nil {
		return err
	}
	// The observe reply carries the first board, so the new id is set
	// before sending and rolled back when nothing went out.
	c.mu.Lock()
	prev := c.activeGame
	c.activeGame = id
	c.mu.Unlock()

	if prev != 0 && prev != id {
		if err := c.fire("unobserve "+strconv.Itoa(prev), nil); err != nil {
			c.restoreActive(id, prev)
			return err
		}
		prev = 0
	}
	err := c.fire("observe "+strconv.Itoa(id), func(r Reply) {
		for _, line := range strings.Split(r.Text, "\n") {
			line = strings.Trim(line, "\r")
			if ficsgame.IsStyle12(line) {
				c.handleStyle12(line)
			}
		}
	})
	if err != nil {
		c.restoreActive(id, prev)
	}
	return err
}

// restoreActive puts prev back unless another call already moved on from id.
func (c *Client) restoreActive(id, prev int) {
	c.mu.Lock()
	if c.activeGame == id {
		c.activeGame = prev
	}
	c.mu.Unlock()
}

// UnobserveGame stops observing id.
func (c *Client) UnobserveGame(id int) error {
	if err := c.fire("unobserve "+strconv.Itoa(id), nil); err != nil {
		return err
	}
	c.restoreActive(id, 0)
	return nil
}

// Close ends the connection, fails pending commands with ErrClientClosed and
// waits for the I/O goroutines. It must not be called from an event handler.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		t := c.transport
		c.mu.Unlock()

		c.stopLoginTimer()
		c.corr.FailAll(ErrClientClosed)
		if t != nil {
			t.Close()
		}
		c.markReady(ErrClientClosed)
		c.setState(StateDisconnected)
		c.networkDown()
		c.logger.Info("fics_closed")
	})
	return nil
}

// fire sends a command without waiting. onReply runs on the reader goroutine
// for successful replies; rejections become ProtocolErrorEvents.
func (c *Client) fire(text string, onReply func(Reply)) error {
	t, err := c.readyTransport()
	if err != nil {
		return err
	}
	p, err := c.corr.RegisterFunc(text, func(r Reply, err error) {
		var ce *CommandError
		switch {
		case errors.As(err, &ce):
			c.logger.Warn("fics_command_rejected", zap.String("command", text), zap.String("reason", BlockCodeName(ce.Code)))
			c.publish(ProtocolErrorEvent{Code: CodeCommandRejected, Err: err})
		case err != nil:
			c.logger.Debug("fics_command_abandoned", zap.String("command", text), zap.Error(err))
		case onReply != nil:
			onReply(r)
		}
	})
	if err != nil {
		return err
	}
	if err := t.Write(p.Line()); err != nil {
		c.corr.Forget(p.ID)
		return fmt.Errorf("send %q: %w", text, err)
	}
	c.logger.Debug("fics_command_sent", zap.Int("id", p.ID), zap.String("command", text))
	return nil
}

func (c *Client) readyTransport() (*Transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.closing:
		return nil, ErrClientClosed
	case c.transport == nil:
		return nil, ErrNotConnected
	case c.state != StateIdle:
		return nil, ErrNotReady
	}
	return c.transport, nil
}

func (c *Client) onData(p []byte) {
	if c.session.State() != StateIdle {
		rest, err := c.session.Feed(p)
		if err != nil {
			c.fail(CodeLoginFailed, err)
			return
		}
		if c.session.State() != StateIdle {
			return
		}
		c.stopLoginTimer()
		c.markReady(nil)
		c.networkUp()
		p = rest
	}
	for _, it := range c.framer.Feed(p) {
		c.dispatch(it)
	}
}

func (c *Client) dispatch(it Item) {
	switch it.Kind {
	case KindMalformed:
		c.logger.Warn("fics_block_malformed", zap.Error(it.Err))
		c.publish(ProtocolErrorEvent{Code: CodeMalformedBlock, Err: it.Err})
	case KindBlock:
		if !c.corr.Deliver(it.Block) {
			c.logger.Warn("fics_block_unrequested",
				zap.Int("id", it.Block.ID),
				zap.String("code", BlockCodeName(it.Block.Code)),
				zap.Int("payload_bytes", len(it.Block.Payload)))
		}
	case KindLine:
		c.handleLine(it.Line)
	}
}

func (c *Client) handleLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if ficsgame.IsStyle12(line) {
		c.handleStyle12(line)
		return
	}
	c.publish(ChatEvent{Line: line})
}

func (c *Client) handleStyle12(line string) {
	gs, err := ficsgame.ParseStyle12(line)
	if err != nil {
		c.logger.Warn("fics_style12_malformed", zap.Error(err))
		c.publish(ProtocolErrorEvent{Code: CodeMalformedStyle12, Err: err})
		return
	}
	c.mu.Lock()
	active := c.activeGame
	c.mu.Unlock()
	if gs.ID != active {
		c.logger.Debug("fics_style12_dropped", zap.Int("game", gs.ID), zap.Int("active", active))
		return
	}
	c.publish(GameStateEvent{State: gs})
}

func (c *Client) publish(ev Event) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(ev)
	}
}

func (c *Client) onStateChange(from, to State) {
	c.setState(to)
	c.logger.Info("fics_login_state", zap.Stringer("from", from), zap.Stringer("to", to))
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) stopLoginTimer() {
	c.mu.Lock()
	t := c.loginTimer
	c.mu.Unlock()
	if t != nil {
		t.Stop()
	}
}

func (c *Client) loginTimedOut() {
	if c.State() == StateIdle {
		return
	}
	c.fail(CodeLoginTimeout, fmt.Errorf("%w after %s", ErrLoginTimeout, c.opts.LoginTimeout))
}

// fail reports a session-level failure and drops the connection. The
// transport's close callback finishes the teardown.
func (c *Client) fail(code ErrorCode, err error) {
	c.mu.Lock()
	if c.closing || c.cause != nil {
		c.mu.Unlock()
		return
	}
	c.cause = err
	t := c.transport
	c.mu.Unlock()

	c.logger.Error("fics_session_failed", zap.Stringer("code", code), zap.Error(err))
	c.setState(StateFailed)
	c.publish(ProtocolErrorEvent{Code: code, Err: err})
	if t != nil {
		t.shutdown(err)
	}
}

func (c *Client) onClose(err error) {
	c.mu.Lock()
	closing := c.closing
	cause := c.cause
	if cause == nil && !closing {
		c.cause = err
	}
	c.mu.Unlock()
	if closing {
		return
	}

	if cause == nil {
		c.logger.Error("fics_transport_failed", zap.Error(err))
		c.setState(StateFailed)
		c.publish(ProtocolErrorEvent{Code: CodeTransport, Err: err})
		cause = err
	}
	c.stopLoginTimer()
	c.corr.FailAll(cause)
	c.markReady(cause)
	c.networkDown()
}

func (c *Client) markReady(err error) {
	c.readyOnce.Do(func() {
		c.readyErr = err
		close(c.ready)
	})
}

func (c *Client) networkUp() {
	c.logger.Info("fics_ready")
	c.publish(NetworkEvent{Connected: true})
}

// networkDown publishes the disconnect once, and only after a connect.
func (c *Client) networkDown() {
	c.mu.Lock()
	send := c.transport != nil && !c.downSent
	c.downSent = true
	c.mu.Unlock()
	if send {
		c.publish(NetworkEvent{Connected: false})
	}
}
