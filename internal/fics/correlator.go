package fics

import (
	"context"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

const (
	// Low IDs are left to the interface macro ("1 iset lock 1").
	firstCommandID = 10
	lastCommandID  = 9999
)

// Reply is the server's answer to one numbered command.
type Reply struct {
	ID   int
	Code int
	Text string
}

// Err returns a *CommandError when the reply carries a block error code.
func (r Reply) Err() error {
	if !IsErrorCode(r.Code) {
		return nil
	}
	return &CommandError{ID: r.ID, Code: r.Code, Text: r.Text}
}

// Pending is a command waiting for its block reply.
type Pending struct {
	ID   int
	Text string

	done  chan struct{}
	reply Reply
	err   error
	fn    func(Reply, error)
}

// Line is the wire form of the command.
func (p *Pending) Line() []byte {
	return []byte(strconv.Itoa(p.ID) + " " + p.Text + "\n")
}

func (p *Pending) Done() <-chan struct{} { return p.done }

// Result is valid once Done is closed.
func (p *Pending) Result() (Reply, error) { return p.reply, p.err }

// Wait blocks until the reply arrives, the command fails or ctx ends.
func (p *Pending) Wait(ctx context.Context) (Reply, error) {
	select {
	case <-p.done:
		return p.reply, p.err
	case <-ctx.Done():
		return Reply{}, ctx.Err()
	}
}

func (p *Pending) complete(r Reply, err error) {
	p.reply, p.err = r, err
	close(p.done)
	if p.fn != nil {
		p.fn(r, err)
	}
}

// Correlator matches block replies to the commands that requested them.
// An ID whose command was sent and then abandoned stays reserved until its
// late reply arrives, so that reply is never handed to a newer command.
type Correlator struct {
	mu        sync.Mutex
	next      int
	pending   map[int]*Pending
	abandoned map[int]struct{}
	closed    error
	logger    *zap.Logger
}

func NewCorrelator(logger *zap.Logger) *Correlator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Correlator{
		next:      firstCommandID,
		pending:   make(map[int]*Pending),
		abandoned: make(map[int]struct{}),
		logger:    logger,
	}
}

// Register allocates an ID for text.
func (c *Correlator) Register(text string) (*Pending, error) {
	return c.register(text, nil)
}

// RegisterFunc is Register with a completion callback. fn runs on the
// goroutine that delivers the reply (or fails the command).
func (c *Correlator) RegisterFunc(text string, fn func(Reply, error)) (*Pending, error) {
	return c.register(text, fn)
}

func (c *Correlator) register(text string, fn func(Reply, error)) (*Pending, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed != nil {
		return nil, c.closed
	}
	for range lastCommandID - firstCommandID + 1 {
		id := c.next
		c.next++
		if c.next > lastCommandID {
			c.next = firstCommandID
		}
		if c.inUse(id) {
			continue
		}
		p := &Pending{ID: id, Text: text, done: make(chan struct{}), fn: fn}
		c.pending[id] = p
		return p, nil
	}
	return nil, ErrTooManyPending
}

// Deliver completes the command with the block's ID. A reply to an
// abandoned command is swallowed and frees its ID. It returns false when
// the ID was never requested.
func (c *Correlator) Deliver(b Block) bool {
	c.mu.Lock()
	p, ok := c.pending[b.ID]
	_, late := c.abandoned[b.ID]
	switch {
	case ok:
		delete(c.pending, b.ID)
		c.maybeReset()
	case late:
		delete(c.abandoned, b.ID)
		c.maybeReset()
	}
	c.mu.Unlock()
	if late {
		c.logger.Debug("fics_reply_discarded", zap.Int("id", b.ID), zap.String("code", BlockCodeName(b.Code)))
		return true
	}
	if !ok {
		return false
	}
	r := Reply{ID: b.ID, Code: b.Code, Text: b.Payload}
	var err error
	if IsErrorCode(b.Code) {
		err = &CommandError{ID: b.ID, Code: b.Code, Command: p.Text, Text: b.Payload}
	}
	p.complete(r, err)
	return true
}

// Cancel abandons a command that was already sent. It is not completed,
// and its ID stays reserved until the server's reply shows up.
func (c *Correlator) Cancel(id int) {
	c.mu.Lock()
	if _, ok := c.pending[id]; ok {
		delete(c.pending, id)
		c.abandoned[id] = struct{}{}
	}
	c.mu.Unlock()
}

// Forget drops a command that never reached the wire and frees its ID.
func (c *Correlator) Forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.maybeReset()
	c.mu.Unlock()
}

// FailAll completes every pending command with err and rejects later
// registrations with the same error.
func (c *Correlator) FailAll(err error) {
	c.mu.Lock()
	if c.closed == nil {
		c.closed = err
	}
	drained := make([]*Pending, 0, len(c.pending))
	for id, p := range c.pending {
		drained = append(drained, p)
		delete(c.pending, id)
	}
	clear(c.abandoned)
	c.next = firstCommandID
	c.mu.Unlock()

	for _, p := range drained {
		p.complete(Reply{ID: p.ID}, err)
	}
	if len(drained) > 0 {
		c.logger.Debug("fics_pending_failed", zap.Int("count", len(drained)), zap.Error(err))
	}
}

// Len returns the number of commands in flight.
func (c *Correlator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// Abandoned returns the number of IDs held for late replies.
func (c *Correlator) Abandoned() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.abandoned)
}

// inUse and maybeReset must be called with mu held.
func (c *Correlator) inUse(id int) bool {
	if _, ok := c.pending[id]; ok {
		return true
	}
	_, ok := c.abandoned[id]
	return ok
}

func (c *Correlator) maybeReset() {
	if len(c.pending) == 0 && len(c.abandoned) == 0 {
		c.next = firstCommandID
	}
}
