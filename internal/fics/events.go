package fics

import (
	"sync/atomic"

	"github.com/park285/cheese-fics/internal/ficsgame"
	"go.uber.org/zap"
)

// Event is delivered to the registered EventHandler. The concrete types are
// NetworkEvent, GameListEvent, GameStateEvent, ChatEvent and
// ProtocolErrorEvent.
type Event interface {
	Kind() string
	isEvent()
}

// NetworkEvent reports the session becoming usable or going away.
type NetworkEvent struct {
	Connected bool
}

type GameListEvent struct {
	Games ficsgame.GameList
}

type GameStateEvent struct {
	State ficsgame.GameState
}

// ChatEvent carries any text line that is not a game update.
type ChatEvent struct {
	Line string
}

type ProtocolErrorEvent struct {
	Code ErrorCode
	Err  error
}

func (NetworkEvent) Kind() string       { return "network" }
func (GameListEvent) Kind() string      { return "game_list" }
func (GameStateEvent) Kind() string     { return "game_state" }
func (ChatEvent) Kind() string          { return "chat" }
func (ProtocolErrorEvent) Kind() string { return "protocol_error" }

func (NetworkEvent) isEvent()       {}
func (GameListEvent) isEvent()      {}
func (GameStateEvent) isEvent()     {}
func (ChatEvent) isEvent()          {}
func (ProtocolErrorEvent) isEvent() {}

// EventHandler runs on the connection's reader goroutine and must not block.
type EventHandler func(Event)

// EventQueue hands events to another goroutine through a bounded channel.
// Handle never blocks; events that do not fit are dropped and counted.
type EventQueue struct {
	ch      chan Event
	dropped atomic.Int64
	logger  *zap.Logger
}

func NewEventQueue(size int, logger *zap.Logger) *EventQueue {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventQueue{ch: make(chan Event, size), logger: logger}
}

func (q *EventQueue) Handle(ev Event) {
	select {
	case q.ch <- ev:
	default:
		n := q.dropped.Add(1)
		q.logger.Warn("fics_event_dropped", zap.String("kind", ev.Kind()), zap.Int64("dropped_total", n))
	}
}

// Events is never closed; consumers stop on their own context.
func (q *EventQueue) Events() <-chan Event { return q.ch }

func (q *EventQueue) Dropped() int64 { return q.dropped.Load() }
