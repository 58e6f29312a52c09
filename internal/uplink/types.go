package uplink

import (
	"context"

	"github.com/park285/cheese-fics/pkg/ficsdto"
)

// HeaderProvider supplies per-request headers (auth tokens and the like).
type HeaderProvider func() map[string]string

type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

type CommandCallback func(cmd ficsdto.Command)

type StateCallback func(state State)

// Hub is the bidirectional UI link: commands in, events out.
type Hub interface {
	Connect(ctx context.Context) error
	State() State
	Send(ctx context.Context, v any) error
	OnCommand(cb CommandCallback) int
	RemoveCommandCallback(id int)
	OnStateChange(cb StateCallback) int
	RemoveStateCallback(id int)
	Close(ctx context.Context) error
}
