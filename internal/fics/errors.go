package fics

import (
	"errors"
	"fmt"
)

var (
	ErrClientClosed     = errors.New("fics: client closed")
	ErrNotConnected     = errors.New("fics: not connected")
	ErrNotReady         = errors.New("fics: session not ready")
	ErrAlreadyConnected = errors.New("fics: already connected")
	ErrTransportClosed  = errors.New("fics: transport closed")
	ErrWriteQueueFull   = errors.New("fics: write queue full")
	ErrTooManyPending   = errors.New("fics: no free command id")
	ErrLoginFailed      = errors.New("fics: login failed")
	ErrLoginTimeout     = errors.New("fics: login timed out")
	ErrMalformedBlock   = errors.New("fics: malformed block")
)

// CommandError is returned for a block reply carrying an error code.
type CommandError struct {
	ID      int
	Code    int
	Command string
	Text    string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("fics: command %q rejected: %s", e.Command, BlockCodeName(e.Code))
}

// BlockError describes a block frame whose header could not be decoded.
type BlockError struct {
	Raw    string
	Reason string
}

func (e *BlockError) Error() string {
	raw := e.Raw
	if len(raw) > 64 {
		raw = raw[:64]
	}
	return fmt.Sprintf("fics: malformed block (%s): %q", e.Reason, raw)
}

func (e *BlockError) Unwrap() error { return ErrMalformedBlock }

// ErrorCode classifies a ProtocolErrorEvent.
type ErrorCode int

const (
	CodeTransport ErrorCode = iota + 1
	CodeMalformedBlock
	CodeMalformedStyle12
	CodeMalformedSummary
	CodeCommandRejected
	CodeLoginFailed
	CodeLoginTimeout
)

func (c ErrorCode) String() string {
	switch c {
	case CodeTransport:
		return "transport"
	case CodeMalformedBlock:
		return "malformed_block"
	case CodeMalformedStyle12:
		return "malformed_style12"
	case CodeMalformedSummary:
		return "malformed_summary"
	case CodeCommandRejected:
		return "command_rejected"
	case CodeLoginFailed:
		return "login_failed"
	case CodeLoginTimeout:
		return "login_timeout"
	default:
		return fmt.Sprintf("error_code(%d)", int(c))
	}
}
