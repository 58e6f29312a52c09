package fics

import (
	"bytes"
	"fmt"
	"strings"
)

// State is the login/session phase of a connection.
type State int

const (
	StateDisconnected State = iota
	StateWaitingForLogin
	StateWaitingForPassword
	StateLoggedIn
	StateInterfaceSetup
	StateIdle
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateWaitingForLogin:
		return "waiting_for_login"
	case StateWaitingForPassword:
		return "waiting_for_password"
	case StateLoggedIn:
		return "logged_in"
	case StateInterfaceSetup:
		return "interface_setup"
	case StateIdle:
		return "idle"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

const (
	tokenLogin           = "login:"
	tokenPassword        = "password:"
	tokenGuestPrompt     = "Press return to enter"
	tokenInvalidPassword = "Invalid password"
	tokenPrompt          = "fics%"

	DefaultInterface = "cheese-fics"
)

// matchWindow keeps enough of the previous chunk to see any token split
// across two reads.
var matchWindow = max(len(tokenLogin), len(tokenPassword), len(tokenGuestPrompt), len(tokenInvalidPassword)) - 1

// InterfaceMacro is sent once after login. It turns on block mode and
// style 12 and locks the interface variables.
func InterfaceMacro(name string) []byte {
	if strings.TrimSpace(name) == "" {
		name = DefaultInterface
	}
	return []byte("iset defprompt 1\n" +
		"iset gameinfo 1\n" +
		"iset ms 1\n" +
		"iset allresults 1\n" +
		"iset startpos 1\n" +
		"iset pendinfo 1\n" +
		"iset nowrap 1\n" +
		"set interface " + name + "\n" +
		"set style 12\n" +
		"set bell 0\n" +
		"set ptime 0\n" +
		"iset block 1\n" +
		"1 iset lock 1\n")
}

// Session drives the login handshake. Input is consumed until the session
// is idle; from then on the caller routes bytes to the framer.
type Session struct {
	username  string
	password  string
	iface     string
	send      func([]byte) error
	onChange  func(from, to State)
	state     State
	window    []byte
	macroSent int
}

func NewSession(username, password, iface string, send func([]byte) error, onChange func(from, to State)) *Session {
	return &Session{
		username: username,
		password: password,
		iface:    iface,
		send:     send,
		onChange: onChange,
		state:    StateDisconnected,
	}
}

func (s *Session) State() State { return s.state }

// Start marks the transport as connected.
func (s *Session) Start() {
	if s.state == StateDisconnected {
		s.set(StateWaitingForLogin)
	}
}

// Fail moves the session to the terminal state.
func (s *Session) Fail() {
	if s.state != StateFailed {
		s.set(StateFailed)
	}
}

// Feed consumes login-phase input. When the handshake completes the session
// becomes idle and the input following the password prompt is returned for
// normal dispatch.
func (s *Session) Feed(p []byte) ([]byte, error) {
	switch s.state {
	case StateIdle:
		return p, nil
	case StateFailed, StateDisconnected:
		return nil, nil
	}

	s.window = append(s.window, p...)
	for {
		switch s.state {
		case StateWaitingForLogin:
			if !s.consume(tokenLogin) {
				s.trim()
				return nil, nil
			}
			if err := s.reply(s.username + "\n"); err != nil {
				return nil, err
			}
			s.set(StateWaitingForPassword)

		case StateWaitingForPassword:
			if s.contains(tokenInvalidPassword) {
				s.Fail()
				return nil, fmt.Errorf("%w: invalid password for %q", ErrLoginFailed, s.username)
			}
			if s.consume(tokenPassword) {
				if err := s.reply(s.password + "\n"); err != nil {
					return nil, err
				}
				s.set(StateLoggedIn)
				continue
			}
			if s.consume(tokenGuestPrompt) {
				if err := s.reply("\n"); err != nil {
					return nil, err
				}
				s.set(StateLoggedIn)
				continue
			}
			s.trim()
			return nil, nil

		case StateLoggedIn:
			if s.contains(tokenInvalidPassword) {
				s.Fail()
				return nil, fmt.Errorf("%w: invalid password for %q", ErrLoginFailed, s.username)
			}
			if !s.settled() {
				if len(bytes.TrimSpace(s.window)) == 0 {
					s.trim()
				}
				return nil, nil
			}
			s.set(StateInterfaceSetup)
			if err := s.reply(string(InterfaceMacro(s.iface))); err != nil {
				return nil, err
			}
			s.macroSent++
			rest := s.window
			s.window = nil
			s.set(StateIdle)
			return rest, nil

		default:
			return nil, nil
		}
	}
}

// consume looks for tok in the window and drops everything up to its end.
func (s *Session) consume(tok string) bool {
	i := bytes.Index(s.window, []byte(tok))
	if i < 0 {
		return false
	}
	s.window = s.window[i+len(tok):]
	return true
}

// settled reports whether the server's answer to the password can be
// judged: a complete non-blank line or the prompt has arrived.
func (s *Session) settled() bool {
	if s.contains(tokenPrompt) {
		return true
	}
	i := bytes.LastIndexByte(s.window, '\n')
	return i >= 0 && len(bytes.TrimSpace(s.window[:i])) > 0
}

func (s *Session) contains(tok string) bool {
	return bytes.Contains(s.window, []byte(tok))
}

// trim keeps only the tail that could still start a token.
func (s *Session) trim() {
	if n := len(s.window); n > matchWindow {
		s.window = append(s.window[:0], s.window[n-matchWindow:]...)
	}
}

func (s *Session) reply(text string) error {
	if err := s.send([]byte(text)); err != nil {
		s.Fail()
		return fmt.Errorf("send login reply: %w", err)
	}
	return nil
}

func (s *Session) set(to State) {
	from := s.state
	s.state = to
	if s.onChange != nil {
		s.onChange(from, to)
	}
}
