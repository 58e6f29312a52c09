package fics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/ziutek/telnet"
	"go.uber.org/zap"
)

const readChunkSize = 512

// DialFunc opens one connection to addr ("host:port").
type DialFunc func(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error)

// ResolveFunc returns the addresses of host in preference order.
type ResolveFunc func(ctx context.Context, host string) ([]string, error)

// TelnetDial connects with telnet option handling so IAC sequences never
// reach the framer.
func TelnetDial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < timeout {
			timeout = rem
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}
	conn, err := telnet.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func defaultResolve(ctx context.Context, host string) ([]string, error) {
	return net.DefaultResolver.LookupHost(ctx, host)
}

// dialAny tries every resolved address in order and reports all failures
// when none answers.
func dialAny(ctx context.Context, host string, port int, timeout time.Duration, resolve ResolveFunc, dial DialFunc) (net.Conn, error) {
	addrs, err := resolve(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("resolve %s: no addresses", host)
	}
	var errs []error
	for _, a := range addrs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		addr := net.JoinHostPort(a, strconv.Itoa(port))
		conn, err := dial(ctx, addr, timeout)
		if err == nil {
			return conn, nil
		}
		errs = append(errs, fmt.Errorf("dial %s: %w", addr, err))
	}
	return nil, errors.Join(errs...)
}

// Transport owns one connection: a reader goroutine handing chunks to onData
// and a writer goroutine draining a bounded queue. The first read or write
// error closes it and is reported once through onClose.
type Transport struct {
	conn         net.Conn
	writeQ       chan []byte
	writeTimeout time.Duration
	onData       func([]byte)
	onClose      func(error)
	logger       *zap.Logger

	stopCh    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newTransport(conn net.Conn, queueSize int, writeTimeout time.Duration, onData func([]byte), onClose func(error), logger *zap.Logger) *Transport {
	if queueSize <= 0 {
		queueSize = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		conn:         conn,
		writeQ:       make(chan []byte, queueSize),
		writeTimeout: writeTimeout,
		onData:       onData,
		onClose:      onClose,
		logger:       logger,
		stopCh:       make(chan struct{}),
	}
}

func (t *Transport) start() {
	t.wg.Add(2)
	go t.readLoop()
	go t.writeLoop()
}

// Write queues p without blocking.
func (t *Transport) Write(p []byte) error {
	select {
	case <-t.stopCh:
		return ErrTransportClosed
	default:
	}
	buf := append([]byte(nil), p...)
	select {
	case t.writeQ <- buf:
		return nil
	case <-t.stopCh:
		return ErrTransportClosed
	default:
		return ErrWriteQueueFull
	}
}

func (t *Transport) readLoop() {
	defer t.wg.Done()
	buf := make([]byte, readChunkSize)
	for {
		n, err := t.conn.Read(buf)
		if n > 0 {
			t.onData(append([]byte(nil), buf[:n]...))
		}
		if err != nil {
			t.shutdown(fmt.Errorf("read: %w", err))
			return
		}
	}
}

func (t *Transport) writeLoop() {
	defer t.wg.Done()
	for {
		select {
		case <-t.stopCh:
			return
		case p := <-t.writeQ:
			if t.writeTimeout > 0 {
				_ = t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout))
			}
			if _, err := t.conn.Write(p); err != nil {
				t.shutdown(fmt.Errorf("write: %w", err))
				return
			}
		}
	}
}

// shutdown closes the connection without waiting for the goroutines, so it
// is safe to call from them.
func (t *Transport) shutdown(cause error) {
	t.closeOnce.Do(func() {
		close(t.stopCh)
		_ = t.conn.Close()
		if !errors.Is(cause, ErrTransportClosed) {
			t.logger.Debug("fics_transport_closed", zap.Error(cause))
		}
		if t.onClose != nil {
			t.onClose(cause)
		}
	})
}

// Close shuts the connection and waits for both goroutines. It must not be
// called from onData or onClose.
func (t *Transport) Close() {
	t.shutdown(ErrTransportClosed)
	t.wg.Wait()
}
