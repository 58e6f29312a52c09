package fics

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransportReadWriteAndFailure(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()

	data := make(chan string, 8)
	closed := make(chan error, 2)
	tr := newTransport(clientSide, 4, time.Second, func(p []byte) { data <- string(p) }, func(err error) { closed <- err }, nil)
	tr.start()

	go func() { _, _ = serverSide.Write([]byte("login: ")) }()
	select {
	case got := <-data:
		assert.Equal(t, "login: ", got)
	case <-time.After(2 * time.Second):
		t.Fatal("no data delivered")
	}

	require.NoError(t, tr.Write([]byte("alice\n")))
	line, err := bufio.NewReader(serverSide).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "alice\n", line)

	serverSide.Close()
	select {
	case err := <-closed:
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrTransportClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("close not reported")
	}
	tr.Close()
	assert.ErrorIs(t, tr.Write([]byte("x")), ErrTransportClosed)
	assert.Len(t, closed, 0, "close is reported once")
}

func TestTransportWriteQueueFull(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	defer serverSide.Close()
	tr := newTransport(clientSide, 1, time.Second, func([]byte) {}, nil, nil)
	// writer goroutine not started: the queue fills immediately
	require.NoError(t, tr.Write([]byte("a")))
	assert.ErrorIs(t, tr.Write([]byte("b")), ErrWriteQueueFull)
	tr.shutdown(ErrTransportClosed)
}

func TestDialAnyTriesEveryAddress(t *testing.T) {
	var mu sync.Mutex
	var tried []string
	resolve := func(context.Context, string) ([]string, error) {
		return []string{"10.0.0.1", "10.0.0.2", "::1"}, nil
	}
	dial := func(_ context.Context, addr string, _ time.Duration) (net.Conn, error) {
		mu.Lock()
		tried = append(tried, addr)
		mu.Unlock()
		if addr == "[::1]:5000" {
			c, s := net.Pipe()
			s.Close()
			return c, nil
		}
		return nil, errors.New("refused")
	}
	conn, err := dialAny(context.Background(), "fics.example", 5000, time.Second, resolve, dial)
	require.NoError(t, err)
	conn.Close()
	assert.Equal(t, []string{"10.0.0.1:5000", "10.0.0.2:5000", "[::1]:5000"}, tried)
}

func TestDialAnyJoinsErrors(t *testing.T) {
	resolve := func(context.Context, string) ([]string, error) { return []string{"a", "b"}, nil }
	dial := func(_ context.Context, addr string, _ time.Duration) (net.Conn, error) {
		return nil, errors.New("unreachable " + addr)
	}
	_, err := dialAny(context.Background(), "fics.example", 5000, time.Second, resolve, dial)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unreachable a:5000")
	assert.Contains(t, err.Error(), "unreachable b:5000")

	noAddrs := func(context.Context, string) ([]string, error) { return nil, nil }
	_, err = dialAny(context.Background(), "fics.example", 5000, time.Second, noAddrs, dial)
	assert.Error(t, err)
}
