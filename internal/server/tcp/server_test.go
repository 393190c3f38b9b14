package tcp

import (
	"bufio"
	"context"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/turing/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler answers every line with the same line and counts how many
// sessions have finished.
type echoHandler struct {
	conn     net.Conn
	finished *atomic.Int32
}

func (e *echoHandler) Serve(ctx context.Context) {
	defer e.finished.Add(1)
	defer e.conn.Close()
	r := bufio.NewReader(e.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		if _, err := e.conn.Write([]byte(line)); err != nil {
			return
		}
	}
}

func startServer(t *testing.T, cfg Config) (*Server, *atomic.Int32, context.CancelFunc, chan error) {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	var finished atomic.Int32
	srv := NewServer(cfg, func(c net.Conn) ConnectionHandler {
		return &echoHandler{conn: c, finished: &finished}
	}, logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run(ctx) }()

	select {
	case <-srv.Ready():
	case err := <-errCh:
		t.Fatalf("server failed to start: %v", err)
	}
	t.Cleanup(cancel)
	return srv, &finished, cancel, errCh
}

func echo(t *testing.T, c net.Conn, r *bufio.Reader, msg string) {
	t.Helper()
	_, err := c.Write([]byte(msg + "\n"))
	require.NoError(t, err)
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	got, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, msg+"\n", got)
}

func TestServer_ServesAndShutsDown(t *testing.T) {
	srv, finished, cancel, errCh := startServer(t, Config{MaxSessions: 4, ShutdownTimeout: 2 * time.Second})

	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	echo(t, c, bufio.NewReader(c), "hello")

	assert.Eventually(t, func() bool { return srv.ActiveSessions() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}
	assert.Equal(t, int32(1), finished.Load(), "blocked session must be interrupted")
}

func TestServer_BoundedPool(t *testing.T) {
	srv, _, _, _ := startServer(t, Config{MaxSessions: 1, ShutdownTimeout: time.Second})

	first, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	firstR := bufio.NewReader(first)
	echo(t, first, firstR, "one")

	// the second client connects through the backlog but is not served yet
	second, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write([]byte("two\n"))
	require.NoError(t, err)
	require.NoError(t, second.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	secondR := bufio.NewReader(second)
	_, err = secondR.ReadString('\n')
	require.Error(t, err)

	// freeing the slot lets it through
	first.Close()
	require.NoError(t, second.SetReadDeadline(time.Now().Add(2*time.Second)))
	got, err := secondR.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "two\n", got)
}

func TestServer_IdleTimeout(t *testing.T) {
	srv, finished, _, _ := startServer(t, Config{IdleTimeout: 100 * time.Millisecond})

	c, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer c.Close()
	echo(t, c, bufio.NewReader(c), "ping")

	assert.Eventually(t, func() bool { return finished.Load() == 1 }, 2*time.Second, 20*time.Millisecond)
}

func TestServer_BadAddress(t *testing.T) {
	srv := NewServer(Config{Address: "bad::addr"}, func(c net.Conn) ConnectionHandler { return nil }, logging.Nop{})
	err := srv.Run(context.Background())
	require.Error(t, err)
	assert.Nil(t, srv.Addr())
}

type panicHandler struct {
	conn net.Conn
}

func (p *panicHandler) Serve(context.Context) {
	r := bufio.NewReader(p.conn)
	if _, err := r.ReadString('\n'); err != nil {
		return
	}
	panic("handler bug")
}

func TestServer_PanickingSessionDoesNotStopServer(t *testing.T) {
	var finished atomic.Int32
	var sessions atomic.Int32
	srv := NewServer(Config{Address: "127.0.0.1:0", MaxSessions: 1, ShutdownTimeout: time.Second}, func(c net.Conn) ConnectionHandler {
		if sessions.Add(1) == 1 {
			return &panicHandler{conn: c}
		}
		return &echoHandler{conn: c, finished: &finished}
	}, logging.Nop{})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = srv.Run(ctx) }()
	<-srv.Ready()

	bad, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer bad.Close()
	_, err = bad.Write([]byte("boom\n"))
	require.NoError(t, err)

	// the connection is closed and its pool slot is freed
	require.NoError(t, bad.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, err = bufio.NewReader(bad).ReadString('\n')
	require.Error(t, err)

	good, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer good.Close()
	echo(t, good, bufio.NewReader(good), "still here")
}
