// Package tcp accepts client connections and runs one session per
// connection on a bounded pool.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/turing/internal/logging"
)

// ConnectionHandler serves one connection until it ends. Serve must return
// once reads on the connection start failing.
type ConnectionHandler interface {
	Serve(ctx context.Context)
}

// ConnectionFactory builds the handler for an accepted connection.
type ConnectionFactory func(conn net.Conn) ConnectionHandler

type Config struct {
	Address string
	// MaxSessions bounds the number of sessions served at once. Further
	// clients wait in the listen backlog. Zero means unlimited.
	MaxSessions int
	// IdleTimeout closes sessions that send nothing for this long. Zero
	// disables it.
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type Server struct {
	cfg     Config
	factory ConnectionFactory
	logger  logging.Logger

	listener   net.Listener
	listenerMu sync.RWMutex
	ready      chan struct{}

	sem         chan struct{}
	activeConns sync.WaitGroup
	connCount   atomic.Int32
	conns       sync.Map // remote address -> net.Conn

	closing      atomic.Bool
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

func NewServer(cfg Config, factory ConnectionFactory, logger logging.Logger) *Server {
	var sem chan struct{}
	if cfg.MaxSessions > 0 {
		sem = make(chan struct{}, cfg.MaxSessions)
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	return &Server{
		cfg:      cfg,
		factory:  factory,
		logger:   logger.With("module", "tcp"),
		ready:    make(chan struct{}),
		sem:      sem,
		shutdown: make(chan struct{}),
	}
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address, or nil before Ready.
func (s *Server) Addr() net.Addr {
	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ActiveSessions returns the number of sessions being served.
func (s *Server) ActiveSessions() int {
	return int(s.connCount.Load())
}

// Run accepts connections until ctx is cancelled, then shuts down
// gracefully: the listener is closed, pending reads are interrupted so every
// session runs its recovery, and Run waits up to ShutdownTimeout for them.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Address, err)
	}
	s.listenerMu.Lock()
	s.listener = ln
	s.listenerMu.Unlock()
	close(s.ready)

	s.logger.Info(ctx, "session server listening", "addr", ln.Addr().String(), "max_sessions", s.cfg.MaxSessions)

	go func() {
		<-ctx.Done()
		s.initiateShutdown(ctx)
	}()

	sessionCtx := context.WithoutCancel(ctx)

	for {
		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
			case <-s.shutdown:
				return s.gracefulShutdown(ctx)
			}
		}

		conn, err := ln.Accept()
		if err != nil {
			if s.sem != nil {
				<-s.sem
			}
			select {
			case <-s.shutdown:
				return s.gracefulShutdown(ctx)
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			s.logger.Warn(ctx, "accept failed", "error", err)
			continue
		}

		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(true)
		}

		addr := conn.RemoteAddr().String()
		s.conns.Store(addr, conn)
		s.activeConns.Add(1)
		active := s.connCount.Add(1)
		s.logger.Debug(ctx, "connection accepted", "remote", addr, "active", active)

		handler := s.factory(s.wrap(conn))

		go func() {
			defer func() {
				s.conns.Delete(addr)
				s.connCount.Add(-1)
				s.activeConns.Done()
				if s.sem != nil {
					<-s.sem
				}
				s.logger.Debug(ctx, "connection closed", "remote", addr, "active", s.connCount.Load())
			}()
			// a failing session must not take the others down with it
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error(ctx, "session panicked", "remote", addr, "panic", r)
					_ = conn.Close()
				}
			}()
			handler.Serve(sessionCtx)
		}()
	}
}

func (s *Server) wrap(conn net.Conn) net.Conn {
	if s.cfg.IdleTimeout <= 0 {
		return conn
	}
	return &idleConn{Conn: conn, timeout: s.cfg.IdleTimeout, closing: &s.closing}
}

func (s *Server) initiateShutdown(ctx context.Context) {
	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "session server shutting down")
		s.closing.Store(true)
		close(s.shutdown)

		s.listenerMu.Lock()
		if s.listener != nil {
			_ = s.listener.Close()
		}
		s.listenerMu.Unlock()

		s.interruptReads()
	})
}

// interruptReads makes every blocked session read fail so the sessions run
// their recovery and exit.
func (s *Server) interruptReads() {
	deadline := time.Now().Add(100 * time.Millisecond)
	s.conns.Range(func(key, value any) bool {
		if c, ok := value.(net.Conn); ok {
			_ = c.SetReadDeadline(deadline)
		}
		return true
	})
}

func (s *Server) gracefulShutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.activeConns.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info(ctx, "session server stopped")
		return nil
	case <-time.After(s.cfg.ShutdownTimeout):
		remaining := s.connCount.Load()
		s.logger.Warn(ctx, "shutdown timeout exceeded, closing connections", "remaining", remaining)
		s.conns.Range(func(_, value any) bool {
			if c, ok := value.(net.Conn); ok {
				_ = c.Close()
			}
			return true
		})
		return fmt.Errorf("%d sessions still active after %s", remaining, s.cfg.ShutdownTimeout)
	}
}

// idleConn pushes the read deadline forward on every read until the server
// starts shutting down.
type idleConn struct {
	net.Conn
	timeout time.Duration
	closing *atomic.Bool
}

func (c *idleConn) Read(p []byte) (int, error) {
	if !c.closing.Load() {
		if err := c.Conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return 0, err
		}
	}
	return c.Conn.Read(p)
}
