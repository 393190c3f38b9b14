package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/dmitrijs2005/turing/internal/protocol"
)

// MaxRetries bounds how often a request is repeated after a contention
// status.
const MaxRetries = 5

type Option func(*Client)

// WithNoticeHandler sets the function called when the server reports that
// documents were shared with the user.
func WithNoticeHandler(fn func()) Option {
	return func(c *Client) { c.onNotice = fn }
}

// WithDownloadDir sets the directory downloaded sections are written to.
func WithDownloadDir(dir string) Option {
	return func(c *Client) { c.dir = dir }
}

// WithRetryDelay sets the pause between contention retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// Client is one connection to the editing server. It is not safe for
// concurrent use.
type Client struct {
	rwc      io.ReadWriteCloser
	conn     *protocol.Conn
	dir      string
	onNotice func()
	delay    time.Duration
	editing  *Edit
}

func New(rwc io.ReadWriteCloser, opts ...Option) *Client {
	c := &Client{
		rwc:   rwc,
		conn:  protocol.NewConn(rwc),
		delay: 20 * time.Millisecond,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dial connects to the editing server at addr.
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return New(conn, opts...), nil
}

func (c *Client) Close() error {
	return c.rwc.Close()
}

// Editing returns the section currently locked by this client.
func (c *Client) Editing() (Edit, bool) {
	if c.editing == nil {
		return Edit{}, false
	}
	return *c.editing, true
}

type deadliner interface {
	SetDeadline(time.Time) error
}

// bind applies the deadline and cancellation of ctx to the connection until
// the returned function is called.
func (c *Client) bind(ctx context.Context) func() {
	d, ok := c.rwc.(deadliner)
	if !ok {
		return func() {}
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = d.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = d.SetDeadline(time.Unix(1, 0))
	})
	return func() {
		if stop() {
			_ = d.SetDeadline(time.Time{})
		}
	}
}

// status reads the next status line, handing share notices to the notice
// handler.
func (c *Client) status() (int, error) {
	for {
		code, err := c.conn.ReadStatus()
		if err != nil {
			return 0, err
		}
		if code != protocol.StatusShareNotice {
			return code, nil
		}
		if c.onNotice != nil {
			c.onNotice()
		}
	}
}

func (c *Client) request(cmd string, args ...any) (int, error) {
	if err := c.conn.WriteLine(protocol.FormatRequest(cmd, args...)); err != nil {
		return 0, err
	}
	return c.status()
}

// retry runs attempt until it yields something other than contention, at
// most MaxRetries extra times. Negative statuses become *StatusError.
func (c *Client) retry(ctx context.Context, cmd string, attempt func() (int, error)) (int, error) {
	for i := 0; ; i++ {
		code, err := attempt()
		if err != nil {
			return 0, err
		}
		if code != protocol.StatusContention {
			if code < 0 {
				return code, &StatusError{Command: cmd, Code: code}
			}
			return code, nil
		}
		if i == MaxRetries {
			return code, fmt.Errorf("%s: %w", cmd, ErrContention)
		}

		t := time.NewTimer(c.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return 0, ctx.Err()
		case <-t.C:
		}
	}
}

// simple runs a command whose whole reply is one status.
func (c *Client) simple(ctx context.Context, cmd string, args ...any) error {
	defer c.bind(ctx)()
	_, err := c.retry(ctx, cmd, func() (int, error) {
		return c.request(cmd, args...)
	})
	return ctxErr(ctx, err)
}

// ctxErr prefers the context error over the deadline error it caused.
func ctxErr(ctx context.Context, err error) error {
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
