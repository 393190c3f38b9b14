// Package chat is the group chat of the users editing one document. Each
// document has an IPv4 multicast address; every message is one datagram
// "[user]: text" sent to that address.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"sync"

	"golang.org/x/net/ipv4"
)

const (
	DefaultPort = 9899
	maxDatagram = 8 << 10
)

var (
	ErrNotMulticast = errors.New("not an IPv4 multicast address")
	ErrTooLong      = errors.New("message does not fit in one datagram")
)

// Channel receives and sends messages of one document chat. Received
// messages are kept in arrival order until the channel is closed.
type Channel struct {
	pc    net.PacketConn
	dst   net.Addr
	user  string
	leave func() error

	mu      sync.Mutex
	history []string

	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Join binds to group:port and subscribes to the group. Several processes
// on one host can join the same group.
func Join(ctx context.Context, group netip.Addr, port int, user string) (*Channel, error) {
	if !group.Is4() || !group.IsMulticast() {
		return nil, fmt.Errorf("%s: %w", group, ErrNotMulticast)
	}

	lc := net.ListenConfig{Control: reuseAddr}
	pc, err := lc.ListenPacket(ctx, "udp4", net.JoinHostPort(group.String(), strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", group, err)
	}

	p := ipv4.NewPacketConn(pc)
	g := &net.UDPAddr{IP: net.IP(group.AsSlice()), Port: port}
	if err := p.JoinGroup(nil, g); err != nil {
		pc.Close()
		return nil, fmt.Errorf("join %s: %w", group, err)
	}
	_ = p.SetMulticastLoopback(true)

	c := newChannel(pc, g, user)
	c.leave = func() error { return p.LeaveGroup(nil, g) }
	return c, nil
}

func newChannel(pc net.PacketConn, dst net.Addr, user string) *Channel {
	c := &Channel{
		pc:    pc,
		dst:   dst,
		user:  user,
		leave: func() error { return nil },
		done:  make(chan struct{}),
	}
	go c.listen()
	return c
}

func (c *Channel) listen() {
	defer close(c.done)
	buf := make([]byte, maxDatagram)
	for {
		n, _, err := c.pc.ReadFrom(buf)
		if err != nil {
			return
		}
		c.mu.Lock()
		c.history = append(c.history, string(buf[:n]))
		c.mu.Unlock()
	}
}

// Format renders a chat line as sent on the wire.
func Format(user, text string) string {
	return "[" + user + "]: " + text
}

// Send posts text to every member of the chat, the sender included.
func (c *Channel) Send(text string) error {
	payload := []byte(Format(c.user, text))
	if len(payload) > maxDatagram {
		return ErrTooLong
	}
	_, err := c.pc.WriteTo(payload, c.dst)
	return err
}

// History returns the messages received so far.
func (c *Channel) History() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.history))
	copy(out, c.history)
	return out
}

// Close leaves the group and stops receiving.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = errors.Join(c.leave(), c.pc.Close())
		<-c.done
	})
	return c.closeErr
}
