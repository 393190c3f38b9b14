package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var (
	ErrBadStatus     = errors.New("malformed status line")
	ErrBadLength     = errors.New("malformed section length")
	ErrShortTransfer = errors.New("section transfer ended early")
)

// Conn frames lines and section payloads over a byte stream.
//
// Lines and payloads share one buffered reader so bytes that arrive ahead of
// a payload are never lost between the two.
type Conn struct {
	r *bufio.Reader
	w *bufio.Writer
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{r: bufio.NewReader(rw), w: bufio.NewWriter(rw)}
}

// ReadLine returns the next line without its terminator. io.EOF is returned
// only when the stream ends before any byte of a new line.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.r.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			err = nil
		} else {
			return "", err
		}
	}
	return strings.TrimRight(line, "\r\n"), err
}

// WriteLine sends s followed by a newline.
func (c *Conn) WriteLine(s string) error {
	if _, err := c.w.WriteString(s); err != nil {
		return err
	}
	if err := c.w.WriteByte('\n'); err != nil {
		return err
	}
	return c.w.Flush()
}

func (c *Conn) WriteStatus(code int) error {
	return c.WriteLine(strconv.Itoa(code))
}

// ReadStatus reads a status line.
func (c *Conn) ReadStatus() (int, error) {
	line, err := c.ReadLine()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadStatus, line)
	}
	return n, nil
}
