package protocol

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// SendSection writes one section frame: a line with the byte length followed
// by exactly size raw bytes read from r.
func (c *Conn) SendSection(r io.Reader, size int64) error {
	if _, err := c.w.WriteString(strconv.FormatInt(size, 10) + "\n"); err != nil {
		return err
	}
	n, err := io.CopyN(c.w, r, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: sent %d of %d bytes", ErrShortTransfer, n, size)
		}
		return err
	}
	return c.w.Flush()
}

// ReadSectionHeader reads the length line of a section frame.
func (c *Conn) ReadSectionHeader() (int64, error) {
	line, err := c.ReadLine()
	if err != nil {
		return 0, err
	}
	size, err := strconv.ParseInt(strings.TrimSpace(line), 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadLength, line)
	}
	return size, nil
}

// SectionBody returns a reader over the next size payload bytes. Reading
// past the end of the stream before size bytes yields ErrShortTransfer.
func (c *Conn) SectionBody(size int64) io.Reader {
	return &bodyReader{r: io.LimitReader(c.r, size), left: size}
}

// ReceiveSection reads one complete section frame into dst.
func (c *Conn) ReceiveSection(dst io.Writer) (int64, error) {
	size, err := c.ReadSectionHeader()
	if err != nil {
		return 0, err
	}
	return io.Copy(dst, c.SectionBody(size))
}

type bodyReader struct {
	r    io.Reader
	left int64
}

func (b *bodyReader) Read(p []byte) (int, error) {
	if b.left == 0 {
		return 0, io.EOF
	}
	n, err := b.r.Read(p)
	b.left -= int64(n)
	if errors.Is(err, io.EOF) && b.left > 0 {
		return n, fmt.Errorf("%w: %d bytes missing", ErrShortTransfer, b.left)
	}
	return n, err
}
