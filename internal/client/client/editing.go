package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dmitrijs2005/turing/internal/protocol"
)

// Chooser picks one of several documents named document by the index of its
// author. Returning false declines.
type Chooser func(document string, authors []string) (int, bool)

// Edit describes the section locked by a successful Edit.
type Edit struct {
	Document string
	Author   string
	Section  int
	Sections int
	Path     string
	Chat     netip.Addr
}

// selection remembers the chosen author so retries do not ask again.
type selection struct {
	choose Chooser
	author string
}

func (s *selection) index(document string, authors []string) int {
	if s.author != "" {
		if i := slices.Index(authors, s.author); i >= 0 {
			return i
		}
	}

	var (
		i  int
		ok bool
	)
	switch {
	case s.choose != nil:
		i, ok = s.choose(document, authors)
	case len(authors) == 1:
		i, ok = 0, true
	}
	if !ok || i < 0 || i >= len(authors) {
		return -1
	}
	s.author = authors[i]
	return i
}

// pick sends a show or edit request and runs the selection exchange. It
// returns the status that follows the choice.
func (c *Client) pick(cmd, document string, sel *selection, args ...any) (int, error) {
	n, err := c.request(cmd, args...)
	if err != nil || n < 0 {
		return n, err
	}
	if n == 0 {
		return 0, fmt.Errorf("%s %s: %w", cmd, document, ErrNoDocument)
	}

	authors := make([]string, n)
	for i := range authors {
		if authors[i], err = c.conn.ReadLine(); err != nil {
			return 0, err
		}
	}

	choice := sel.index(document, authors)
	if err := c.conn.WriteStatus(choice); err != nil {
		return 0, err
	}
	if choice < 0 {
		return 0, fmt.Errorf("%s %s: %w", cmd, document, ErrDeclined)
	}
	return c.status()
}

func (c *Client) unitPath(document string, section, count int) string {
	return filepath.Join(c.dir, protocol.UnitName(document, section, count))
}

// download stores the next section frame as a local unit file. The frame is
// always consumed; a local failure is reported wrapped in ErrLocalFile.
func (c *Client) download(document string, section, count int) (string, error) {
	path := c.unitPath(document, section, count)

	f, ferr := os.Create(path)
	var dst io.Writer = io.Discard
	if ferr == nil {
		dst = f
	}

	_, err := c.conn.ReceiveSection(dst)
	if f != nil {
		if cerr := f.Close(); ferr == nil {
			ferr = cerr
		}
	}
	if err != nil {
		return "", err
	}
	if ferr != nil {
		return "", fmt.Errorf("%w %s: %w", ErrLocalFile, path, ferr)
	}
	return path, nil
}

// Show downloads one section, or the whole document when section is 0, and
// returns the paths written.
func (c *Client) Show(ctx context.Context, document string, section int, choose Chooser) ([]string, error) {
	defer c.bind(ctx)()

	args := []any{document}
	if section > 0 {
		args = append(args, section)
	}
	sel := &selection{choose: choose}
	count, err := c.retry(ctx, protocol.CmdShow, func() (int, error) {
		return c.pick(protocol.CmdShow, document, sel, args...)
	})
	if err != nil {
		return nil, ctxErr(ctx, err)
	}

	first, last := 1, count
	if section > 0 {
		first, last = section, section
	}

	var (
		paths []string
		local error
	)
	for i := first; i <= last; i++ {
		path, err := c.download(document, i, count)
		switch {
		case errors.Is(err, ErrLocalFile):
			local = errors.Join(local, err)
		case err != nil:
			return nil, ctxErr(ctx, err)
		default:
			paths = append(paths, path)
		}
	}
	return paths, local
}

// Edit locks a section, downloads it and returns the chat address of the
// document. Only one section can be edited at a time.
func (c *Client) Edit(ctx context.Context, document string, section int, choose Chooser) (Edit, error) {
	if c.editing != nil {
		return Edit{}, ErrEditing
	}
	defer c.bind(ctx)()

	sel := &selection{choose: choose}
	count, err := c.retry(ctx, protocol.CmdEdit, func() (int, error) {
		return c.pick(protocol.CmdEdit, document, sel, document, section)
	})
	if err != nil {
		return Edit{}, ctxErr(ctx, err)
	}

	_, derr := c.download(document, section, count)
	if derr != nil && !errors.Is(derr, ErrLocalFile) {
		return Edit{}, ctxErr(ctx, derr)
	}

	line, err := c.conn.ReadLine()
	if err != nil {
		return Edit{}, ctxErr(ctx, err)
	}
	chat, err := netip.ParseAddr(strings.TrimSpace(line))
	if err != nil {
		return Edit{}, fmt.Errorf("chat address %q: %w", line, err)
	}

	e := Edit{
		Document: document,
		Author:   sel.author,
		Section:  section,
		Sections: count,
		Path:     c.unitPath(document, section, count),
		Chat:     chat,
	}
	c.editing = &e
	return e, derr
}

// EndEdit uploads the local copy of the edited section and releases the
// lock. If the local copy cannot be read nothing is sent and the section
// stays locked.
func (c *Client) EndEdit(ctx context.Context) error {
	if c.editing == nil {
		return ErrNotEditing
	}
	e := *c.editing

	f, err := os.Open(e.Path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalFile, err)
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLocalFile, err)
	}

	defer c.bind(ctx)()

	_, err = c.retry(ctx, protocol.CmdEndEdit, func() (int, error) {
		return c.request(protocol.CmdEndEdit)
	})
	if err != nil {
		if _, ok := Code(err); ok {
			c.editing = nil
		}
		return ctxErr(ctx, err)
	}

	if err := c.conn.SendSection(f, st.Size()); err != nil {
		return ctxErr(ctx, err)
	}
	c.editing = nil
	return nil
}
