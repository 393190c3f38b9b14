package client

import (
	"context"
	"strings"

	"github.com/dmitrijs2005/turing/internal/protocol"
)

// Login authenticates the connection. After a wrong password, an unknown
// user or a user already online the server closes the connection.
func (c *Client) Login(ctx context.Context, user, password string) error {
	return c.simple(ctx, protocol.CmdLogin, user, password)
}

// Logout ends the session. A section being edited is released by the server
// without uploading anything.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.simple(ctx, protocol.CmdLogout); err != nil {
		return err
	}
	c.editing = nil
	return nil
}

// Create makes a document with the given number of empty sections.
func (c *Client) Create(ctx context.Context, document string, sections int) error {
	return c.simple(ctx, protocol.CmdCreate, document, sections)
}

// Share grants user co-author access to one of the caller's documents.
func (c *Client) Share(ctx context.Context, document, user string) error {
	return c.simple(ctx, protocol.CmdShare, document, user)
}

// DocumentInfo is one list entry as the five lines sent by the server.
type DocumentInfo [5]string

func (d DocumentInfo) field(i int) string {
	_, v, _ := strings.Cut(d[i], ":")
	return strings.TrimSpace(v)
}

func (d DocumentInfo) Name() string   { return d.field(0) }
func (d DocumentInfo) Author() string { return d.field(1) }

// List returns every document the user can access.
func (c *Client) List(ctx context.Context) ([]DocumentInfo, error) {
	defer c.bind(ctx)()

	n, err := c.retry(ctx, protocol.CmdList, func() (int, error) {
		return c.request(protocol.CmdList)
	})
	if err != nil {
		return nil, ctxErr(ctx, err)
	}

	docs := make([]DocumentInfo, n)
	for i := range docs {
		for j := range docs[i] {
			if docs[i][j], err = c.conn.ReadLine(); err != nil {
				return nil, ctxErr(ctx, err)
			}
		}
	}
	return docs, nil
}
