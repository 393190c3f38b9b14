package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"

	"github.com/dmitrijs2005/turing/internal/client/client"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

func (a *App) Create(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("create <doc> <sections>")
	}
	sections, err := strconv.Atoi(args[1])
	if err != nil || sections <= 0 {
		return a.usage("create <doc> <sections>, sections must be a positive number")
	}

	ctx, cancel := a.timed(ctx)
	defer cancel()

	if err := a.conn.Create(ctx, args[0], sections); err != nil {
		return a.fail(protocol.CmdCreate, err)
	}
	a.say("[Document: %s - sections: %d] created.", args[0], sections)
	return nil
}

func (a *App) Share(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("share <doc> <username>")
	}

	ctx, cancel := a.timed(ctx)
	defer cancel()

	if err := a.conn.Share(ctx, args[0], args[1]); err != nil {
		return a.fail(protocol.CmdShare, err)
	}
	a.say("%s shared with %s.", args[0], args[1])
	return nil
}

func (a *App) List(ctx context.Context) error {
	ctx, cancel := a.timed(ctx)
	defer cancel()

	docs, err := a.conn.List(ctx)
	if err != nil {
		return a.fail(protocol.CmdList, err)
	}
	if len(docs) == 0 {
		a.say("No documents.")
		return nil
	}
	for _, d := range docs {
		a.say("-----------------------------")
		for _, line := range d {
			a.say("%s", line)
		}
	}
	return nil
}

// Show waits for the user to choose among namesakes, so it is not bounded
// by the request timeout.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return a.usage("show <doc> [section]")
	}
	section := 0
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return a.usage("show <doc> [section], section must be a positive number")
		}
		section = n
	}

	paths, err := a.conn.Show(ctx, args[0], section, a.choose)
	for _, p := range paths {
		a.say("Received %s", filepath.Base(p))
	}
	if err != nil {
		if errors.Is(err, client.ErrLocalFile) {
			a.say("#ERROR: %v", err)
			return err
		}
		return a.fail(protocol.CmdShow, err)
	}
	return nil
}

// choose lists the authors of documents sharing a name and reads the
// user's pick.
func (a *App) choose(document string, authors []string) (int, bool) {
	a.say("Type the number of the document:")
	a.say("")
	for i, author := range authors {
		a.say("  %d) %s - Author: [%s]", i, document, author)
	}
	a.say("")

	text, err := GetSimpleText(a.reader, "", a.out)
	if err != nil {
		return 0, false
	}
	i, err := strconv.Atoi(text)
	if err != nil || i < 0 || i >= len(authors) {
		return 0, false
	}
	return i, true
}
