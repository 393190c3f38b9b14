package cli

import (
	"context"
	"errors"
	"strconv"

	"github.com/dmitrijs2005/turing/internal/client/client"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

// Edit locks a section, downloads it and joins the document chat. Like Show
// it may wait for a choice, so it runs without the request timeout.
func (a *App) Edit(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return a.usage("edit <doc> <section>")
	}
	section, err := strconv.Atoi(args[1])
	if err != nil || section <= 0 {
		return a.usage("edit <doc> <section>, section must be a positive number")
	}

	e, err := a.conn.Edit(ctx, args[0], section, a.choose)
	if err != nil && !errors.Is(err, client.ErrLocalFile) {
		return a.fail(protocol.CmdEdit, err)
	}
	a.edit = &e
	if err != nil {
		a.say("#ERROR: %v", err)
		a.say("The section is locked; put its content in %s before end-edit.", e.Path)
	} else {
		a.say("Received %s", e.Path)
	}

	room, cerr := a.joinChat(ctx, e.Chat, a.userName)
	if cerr != nil {
		a.say("#ERROR: chat %s unavailable: %v", e.Chat, cerr)
	} else {
		a.chat = room
	}

	a.say(">> You can now edit the section.")
	a.say(">> Available: send <msg>, receive, end-edit")
	a.say(">> Run end-edit to upload your changes.")
	return nil
}

func (a *App) EndEdit(ctx context.Context) error {
	ctx, cancel := a.timed(ctx)
	defer cancel()

	err := a.conn.EndEdit(ctx)
	if err != nil {
		if _, ok := client.Code(err); ok {
			a.leaveEdit()
		}
		if errors.Is(err, client.ErrLocalFile) {
			a.say("#ERROR: %v", err)
			return err
		}
		return a.fail(protocol.CmdEndEdit, err)
	}
	a.leaveEdit()
	a.say("Section updated.")
	return nil
}

func (a *App) Send(_ context.Context, text string) error {
	if text == "" {
		return a.usage("send <msg>")
	}
	if a.chat == nil {
		a.say("#ERROR: chat unavailable")
		return errChatUnavailable
	}
	if err := a.chat.Send(text); err != nil {
		a.say("#ERROR: %v", err)
		return err
	}
	return nil
}

func (a *App) Receive(context.Context) error {
	if a.chat == nil {
		a.say("#ERROR: chat unavailable")
		return errChatUnavailable
	}
	a.say("\t--- Chat: %s ---\t", a.edit.Document)
	a.say("")
	for _, m := range a.chat.History() {
		a.say("%s", m)
	}
	return nil
}

var errChatUnavailable = errors.New("chat unavailable")
