package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/protocol"
	"github.com/dmitrijs2005/turing/internal/server/models"
)

func (h *Handler) login(ctx context.Context, args []string) error {
	const cmd = protocol.CmdLogin

	if h.state != StateIdle {
		return h.reply(cmd, protocol.StatusBadState)
	}
	if len(args) != 2 {
		return h.reply(cmd, protocol.StatusMalformed)
	}

	userName := args[0]
	err := h.svc.Users.Login(userName, []byte(args[1]), h.remote)
	if err != nil {
		var code int
		switch {
		case errors.Is(err, common.ErrConflict):
			return h.reply(cmd, protocol.StatusContention)
		case errors.Is(err, common.ErrorUnauthorized):
			code = protocol.LoginWrongPassword
		case errors.Is(err, common.ErrorNotFound):
			code = protocol.LoginUnknownUser
		case errors.Is(err, common.ErrAlreadyOnline):
			code = protocol.LoginAlreadyOnline
		default:
			code = protocol.StatusIOError
		}
		h.logger.Info(ctx, "login refused", "user", userName, "error", err)
		h.state = StateClosed
		return h.reply(cmd, code)
	}

	h.userName = userName
	h.state = StateAuthenticated
	h.logger = h.logger.With("user", userName)
	h.logger.Info(ctx, "logged in")

	if err := h.deliverShareNotice(ctx); err != nil {
		return err
	}
	return h.reply(cmd, protocol.StatusOK)
}

func (h *Handler) logout(ctx context.Context) error {
	const cmd = protocol.CmdLogout

	if h.state == StateIdle {
		return h.reply(cmd, protocol.StatusBadState)
	}

	h.releaseSection(ctx)
	h.signOff(ctx)
	h.state = StateClosed
	h.logger.Info(ctx, "logged out")
	return h.reply(cmd, protocol.StatusOK)
}

// create registers the document first and then adds its handle to the
// author's list. If the second step fails the document is removed again.
func (h *Handler) create(ctx context.Context, args []string) error {
	const cmd = protocol.CmdCreate

	if h.state == StateIdle {
		return h.reply(cmd, protocol.StatusBadState)
	}
	if len(args) != 2 || !protocol.ValidName(args[0]) {
		return h.reply(cmd, protocol.StatusMalformed)
	}
	name := args[0]
	count, err := strconv.Atoi(args[1])
	if err != nil || count <= 0 {
		return h.reply(cmd, protocol.StatusMalformed)
	}

	doc, err := h.svc.Documents.Create(ctx, name, h.userName, count)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			if err != common.ErrorAlreadyExists {
				h.logger.Warn(ctx, "storage left behind by a clashing create", "document", name, "error", err)
			}
			return h.reply(cmd, protocol.CreateExists)
		}
		h.logger.Error(ctx, "document allocation failed", "document", name, "error", err)
		return h.reply(cmd, protocol.StatusIOError)
	}

	if err := h.svc.Users.AddDocumentHandle(h.userName, doc.Handle); err != nil {
		if rerr := h.svc.Documents.Delete(ctx, doc.Handle); rerr != nil {
			h.logger.Error(ctx, "create rollback failed", "document", doc.Handle, "error", rerr)
			return h.reply(cmd, protocol.StatusIOError)
		}
		switch {
		case errors.Is(err, common.ErrConflict):
			return h.reply(cmd, protocol.StatusContention)
		case errors.Is(err, common.ErrorAlreadyExists):
			return h.reply(cmd, protocol.CreateExists)
		}
		h.logger.Error(ctx, "document handle not recorded", "document", doc.Handle, "error", err)
		return h.reply(cmd, protocol.StatusIOError)
	}

	h.logger.Info(ctx, "document created", "document", doc.Handle, "sections", count)
	return h.reply(cmd, protocol.StatusOK)
}

// share gives target access to one of the caller's documents: the handle is
// added to target's list with the share notice raised, then target becomes
// a co-author.
func (h *Handler) share(ctx context.Context, args []string) error {
	const cmd = protocol.CmdShare

	if h.state == StateIdle {
		return h.reply(cmd, protocol.StatusBadState)
	}
	if len(args) != 2 {
		return h.reply(cmd, protocol.StatusMalformed)
	}
	name, target := args[0], args[1]

	targetUser, ok := h.svc.Users.Get(target)
	if !ok {
		return h.reply(cmd, protocol.ShareUnknownUser)
	}
	handle := models.Handle{Name: name, Owner: h.userName}
	if targetUser.HasHandle(handle) {
		return h.reply(cmd, protocol.ShareAlreadyShared)
	}
	if _, ok := h.svc.Documents.Get(handle); !ok {
		return h.reply(cmd, protocol.ShareNoDocument)
	}

	if err := h.svc.Users.ShareDocument(target, handle); err != nil {
		switch {
		case errors.Is(err, common.ErrConflict):
			return h.reply(cmd, protocol.StatusContention)
		case errors.Is(err, common.ErrorAlreadyExists):
			return h.reply(cmd, protocol.ShareAlreadyShared)
		case errors.Is(err, common.ErrorNotFound):
			return h.reply(cmd, protocol.ShareUnknownUser)
		}
		h.logger.Error(ctx, "share failed", "document", handle, "target", target, "error", err)
		return h.reply(cmd, protocol.StatusIOError)
	}

	if err := h.svc.Documents.AddCoauthor(handle, target); err != nil {
		h.logger.Error(ctx, "co-author not recorded", "document", handle, "target", target, "error", err)
		return h.reply(cmd, protocol.StatusIOError)
	}

	h.logger.Info(ctx, "document shared", "document", handle, "target", target)
	return h.reply(cmd, protocol.StatusOK)
}

// list sends the number of accessible documents followed by five lines per
// document.
func (h *Handler) list(ctx context.Context) error {
	const cmd = protocol.CmdList

	if h.state == StateIdle {
		return h.reply(cmd, protocol.StatusBadState)
	}

	handles, err := h.svc.Users.Handles(h.userName)
	if err != nil {
		h.logger.Error(ctx, "handle lookup failed", "error", err)
		return h.reply(cmd, protocol.StatusIOError)
	}

	docs := make([]*models.Document, 0, len(handles))
	for _, hd := range handles {
		if d, ok := h.svc.Documents.Get(hd); ok {
			docs = append(docs, d)
		}
	}

	if err := h.reply(cmd, len(docs)); err != nil {
		return err
	}
	for _, d := range docs {
		for _, line := range describe(d) {
			if err := h.conn.WriteLine(line); err != nil {
				return err
			}
		}
	}
	return nil
}

func describe(d *models.Document) [5]string {
	var editing strings.Builder
	editing.WriteString("{ ")
	for _, s := range d.LockedSections() {
		fmt.Fprintf(&editing, "%d ", s)
	}
	editing.WriteString("}")

	return [5]string{
		"Document: " + d.Name(),
		"Author:    " + d.Author(),
		"Coauthors: [" + strings.Join(d.Coauthors, ", ") + "]",
		"#Sections: " + strconv.Itoa(d.SectionCount()),
		"Sections being edited: " + editing.String(),
	}
}
