package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/protocol"
	"github.com/dmitrijs2005/turing/internal/server/models"
)

// pick resolves a document name the caller can access to a single handle.
// It sends the number of candidates and, if there are any, one author per
// line, then reads the client's zero-based choice. ok is false when nothing
// matched or the client declined; no further reply is sent in that case.
func (h *Handler) pick(ctx context.Context, name string) (handle models.Handle, ok bool, err error) {
	handles, err := h.svc.Users.Handles(h.userName)
	if err != nil {
		return models.Handle{}, false, err
	}
	matches := h.svc.Documents.FindByName(handles, name)

	if err := h.conn.WriteStatus(len(matches)); err != nil {
		return models.Handle{}, false, err
	}
	if len(matches) == 0 {
		return models.Handle{}, false, nil
	}
	for _, m := range matches {
		if err := h.conn.WriteLine(m.Owner); err != nil {
			return models.Handle{}, false, err
		}
	}

	line, err := h.conn.ReadLine()
	if err != nil {
		return models.Handle{}, false, err
	}
	choice, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || choice < 0 || choice >= len(matches) {
		h.logger.Debug(ctx, "selection declined", "document", name, "choice", line)
		return models.Handle{}, false, nil
	}
	return matches[choice], true, nil
}

func (h *Handler) sendSection(ctx context.Context, doc *models.Document, section int) error {
	rc, size, err := h.svc.Documents.OpenSection(ctx, doc, section)
	if err != nil {
		return err
	}
	defer rc.Close()
	return h.conn.SendSection(rc, size)
}

// show streams one section, or every section when none is given. No lock is
// taken.
func (h *Handler) show(ctx context.Context, args []string) error {
	const cmd = protocol.CmdShow

	if h.state == StateIdle {
		return h.reply(cmd, protocol.StatusBadState)
	}
	if len(args) < 1 || len(args) > 2 {
		return h.reply(cmd, protocol.StatusMalformed)
	}

	handle, ok, err := h.pick(ctx, args[0])
	if err != nil || !ok {
		return err
	}

	doc, ok := h.svc.Documents.Get(handle)
	if !ok {
		return h.reply(cmd, protocol.StatusIOError)
	}

	first, last := 1, doc.SectionCount()
	if len(args) == 2 {
		section, err := strconv.Atoi(args[1])
		if err != nil {
			return h.reply(cmd, protocol.StatusMalformed)
		}
		if !doc.ValidSection(section) {
			return h.reply(cmd, protocol.ShowOutOfRange)
		}
		first, last = section, section
	}

	if err := h.reply(cmd, doc.SectionCount()); err != nil {
		return err
	}
	for i := first; i <= last; i++ {
		if err := h.sendSection(ctx, doc, i); err != nil {
			return fmt.Errorf("streaming section %d: %w", i, err)
		}
	}
	return nil
}

// edit locks one section for this session, sends its content and the
// document's chat address. The first edit of a document assigns the
// address.
func (h *Handler) edit(ctx context.Context, args []string) error {
	const cmd = protocol.CmdEdit

	if h.state != StateAuthenticated {
		return h.reply(cmd, protocol.StatusBadState)
	}
	if len(args) != 2 {
		return h.reply(cmd, protocol.StatusMalformed)
	}

	handle, ok, err := h.pick(ctx, args[0])
	if err != nil || !ok {
		return err
	}

	section, err := strconv.Atoi(args[1])
	if err != nil {
		return h.reply(cmd, protocol.StatusMalformed)
	}

	doc, ok := h.svc.Documents.Get(handle)
	if !ok {
		return h.reply(cmd, protocol.StatusIOError)
	}
	next, err := doc.WithSectionLocked(section)
	switch {
	case errors.Is(err, common.ErrSectionOutOfRange):
		return h.reply(cmd, protocol.EditOutOfRange)
	case errors.Is(err, common.ErrSectionLocked):
		return h.reply(cmd, protocol.EditLocked)
	case err != nil:
		return h.reply(cmd, protocol.StatusIOError)
	}

	if !next.Chat.IsValid() {
		addr, err := h.svc.Addresses.Next()
		if err != nil {
			h.logger.Error(ctx, "chat address allocation failed", "document", handle, "error", err)
			return h.reply(cmd, protocol.StatusIOError)
		}
		next.Chat = addr
	}

	if !h.svc.Documents.CompareAndReplace(handle, doc, next) {
		return h.reply(cmd, protocol.StatusContention)
	}

	h.state = StateEditing
	h.editing = handle
	h.section = section
	h.svc.Metrics.SectionLocked()
	h.logger.Info(ctx, "section locked", "document", handle, "section", section)

	if err := h.reply(cmd, next.SectionCount()); err != nil {
		return err
	}
	if err := h.sendSection(ctx, next, section); err != nil {
		return fmt.Errorf("streaming section %d: %w", section, err)
	}
	return h.conn.WriteLine(next.Chat.String())
}

var errUploadTooLarge = errors.New("section upload too large")

// endEdit receives the new content of the locked section, stores it and
// releases the lock.
func (h *Handler) endEdit(ctx context.Context) error {
	const cmd = protocol.CmdEndEdit

	if h.state != StateEditing {
		return h.reply(cmd, protocol.StatusBadState)
	}

	doc, ok := h.svc.Documents.Get(h.editing)
	if !ok || !doc.IsLocked(h.section) {
		h.logger.Warn(ctx, "lock vanished before end-edit", "document", h.editing, "section", h.section)
		h.state = StateAuthenticated
		h.editing = models.Handle{}
		h.section = 0
		return h.reply(cmd, protocol.EndEditRejected)
	}

	if err := h.reply(cmd, doc.SectionCount()); err != nil {
		return err
	}

	size, err := h.conn.ReadSectionHeader()
	if err != nil {
		return err
	}
	// The body cannot be skipped safely, so the session ends here and
	// recovery releases the lock.
	if limit := h.svc.maxSectionSize(); size > limit {
		h.logger.Warn(ctx, "upload rejected", "document", h.editing, "section", h.section, "bytes", size, "limit", limit)
		if err := h.reply(cmd, protocol.StatusMalformed); err != nil {
			return err
		}
		return fmt.Errorf("%w: %d bytes", errUploadTooLarge, size)
	}
	body := h.conn.SectionBody(size)
	if err := h.svc.Documents.WriteSection(ctx, doc, h.section, body, size); err != nil {
		_, _ = io.Copy(io.Discard, body)
		return fmt.Errorf("storing upload: %w", err)
	}

	h.logger.Info(ctx, "section updated", "document", h.editing, "section", h.section, "bytes", size)
	h.releaseSection(ctx)
	return nil
}
