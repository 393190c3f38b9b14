// Package session runs the per-connection protocol state machine.
//
// A Handler owns one client connection. It reads command lines, applies them
// to the shared registries and writes the replies. When the connection ends
// for any reason the handler releases whatever the session still holds: the
// locked section, if editing, and the user's online marker.
package session

import (
	"context"
	"errors"
	"io"
	"net"
	"net/netip"
	"sync"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/logging"
	"github.com/dmitrijs2005/turing/internal/protocol"
	"github.com/dmitrijs2005/turing/internal/server/documents"
	"github.com/dmitrijs2005/turing/internal/server/metrics"
	"github.com/dmitrijs2005/turing/internal/server/models"
	"github.com/dmitrijs2005/turing/internal/server/users"
)

type State int

const (
	StateIdle State = iota
	StateAuthenticated
	StateEditing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthenticated:
		return "authenticated"
	case StateEditing:
		return "editing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// AddressAllocator hands out chat channel addresses.
type AddressAllocator interface {
	Next() (netip.Addr, error)
}

// UserRegistry is the part of the user registry a session works with.
// *users.Service implements it.
type UserRegistry interface {
	Get(userName string) (*models.User, bool)
	Login(userName string, password []byte, endpoint net.Addr) error
	Logout(userName string) error
	AddDocumentHandle(userName string, h models.Handle) error
	ShareDocument(userName string, h models.Handle) error
	ClearShareNotice(userName string) (bool, error)
	Handles(userName string) ([]models.Handle, error)
}

var _ UserRegistry = (*users.Service)(nil)

// Services are the process-wide components shared by all sessions.
type Services struct {
	Users     UserRegistry
	Documents *documents.Service
	Addresses AddressAllocator
	Metrics   *metrics.Metrics
	// MaxSectionSize bounds end-edit uploads in bytes. Zero means
	// common.MaxSectionSize.
	MaxSectionSize int64
}

func (s *Services) maxSectionSize() int64 {
	if s.MaxSectionSize > 0 {
		return s.MaxSectionSize
	}
	return common.MaxSectionSize
}

type Handler struct {
	svc    *Services
	rwc    io.ReadWriteCloser
	conn   *protocol.Conn
	remote net.Addr
	logger logging.Logger

	state    State
	userName string
	editing  models.Handle
	section  int

	closeOnce sync.Once
}

func NewHandler(rwc io.ReadWriteCloser, remote net.Addr, svc *Services, logger logging.Logger) *Handler {
	remoteStr := ""
	if remote != nil {
		remoteStr = remote.String()
	}
	return &Handler{
		svc:    svc,
		rwc:    rwc,
		conn:   protocol.NewConn(rwc),
		remote: remote,
		logger: logger.With("session", uuid.NewString(), "remote", remoteStr),
	}
}

// State returns the current protocol state. It must not be called
// concurrently with Serve.
func (h *Handler) State() State {
	return h.state
}

// Serve processes commands until the client logs out, the connection fails
// or a login is refused. It always leaves the session closed and recovered.
func (h *Handler) Serve(ctx context.Context) {
	h.svc.Metrics.SessionOpened()
	defer h.svc.Metrics.SessionClosed()
	defer h.Close(ctx)

	h.logger.Info(ctx, "session started")

	for h.state != StateClosed {
		line, err := h.conn.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				h.logger.Info(ctx, "client disconnected", "state", h.state)
			} else {
				h.logger.Warn(ctx, "read failed", "state", h.state, "error", err)
			}
			return
		}

		req := protocol.ParseRequest(line)
		if err := h.dispatch(ctx, req); err != nil {
			h.logger.Warn(ctx, "session aborted", "command", req.Command, "error", err)
			return
		}
	}
}

// Close runs recovery and releases the connection. Only the first call has
// any effect. It must not run concurrently with Serve.
func (h *Handler) Close(ctx context.Context) {
	h.closeOnce.Do(func() {
		final := h.state
		h.releaseSection(ctx)
		h.signOff(ctx)
		h.state = StateClosed
		h.svc.Metrics.Recovered(final.String())

		if err := h.rwc.Close(); err != nil {
			h.logger.Debug(ctx, "close failed", "error", err)
		}
		h.logger.Info(ctx, "session closed", "state", final)
	})
}

func (h *Handler) dispatch(ctx context.Context, req protocol.Request) error {
	if h.userName != "" {
		if err := h.deliverShareNotice(ctx); err != nil {
			return err
		}
	}

	h.logger.Debug(ctx, "command", "command", req.Command, "args", len(req.Args))

	switch req.Command {
	case protocol.CmdLogin:
		return h.login(ctx, req.Args)
	case protocol.CmdLogout:
		return h.logout(ctx)
	case protocol.CmdCreate:
		return h.create(ctx, req.Args)
	case protocol.CmdShare:
		return h.share(ctx, req.Args)
	case protocol.CmdList:
		return h.list(ctx)
	case protocol.CmdShow:
		return h.show(ctx, req.Args)
	case protocol.CmdEdit:
		return h.edit(ctx, req.Args)
	case protocol.CmdEndEdit:
		return h.endEdit(ctx)
	default:
		return h.reply("unknown", protocol.StatusMalformed)
	}
}

// reply writes the status line of a command and counts it.
func (h *Handler) reply(command string, status int) error {
	h.svc.Metrics.CommandHandled(command, status)
	return h.conn.WriteStatus(status)
}

// deliverShareNotice sends the share notice if one is pending. The notice
// goes out only when this session's clearing of the flag committed.
func (h *Handler) deliverShareNotice(ctx context.Context) error {
	delivered, err := h.svc.Users.ClearShareNotice(h.userName)
	if err != nil {
		h.logger.Warn(ctx, "share notice check failed", "error", err)
		return nil
	}
	if !delivered {
		return nil
	}
	return h.conn.WriteStatus(protocol.StatusShareNotice)
}

// releaseSection clears the lock held by an editing session. Clearing an
// already cleared lock is a no-op.
func (h *Handler) releaseSection(ctx context.Context) {
	if h.state != StateEditing {
		return
	}
	released, err := h.svc.Documents.ReleaseSection(h.editing, h.section)
	if err != nil {
		h.logger.Error(ctx, "section release failed", "document", h.editing, "section", h.section, "error", err)
	}
	if released {
		h.svc.Metrics.SectionReleased()
		h.logger.Info(ctx, "section released", "document", h.editing, "section", h.section)
	}
	h.state = StateAuthenticated
	h.editing = models.Handle{}
	h.section = 0
}

// signOff marks the session's user offline.
func (h *Handler) signOff(ctx context.Context) {
	if h.userName == "" {
		return
	}
	if err := h.svc.Users.Logout(h.userName); err != nil {
		h.logger.Error(ctx, "logout failed", "user", h.userName, "error", err)
	}
	h.userName = ""
}
