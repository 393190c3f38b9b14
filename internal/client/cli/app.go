package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/turing/internal/client/chat"
	"github.com/dmitrijs2005/turing/internal/client/client"
	"github.com/dmitrijs2005/turing/internal/client/config"
	"github.com/dmitrijs2005/turing/internal/filex"
)

// session is the part of client.Client driven by the App.
type session interface {
	Login(ctx context.Context, user, password string) error
	Logout(ctx context.Context) error
	Create(ctx context.Context, document string, sections int) error
	Share(ctx context.Context, document, user string) error
	List(ctx context.Context) ([]client.DocumentInfo, error)
	Show(ctx context.Context, document string, section int, choose client.Chooser) ([]string, error)
	Edit(ctx context.Context, document string, section int, choose client.Chooser) (client.Edit, error)
	EndEdit(ctx context.Context) error
	Close() error
}

type registrar interface {
	Register(ctx context.Context, user string, password []byte) error
	Close() error
}

type chatRoom interface {
	Send(text string) error
	History() []string
	Close() error
}

type App struct {
	config    *config.Config
	reader    *bufio.Reader
	out       io.Writer
	registrar registrar
	dial      func(ctx context.Context) (session, error)
	joinChat  func(ctx context.Context, group netip.Addr, user string) (chatRoom, error)

	conn     session
	userName string
	edit     *client.Edit
	chat     chatRoom
}

func NewApp(c *config.Config) (*App, error) {
	base, name := "", c.DownloadDir
	if filepath.IsAbs(name) {
		base, name = name, ""
	}
	dir, err := filex.EnsureSubDir(base, name)
	if err != nil {
		return nil, err
	}

	reg, err := client.NewRegistrationClient(c.RegistrationEndpointAddr)
	if err != nil {
		return nil, err
	}

	a := &App{
		config:    c,
		reader:    bufio.NewReader(os.Stdin),
		out:       os.Stdout,
		registrar: reg,
	}
	a.dial = func(ctx context.Context) (session, error) {
		cl, err := client.Dial(ctx, c.ServerEndpointAddr,
			client.WithDownloadDir(dir),
			client.WithNoticeHandler(a.notice),
		)
		if err != nil {
			return nil, err
		}
		return cl, nil
	}
	a.joinChat = func(ctx context.Context, group netip.Addr, user string) (chatRoom, error) {
		ch, err := chat.Join(ctx, group, c.ChatPort, user)
		if err != nil {
			return nil, err
		}
		return ch, nil
	}
	return a, nil
}

func (a *App) Run(ctx context.Context) {
	defer a.Close()
	a.Root(ctx)
}

// Close drops the connection, which makes the server release any locked
// section, and leaves the chat.
func (a *App) Close() {
	a.leaveEdit()
	a.disconnect()
	if a.registrar != nil {
		_ = a.registrar.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.conn != nil
}

func (a *App) isEditing() bool {
	return a.edit != nil
}

func (a *App) currentUser() string {
	return a.userName
}

func (a *App) say(format string, args ...any) {
	fmt.Fprintf(a.out, format+"\n", args...)
}

func (a *App) fail(cmd string, err error) error {
	a.say("#ERROR: %s", describe(cmd, err))
	return err
}

func (a *App) notice() {
	a.say("")
	a.say("You have been invited to edit new documents.")
	a.say("Run 'list' to see them.")
	a.say("")
}

// timed bounds exchanges that never wait for user input.
func (a *App) timed(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) disconnect() {
	if a.conn != nil {
		_ = a.conn.Close()
	}
	a.conn = nil
	a.userName = ""
}

func (a *App) leaveEdit() {
	if a.chat != nil {
		_ = a.chat.Close()
	}
	a.chat = nil
	a.edit = nil
}

var errUsage = errors.New("usage")

func (a *App) usage(text string) error {
	a.say("usage: %s", text)
	return errUsage
}

func (a *App) getStatus() string {
	s := a.userName
	if a.edit != nil {
		s = fmt.Sprintf("%s editing %s#%d", s, a.edit.Document, a.edit.Section)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}
