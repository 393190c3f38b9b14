package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	isEditing() bool
	currentUser() string
	Register(ctx context.Context, args []string) error
	Login(ctx context.Context, args []string) error
	Logout(ctx context.Context) error
	Create(ctx context.Context, args []string) error
	Share(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	List(ctx context.Context) error
	Edit(ctx context.Context, args []string) error
	EndEdit(ctx context.Context) error
	Send(ctx context.Context, text string) error
	Receive(ctx context.Context) error
}

const usage = `usage: COMMAND [ARGS...]

commands:
  register <username> [password]  register a user
  login <username> [password]     log in
  logout                          log out

  create <doc> <sections>         create a document
  share <doc> <username>          share a document
  show <doc> [section]            show a section or the whole document
  list                            list documents

  edit <doc> <section>            edit a section
  end-edit                        finish editing the section

  send <msg>                      send a chat message
  receive                         show received chat messages

  exit | quit                     leave`

// runREPL reads commands from reader until EOF or exit/quit and dispatches
// them to a. Commands are refused locally when they cannot apply: session
// commands before login, register/login after it, and everything except
// send, receive and end-edit while a section is being edited.
//
// Errors returned by command handlers are ignored here; handlers report
// their own failures.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("turing %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}

		cmd, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		args := strings.Fields(rest)
		if cmd == "" {
			continue
		}

		switch cmd {
		case "help":
			printlnFn(usage)
			continue
		case "exit", "quit":
			printlnFn("Bye!")
			return
		}

		if !allowed(a, cmd) {
			continue
		}

		switch cmd {
		case "register":
			_ = a.Register(ctx, args)
		case "login":
			_ = a.Login(ctx, args)
		case "logout":
			_ = a.Logout(ctx)
		case "create":
			_ = a.Create(ctx, args)
		case "share":
			_ = a.Share(ctx, args)
		case "show":
			_ = a.Show(ctx, args)
		case "l", "list":
			_ = a.List(ctx)
		case "edit":
			_ = a.Edit(ctx, args)
		case "end-edit":
			_ = a.EndEdit(ctx)
		case "send":
			_ = a.Send(ctx, strings.TrimSpace(rest))
		case "receive":
			_ = a.Receive(ctx)
		default:
			printlnFn("Unknown command:", cmd)
			printlnFn(usage)
		}
	}
}

func allowed(a execIface, cmd string) bool {
	switch cmd {
	case "register", "login":
		if a.isLoggedIn() {
			printlnFn("Operation not permitted: logged in as " + a.currentUser() + ". Log out first.")
			return false
		}
	case "send", "receive", "end-edit":
		if !a.isEditing() {
			printlnFn("Operation not permitted: no section is being edited.")
			return false
		}
	case "logout", "create", "share", "show", "l", "list", "edit":
		if !a.isLoggedIn() {
			printlnFn("Operation not permitted: log in first.")
			return false
		}
		if a.isEditing() {
			printlnFn("Operation not permitted: finish editing with end-edit first.")
			return false
		}
	}
	return true
}
