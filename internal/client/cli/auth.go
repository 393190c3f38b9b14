package cli

import (
	"context"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

// credentials takes the user name and password from args, prompting for the
// password when it is missing.
func (a *App) credentials(args []string, usage string) (string, []byte, error) {
	switch len(args) {
	case 1:
		pw, err := getPassword(a.out)
		if err != nil {
			a.say("#ERROR: %v", err)
			return "", nil, err
		}
		return args[0], pw, nil
	case 2:
		return args[0], []byte(args[1]), nil
	default:
		return "", nil, a.usage(usage)
	}
}

func (a *App) Register(ctx context.Context, args []string) error {
	user, pw, err := a.credentials(args, "register <username> [password]")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	ctx, cancel := a.timed(ctx)
	defer cancel()

	if err := a.registrar.Register(ctx, user, pw); err != nil {
		a.say("#ERROR: registration of %s failed", user)
		return a.fail("register", err)
	}
	a.say("%s: registered successfully.", user)
	return nil
}

// Login opens a new connection and authenticates it. The connection is
// dropped again if the login fails.
func (a *App) Login(ctx context.Context, args []string) error {
	user, pw, err := a.credentials(args, "login <username> [password]")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	ctx, cancel := a.timed(ctx)
	defer cancel()

	conn, err := a.dial(ctx)
	if err != nil {
		return a.fail(protocol.CmdLogin, err)
	}
	if err := conn.Login(ctx, user, string(pw)); err != nil {
		_ = conn.Close()
		return a.fail(protocol.CmdLogin, err)
	}

	a.conn = conn
	a.userName = user
	a.say("%s: logged in.", user)
	return nil
}

func (a *App) Logout(ctx context.Context) error {
	ctx, cancel := a.timed(ctx)
	defer cancel()

	user := a.userName
	err := a.conn.Logout(ctx)
	a.leaveEdit()
	a.disconnect()
	if err != nil {
		return a.fail(protocol.CmdLogout, err)
	}
	a.say("%s: disconnected.", user)
	return nil
}
