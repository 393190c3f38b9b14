package cli

import (
	"errors"

	"github.com/dmitrijs2005/turing/internal/client/client"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

var commandMessages = map[string]map[int]string{
	protocol.CmdLogin: {
		protocol.LoginWrongPassword: "wrong password",
		protocol.LoginUnknownUser:   "unknown user",
		protocol.LoginAlreadyOnline: "user already online",
	},
	protocol.CmdCreate: {
		protocol.CreateExists: "document already exists",
	},
	protocol.CmdShare: {
		protocol.ShareUnknownUser:   "user does not exist",
		protocol.ShareAlreadyShared: "document already shared with that user",
		protocol.ShareNoDocument:    "you cannot share this document or it does not exist",
	},
	protocol.CmdShow: {
		protocol.ShowOutOfRange: "section does not exist",
	},
	protocol.CmdEdit: {
		protocol.EditLocked:     "section is being edited by another user",
		protocol.EditOutOfRange: "section does not exist",
	},
	protocol.CmdEndEdit: {
		protocol.EndEditRejected: "the lock was lost, changes were not uploaded",
	},
}

var sharedMessages = map[int]string{
	protocol.StatusBadState:   "operation not allowed now",
	protocol.StatusIOError:    "server I/O error, contact support",
	protocol.StatusContention: "concurrency problem, try again",
	protocol.StatusMalformed:  "malformed input",
}

// describe turns an error of cmd into the message shown to the user.
func describe(cmd string, err error) string {
	if code, ok := client.Code(err); ok {
		if m, ok := commandMessages[cmd][code]; ok {
			return m
		}
		if m, ok := sharedMessages[code]; ok {
			return m
		}
		return err.Error()
	}

	switch {
	case errors.Is(err, client.ErrContention):
		return sharedMessages[protocol.StatusContention]
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable"
	case errors.Is(err, client.ErrNoDocument):
		if cmd == protocol.CmdEdit {
			return "document does not exist or you cannot edit it"
		}
		return "document not found"
	case errors.Is(err, client.ErrDeclined):
		return "choice not allowed"
	case errors.Is(err, client.ErrAlreadyRegistered):
		return "user already registered"
	case errors.Is(err, client.ErrInvalidArgument):
		return "invalid user name or password"
	default:
		return err.Error()
	}
}
