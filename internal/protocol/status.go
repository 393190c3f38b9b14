// Package protocol implements the line-oriented wire protocol spoken between
// the editing client and the server.
//
// Every request is one line of whitespace-separated tokens. Every reply
// starts with one line holding a signed decimal status. Non-negative values
// mean success and may carry a count; negative values are failure codes
// whose meaning depends on the command, except for the shared ones below.
package protocol

// Shared status codes.
const (
	StatusOK = 0
	// StatusBadState means the command is not valid in the session's state.
	StatusBadState = -5
	// StatusShareNotice announces that a document was shared with the user.
	// It precedes the reply to the command that triggered it.
	StatusShareNotice = -6
	StatusIOError     = -7
	// StatusContention means a concurrent update won; the request may be
	// retried unchanged.
	StatusContention = -8
	StatusMalformed  = -9
)

// login
const (
	LoginWrongPassword = -1
	LoginUnknownUser   = -2
	LoginAlreadyOnline = -3
)

// create
const (
	CreateExists = -1
)

// share
const (
	ShareUnknownUser   = -1
	ShareAlreadyShared = -2
	ShareNoDocument    = -3
)

// show
const (
	ShowOutOfRange = -2
)

// edit
const (
	EditLocked     = -2
	EditOutOfRange = -3
)

// end-edit
const (
	EndEditRejected = -2
)

// registration
const (
	RegisterOK     = 0
	RegisterExists = -1
)
