package client

import (
	"errors"
	"fmt"
)

var (
	ErrUnavailable       = errors.New("server unavailable")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrAlreadyRegistered = errors.New("user already registered")
	ErrContention        = errors.New("server kept reporting contention")
	ErrNoDocument        = errors.New("no such document")
	ErrDeclined          = errors.New("selection declined")
	ErrNotEditing        = errors.New("no section is being edited")
	ErrEditing           = errors.New("a section is already being edited")
	ErrLocalFile         = errors.New("local file")
)

// StatusError is a negative status returned by the server for a command.
type StatusError struct {
	Command string
	Code    int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: server status %d", e.Command, e.Code)
}

// Code returns the server status carried by err, if any.
func Code(err error) (int, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code, true
	}
	return 0, false
}
