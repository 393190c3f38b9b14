package protocol

import (
	"fmt"
	"strings"
)

const (
	CmdLogin   = "login"
	CmdLogout  = "logout"
	CmdCreate  = "create"
	CmdShare   = "share"
	CmdShow    = "show"
	CmdList    = "list"
	CmdEdit    = "edit"
	CmdEndEdit = "end-edit"
)

// RegistrationSubscribeMethod is the full gRPC method name of the
// registration service.
const RegistrationSubscribeMethod = "/turing.registration.Registration/Subscribe"

// Request fields of Subscribe.
const (
	RegistrationFieldUsername = "username"
	RegistrationFieldPassword = "password"
)

// Request is one parsed command line.
type Request struct {
	Command string
	Args    []string
}

// ParseRequest splits a command line into its tokens. An empty line yields
// a request with an empty command.
func ParseRequest(line string) Request {
	f := strings.Fields(line)
	if len(f) == 0 {
		return Request{}
	}
	return Request{Command: f[0], Args: f[1:]}
}

// FormatRequest is the inverse of ParseRequest.
func FormatRequest(cmd string, args ...any) string {
	var b strings.Builder
	b.WriteString(cmd)
	for _, a := range args {
		fmt.Fprintf(&b, " %v", a)
	}
	return b.String()
}

// UnitName names the storage unit holding one section of a document.
// Sections are numbered from 1.
func UnitName(document string, section, count int) string {
	return fmt.Sprintf("%s(%d-%d)", document, section, count)
}

// ValidName reports whether s can be used as a user or document name.
// Names end up in storage paths, so separators and leading dots are refused.
func ValidName(s string) bool {
	if s == "" || len(s) > 64 || s[0] == '.' {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.':
		default:
			return false
		}
	}
	return true
}
