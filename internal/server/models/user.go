// Package models defines the records held by the server registries.
//
// Records are snapshots: once a pointer has been stored in a registry it is
// never modified. Every change goes through Clone, a mutation of the private
// copy, and a compare-and-replace of the whole record.
package models

import (
	"net"
	"slices"
	"time"

	"github.com/dmitrijs2005/turing/internal/cryptox"
)

// User is the registry record of one account.
type User struct {
	UserName string
	Verifier cryptox.Verifier
	// Online holds the endpoint of the session the user is logged in from.
	// It is nil while the user is offline.
	Online net.Addr
	// Handles lists the documents the user owns or co-authors.
	Handles []Handle
	// ShareNotice is set when another user shared a document with this one
	// and the notice has not been delivered yet.
	ShareNotice bool
	CreatedAt   time.Time
}

// NewUser builds the initial record of a freshly registered account.
func NewUser(userName string, password []byte) *User {
	return &User{
		UserName:  userName,
		Verifier:  cryptox.NewVerifier(password),
		CreatedAt: time.Now(),
	}
}

// Clone returns a deep copy safe to modify.
func (u *User) Clone() *User {
	c := *u
	c.Handles = slices.Clone(u.Handles)
	return &c
}

// IsOnline reports whether the user is logged in.
func (u *User) IsOnline() bool {
	return u.Online != nil
}

// HasHandle reports whether h is in the user's document list.
func (u *User) HasHandle(h Handle) bool {
	return slices.Contains(u.Handles, h)
}
