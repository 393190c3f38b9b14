// Package users keeps the in-memory account registry.
package users

import (
	"errors"
	"net"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/server/models"
	"github.com/dmitrijs2005/turing/internal/server/store"
)

type Service struct {
	users *store.Store[string, models.User]
}

func NewService(opts ...store.Option) *Service {
	return &Service{users: store.New[string, models.User](opts...)}
}

// Register adds a new account. It fails with common.ErrorAlreadyExists when
// the name is taken; of two concurrent registrations exactly one wins.
func (s *Service) Register(userName string, password []byte) error {
	if !s.users.InsertIfAbsent(userName, models.NewUser(userName, password)) {
		return common.ErrorAlreadyExists
	}
	return nil
}

// Get returns the current snapshot of the user record.
func (s *Service) Get(userName string) (*models.User, bool) {
	return s.users.Get(userName)
}

// Login checks the password and marks the user online at endpoint.
//
// The checks run in a fixed order: unknown user, wrong password, already
// online. A lost race against another session returns common.ErrConflict
// and leaves the record unchanged.
func (s *Service) Login(userName string, password []byte, endpoint net.Addr) error {
	_, err := s.users.Update(userName, func(cur *models.User) (*models.User, error) {
		if !cur.Verifier.Check(password) {
			return nil, common.ErrorUnauthorized
		}
		if cur.IsOnline() {
			return nil, common.ErrAlreadyOnline
		}
		next := cur.Clone()
		next.Online = endpoint
		return next, nil
	})
	return err
}

// Logout marks the user offline. It retries until it commits.
func (s *Service) Logout(userName string) error {
	_, err := s.users.UpdateRetry(userName, func(cur *models.User) (*models.User, error) {
		next := cur.Clone()
		next.Online = nil
		return next, nil
	})
	return err
}

// AddDocumentHandle appends h to the user's document list with a single
// compare-and-replace attempt.
func (s *Service) AddDocumentHandle(userName string, h models.Handle) error {
	_, err := s.users.Update(userName, func(cur *models.User) (*models.User, error) {
		if cur.HasHandle(h) {
			return nil, common.ErrorAlreadyExists
		}
		next := cur.Clone()
		next.Handles = append(next.Handles, h)
		return next, nil
	})
	return err
}

// ShareDocument appends h to the user's document list and raises the share
// notice in one step. A single attempt is made.
func (s *Service) ShareDocument(userName string, h models.Handle) error {
	_, err := s.users.Update(userName, func(cur *models.User) (*models.User, error) {
		if cur.HasHandle(h) {
			return nil, common.ErrorAlreadyExists
		}
		next := cur.Clone()
		next.Handles = append(next.Handles, h)
		next.ShareNotice = true
		return next, nil
	})
	return err
}

// RemoveDocumentHandle drops h from the user's document list, retrying until
// it commits. Removing a handle that is not listed is a no-op.
func (s *Service) RemoveDocumentHandle(userName string, h models.Handle) error {
	_, err := s.users.UpdateRetry(userName, func(cur *models.User) (*models.User, error) {
		next := cur.Clone()
		next.Handles = next.Handles[:0]
		for _, x := range cur.Handles {
			if x != h {
				next.Handles = append(next.Handles, x)
			}
		}
		return next, nil
	})
	return err
}

// ClearShareNotice lowers a pending share notice. It reports true only when
// this call observed the notice and its clearing committed, so a notice is
// delivered at most once per raise.
func (s *Service) ClearShareNotice(userName string) (bool, error) {
	_, err := s.users.Update(userName, func(cur *models.User) (*models.User, error) {
		if !cur.ShareNotice {
			return nil, errNoNotice
		}
		next := cur.Clone()
		next.ShareNotice = false
		return next, nil
	})
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNoNotice), errors.Is(err, common.ErrConflict):
		return false, nil
	default:
		return false, err
	}
}

// Handles returns the user's document list.
func (s *Service) Handles(userName string) ([]models.Handle, error) {
	u, ok := s.users.Get(userName)
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u.Handles, nil
}

var errNoNotice = errors.New("no pending share notice")
