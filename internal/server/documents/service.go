// Package documents keeps the in-memory document registry and ties it to
// section storage.
package documents

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/server/models"
	"github.com/dmitrijs2005/turing/internal/server/sections"
	"github.com/dmitrijs2005/turing/internal/server/store"
)

type Service struct {
	docs    *store.Store[models.Handle, models.Document]
	storage sections.Store
}

func NewService(storage sections.Store, opts ...store.Option) *Service {
	return &Service{
		docs:    store.New[models.Handle, models.Document](opts...),
		storage: storage,
	}
}

// Create allocates storage for a new document and registers it. Storage is
// released again if the registry already holds the handle; a failed release
// is joined to the returned error.
func (s *Service) Create(ctx context.Context, name, author string, count int) (*models.Document, error) {
	if count <= 0 {
		return nil, common.ErrInvalidSections
	}
	if err := s.storage.Allocate(ctx, author, name, count); err != nil {
		return nil, err
	}

	doc := models.NewDocument(models.Handle{Name: name, Owner: author}, count, author)
	if !s.docs.InsertIfAbsent(doc.Handle, doc) {
		if err := s.storage.Remove(ctx, author, name, count); err != nil {
			return nil, errors.Join(common.ErrorAlreadyExists, fmt.Errorf("error releasing storage of %s: %w", doc.Handle, err))
		}
		return nil, common.ErrorAlreadyExists
	}
	return doc, nil
}

// Get returns the current snapshot of a document.
func (s *Service) Get(h models.Handle) (*models.Document, bool) {
	return s.docs.Get(h)
}

// CompareAndReplace installs next if prev is still the current snapshot.
func (s *Service) CompareAndReplace(h models.Handle, prev, next *models.Document) bool {
	return s.docs.CompareAndReplace(h, prev, next)
}

// AddCoauthor lists userName as a co-author of h, retrying until it commits.
func (s *Service) AddCoauthor(h models.Handle, userName string) error {
	_, err := s.docs.UpdateRetry(h, func(cur *models.Document) (*models.Document, error) {
		return cur.WithCoauthor(userName), nil
	})
	return err
}

// ReleaseSection clears the lock of section, retrying until it commits. It
// reports false if the section was not locked, so a second release is a
// no-op.
func (s *Service) ReleaseSection(h models.Handle, section int) (bool, error) {
	_, err := s.docs.UpdateRetry(h, func(cur *models.Document) (*models.Document, error) {
		return cur.WithSectionUnlocked(section)
	})
	if errors.Is(err, common.ErrSectionNotLocked) {
		return false, nil
	}
	return err == nil, err
}

// FindByName returns the handles among candidates whose document is called
// name, keeping the candidates' order.
func (s *Service) FindByName(candidates []models.Handle, name string) []models.Handle {
	var out []models.Handle
	for _, h := range candidates {
		if h.Name != name {
			continue
		}
		if _, ok := s.docs.Get(h); ok {
			out = append(out, h)
		}
	}
	return out
}

// OpenSection returns the stored content of one section of doc.
func (s *Service) OpenSection(ctx context.Context, doc *models.Document, section int) (io.ReadCloser, int64, error) {
	if !doc.ValidSection(section) {
		return nil, 0, common.ErrSectionOutOfRange
	}
	rc, size, err := s.storage.Open(ctx, doc.Location, doc.Name(), section, doc.SectionCount())
	if err != nil {
		return nil, 0, fmt.Errorf("error opening section %d of %s: %w", section, doc.Handle, err)
	}
	return rc, size, nil
}

// WriteSection replaces the stored content of one section of doc.
func (s *Service) WriteSection(ctx context.Context, doc *models.Document, section int, r io.Reader, size int64) error {
	if !doc.ValidSection(section) {
		return common.ErrSectionOutOfRange
	}
	if err := s.storage.Write(ctx, doc.Location, doc.Name(), section, doc.SectionCount(), r, size); err != nil {
		return fmt.Errorf("error writing section %d of %s: %w", section, doc.Handle, err)
	}
	return nil
}

// Delete unregisters h and frees its storage. It undoes a Create whose
// second half failed.
func (s *Service) Delete(ctx context.Context, h models.Handle) error {
	doc, ok := s.docs.Get(h)
	if !ok {
		return common.ErrorNotFound
	}
	s.docs.Delete(h)
	return s.storage.Remove(ctx, doc.Location, doc.Name(), doc.SectionCount())
}
