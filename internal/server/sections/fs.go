package sections

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/turing/internal/common"
	"github.com/dmitrijs2005/turing/internal/filex"
	"github.com/dmitrijs2005/turing/internal/protocol"
)

// FSStore keeps section units as files under root/<namespace>/.
type FSStore struct {
	root string
}

func NewFSStore(root string) (*FSStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("error creating storage root: %w", err)
	}
	return &FSStore{root: abs}, nil
}

func (s *FSStore) unitPath(namespace, document string, section, count int) string {
	return filepath.Join(s.root, namespace, protocol.UnitName(document, section, count))
}

func (s *FSStore) Allocate(ctx context.Context, namespace, document string, count int) error {
	if count <= 0 {
		return common.ErrInvalidSections
	}
	if _, err := filex.EnsureSubDir(s.root, namespace); err != nil {
		return err
	}

	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, s.removeUpTo(namespace, document, i-1, count))
		}
		f, err := os.OpenFile(s.unitPath(namespace, document, i, count), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err != nil {
			cleanup := s.removeUpTo(namespace, document, i-1, count)
			if errors.Is(err, fs.ErrExist) {
				return errors.Join(common.ErrorAlreadyExists, cleanup)
			}
			return errors.Join(fmt.Errorf("error creating section %d: %w", i, err), cleanup)
		}
		if err := f.Close(); err != nil {
			return errors.Join(err, s.removeUpTo(namespace, document, i, count))
		}
	}
	return nil
}

func (s *FSStore) removeUpTo(namespace, document string, last, count int) error {
	var errs []error
	for i := 1; i <= last; i++ {
		if err := os.Remove(s.unitPath(namespace, document, i, count)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *FSStore) Open(_ context.Context, namespace, document string, section, count int) (io.ReadCloser, int64, error) {
	f, err := os.Open(s.unitPath(namespace, document, section, count))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, 0, common.ErrorNotFound
		}
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}

// Write stages the upload in a temporary file next to the unit and renames
// it into place, so a broken upload leaves the previous content intact.
func (s *FSStore) Write(_ context.Context, namespace, document string, section, count int, r io.Reader, size int64) error {
	target := s.unitPath(namespace, document, section, count)
	if _, err := os.Stat(target); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.ErrorNotFound
		}
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.CopyN(tmp, r, size); err != nil {
		tmp.Close()
		return fmt.Errorf("error receiving section %d: %w", section, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func (s *FSStore) Remove(_ context.Context, namespace, document string, count int) error {
	return s.removeUpTo(namespace, document, count, count)
}
