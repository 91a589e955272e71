package artifact

import (
	"context"
	"os"
	"path/filepath"

	"github.com/YuminosukeSato/matprop/pkg/errors"
)

// LocalStore keeps blobs as files below a root directory.
type LocalStore struct {
	root string
}

// NewLocalStore creates a LocalStore rooted at root. The directory is created
// lazily on first write.
func NewLocalStore(root string) *LocalStore {
	return &LocalStore{root: root}
}

// Root returns the directory the store writes to.
func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) path(name string) (string, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return "", errors.NewValidationError("name", "must be a relative path inside the store", name)
	}
	return filepath.Join(s.root, filepath.FromSlash(name)), nil
}

func (s *LocalStore) Get(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", name)
	}
	return data, nil
}

// Put writes to a temporary file in the target directory and renames it into
// place.
func (s *LocalStore) Put(ctx context.Context, name string, data []byte) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(p)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return errors.Wrapf(err, "write %s", name)
	}
	if err = tmp.Sync(); err != nil {
		return errors.Wrapf(err, "sync %s", name)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", name)
	}
	if err = os.Chmod(tmpName, 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", name)
	}
	if err = os.Rename(tmpName, p); err != nil {
		return errors.Wrapf(err, "rename %s", name)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "delete %s", name)
	}
	return nil
}

func (s *LocalStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, errors.Wrapf(err, "stat %s", name)
	}
}

// Rename uses os.Rename, which replaces the destination atomically on POSIX
// filesystems.
func (s *LocalStore) Rename(ctx context.Context, from, to string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := s.path(from)
	if err != nil {
		return err
	}
	dst, err := s.path(to)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return errors.Wrapf(err, "create %s", filepath.Dir(dst))
	}
	if err := os.Rename(src, dst); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return errors.Wrapf(err, "rename %s to %s", from, to)
	}
	return nil
}
