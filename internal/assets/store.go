// Package assets writes exported images to the shared asset root.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Store persists encoded images under flat names.
type Store interface {
	Put(ctx context.Context, name string, content []byte, contentType string) error
	Exists(ctx context.Context, name string) (bool, error)
}

// DirStore writes assets into a local directory served as static files.
type DirStore struct {
	dir string
}

// NewDirStore creates dir if needed.
func NewDirStore(dir string) (*DirStore, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, fmt.Errorf("asset dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create asset dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Dir returns the directory backing the store.
func (s *DirStore) Dir() string { return s.dir }

func (s *DirStore) Put(ctx context.Context, name string, content []byte, _ string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := s.path(name)
	if err != nil {
		return err
	}
	// write to a temp file first so the static server never sees half a PNG
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (s *DirStore) Exists(ctx context.Context, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := s.path(name)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

func (s *DirStore) path(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}

// MirrorStore writes to a primary store and copies every asset to a mirror.
// Reads consult only the primary; mirror failures are reported to onError.
type MirrorStore struct {
	primary Store
	mirror  Store
	onError func(name string, err error)
}

func NewMirrorStore(primary, mirror Store, onError func(name string, err error)) *MirrorStore {
	return &MirrorStore{primary: primary, mirror: mirror, onError: onError}
}

func (m *MirrorStore) Put(ctx context.Context, name string, content []byte, contentType string) error {
	if err := m.primary.Put(ctx, name, content, contentType); err != nil {
		return err
	}
	if err := m.mirror.Put(ctx, name, content, contentType); err != nil && m.onError != nil {
		m.onError(name, err)
	}
	return nil
}

func (m *MirrorStore) Exists(ctx context.Context, name string) (bool, error) {
	return m.primary.Exists(ctx, name)
}
