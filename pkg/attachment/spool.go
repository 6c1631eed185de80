package attachment

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrymomot/postoffice/pkg/storage"
)

// Spool is temporary storage for attachment bodies between fetch and send.
type Spool interface {
	Put(ctx context.Context, key string, r io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Remove(ctx context.Context, key string) error
	// Sweep removes entries last written before cutoff, except those keep
	// reports true for, and returns how many it removed. keep may be nil.
	Sweep(ctx context.Context, cutoff time.Time, keep func(key string) bool) (int, error)
}

// FileSpool keeps entries as files in one directory.
type FileSpool struct {
	dir string
}

// NewFileSpool creates dir if needed. An empty dir uses a postoffice
// directory under os.TempDir.
func NewFileSpool(dir string) (*FileSpool, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "postoffice-spool")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("attachment: create spool dir: %w", err)
	}
	return &FileSpool{dir: dir}, nil
}

func (s *FileSpool) path(key string) (string, error) {
	if key == "" || strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return "", fmt.Errorf("attachment: invalid spool key %q", key)
	}
	return filepath.Join(s.dir, key), nil
}

func (s *FileSpool) Put(_ context.Context, key string, r io.Reader) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(p)
		return err
	}
	return f.Close()
}

func (s *FileSpool) Open(_ context.Context, key string) (io.ReadCloser, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrSpoolNotFound, key)
	}
	return f, err
}

// Remove deletes the entry. A missing entry is not an error.
func (s *FileSpool) Remove(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

func (s *FileSpool) Sweep(ctx context.Context, cutoff time.Time, keep func(key string) bool) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		info, err := e.Info()
		if err != nil || e.IsDir() || info.ModTime().After(cutoff) {
			continue
		}
		if keep != nil && keep(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

// Dir returns the spool directory.
func (s *FileSpool) Dir() string { return s.dir }

// ObjectSpool keeps entries in an object store under a key prefix, so workers
// in other processes can read them.
type ObjectSpool struct {
	store  storage.Storage
	prefix string
}

// NewObjectSpool creates a spool on store. Keys are stored as prefix/key.
func NewObjectSpool(store storage.Storage, prefix string) *ObjectSpool {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "spool"
	}
	return &ObjectSpool{store: store, prefix: prefix}
}

func (s *ObjectSpool) object(key string) string { return s.prefix + "/" + key }

// Put buffers the body so the upload carries an exact length.
func (s *ObjectSpool) Put(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.object(key), bytes.NewReader(data), int64(len(data)), "application/octet-stream")
}

func (s *ObjectSpool) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := s.store.Get(ctx, s.object(key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrSpoolNotFound, key)
	}
	return rc, err
}

func (s *ObjectSpool) Remove(ctx context.Context, key string) error {
	return s.store.Delete(ctx, s.object(key))
}

func (s *ObjectSpool) Sweep(ctx context.Context, cutoff time.Time, keep func(key string) bool) (int, error) {
	objects, err := s.store.List(ctx, s.prefix+"/")
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, obj := range objects {
		if obj.LastModified.After(cutoff) {
			continue
		}
		if keep != nil && keep(strings.TrimPrefix(obj.Key, s.prefix+"/")) {
			continue
		}
		if err := s.store.Delete(ctx, obj.Key); err == nil {
			removed++
		}
	}
	return removed, nil
}

var (
	_ Spool = (*FileSpool)(nil)
	_ Spool = (*ObjectSpool)(nil)
)
