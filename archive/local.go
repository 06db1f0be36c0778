package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local copies objects into a directory tree. It is the backend used
// when archiving to plain disk and the one exercised in tests.
type Local struct {
	dir string
}

// NewLocal returns an archive rooted at dir.
func NewLocal(dir string) *Local {
	return &Local{dir: dir}
}

// Put writes the object to dir/name, creating parent directories as
// needed. An existing file is overwritten.
func (l *Local) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := filepath.Join(l.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	n, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if n != size {
		return fmt.Errorf("short object: wrote %d of %d bytes", n, size)
	}
	return nil
}
