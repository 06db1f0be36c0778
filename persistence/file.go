package persistence

import (
	"bufio"
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/parcelcorr/internal/mmap"
	"github.com/hupe1980/parcelcorr/similarity"
	"github.com/hupe1980/parcelcorr/store"
)

// SaveToFile writes a snapshot of st, and res when non-nil, to path.
// The write is atomic: data goes to a temp file in the same
// directory, which replaces path only after a successful sync.
func SaveToFile(path string, st *store.Store, res *similarity.Results, optFns ...func(o *Options)) error {
	return saveAtomic(path, func(w io.Writer) error {
		return Write(w, st, res, optFns...)
	})
}

// ReadFile loads the snapshot at path. The file is memory-mapped for
// the duration of the read and unmapped before returning; the result
// owns all of its memory.
func ReadFile(path string) (*Snapshot, error) {
	m, err := mmap.Open(path)
	if err != nil {
		return nil, err
	}
	defer m.Close()

	return Read(bytes.NewReader(m.Data))
}

// saveAtomic writes via writeFunc into a temp file next to path and
// renames it into place.
func saveAtomic(path string, writeFunc func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	// Match typical file permissions (best-effort).
	_ = tmp.Chmod(0644)

	buf := bufio.NewWriterSize(tmp, 256*1024)
	if err := writeFunc(buf); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}
