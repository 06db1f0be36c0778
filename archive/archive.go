// Package archive uploads run outputs (snapshot, manifests, CSV
// reports) to a local directory or to S3-compatible object storage.
package archive

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Archive stores named objects in a storage backend.
type Archive interface {
	// Put stores the object read from r under name. size is the exact
	// number of bytes r yields.
	Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) error
}

// UploadRun uploads every regular file under dir, keyed by its
// slash-separated path relative to dir. It returns the uploaded names
// in walk order.
func UploadRun(ctx context.Context, a Archive, dir string) ([]string, error) {
	var names []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)

		if err := uploadFile(ctx, a, path, name); err != nil {
			return fmt.Errorf("archive: upload %s: %w", name, err)
		}

		names = append(names, name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return names, nil
}

func uploadFile(ctx context.Context, a Archive, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	return a.Put(ctx, name, f, info.Size(), contentTypeFor(name))
}

// contentTypeFor maps the run's known output extensions; anything
// else is an octet stream.
func contentTypeFor(name string) string {
	switch filepath.Ext(name) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
