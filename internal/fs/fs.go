package fs

import (
	"io"
	"os"
)

// File is an open file as the manifest store sees one. Directories
// opened for syncing satisfy it too; their Read and Write simply fail.
type File interface {
	io.ReadWriteCloser
	Sync() error
}

// FileSystem narrows the filesystem to the operations atomic file
// replacement needs.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	MkdirAll(path string, perm os.FileMode) error
	Remove(name string) error
	Rename(oldpath, newpath string) error
}

// LocalFS passes every operation straight to the os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (LocalFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (LocalFS) Remove(name string) error                     { return os.Remove(name) }
func (LocalFS) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }

// Default is the local filesystem.
var Default FileSystem = LocalFS{}
