//go:build !windows

package mmap

import (
	"os"

	"golang.org/x/sys/unix"
)

// The mapping is never written through, so a private read-only mapping
// behaves like a shared one here.
func mmap(f *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	// Snapshot sections are decoded immediately after mapping.
	_ = unix.Madvise(data, unix.MADV_WILLNEED)
	return data, nil
}

func munmap(data []byte) error {
	return unix.Munmap(data)
}
