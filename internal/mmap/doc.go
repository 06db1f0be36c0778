// Package mmap provides read-only memory mapping of files.
//
// Snapshot loads map the whole file and parse sections in place, so
// only the decoded structures are ever copied onto the heap. The
// mapping must stay open for as long as any view into Data is in use.
package mmap
