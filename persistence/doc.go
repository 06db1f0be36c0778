// Package persistence reads and writes snapshot files holding a
// record store and its similarity results.
//
// A snapshot is a single little-endian binary file: a fixed header
// naming the codec and voxel compression, CRC32-checksummed sections
// (store layout, voxel payload, optional results), a section
// directory and a footer locating it. Files are written atomically
// (temp file + rename + directory sync) and read through a read-only
// memory mapping.
//
// The voxel payload is one float64 stream covering every record in
// canonical store order, compressed with zstd by default; lz4 and
// uncompressed storage are selectable per snapshot. Identical stores
// and results always serialize to identical bytes.
package persistence
