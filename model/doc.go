// Package model defines the core types shared across the parcelcorr
// packages.
//
// # Records
//
//   - Record: voxel values one acquisition (subject, session, run)
//     produced for one parcel, plus their derived mean
//   - SortRecords: canonical (subject, session, run) ordering
//
// Records are value types; the store hands out copies whose Voxels
// slices alias its immutable backing data.
//
// # Keys
//
//   - Key: one unit of similarity work, a (contrast, parcel) pair
//
// A Key prints as "contrast/parcel", which is the form worker logs and
// failure callbacks use.
package model
