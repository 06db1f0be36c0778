// Package testutil provides testing utilities for parcelcorr.
//
// This package is intended for use in tests and benchmarks only.
// It provides seeded generators for synthetic voxel records and for
// whole record stores with controllable within- and between-subject
// structure.
//
// # Random Record Generation
//
//	rng := testutil.NewRNG(seed)
//	voxels := make([]float64, 100)
//	rng.FillGaussian(voxels)
//
// # Synthetic Stores
//
//	st, err := rng.GenerateStore(testutil.DefaultStoreConfig())
//
// GenerateStore draws one archetype pattern per subject and derives
// session records by adding scaled noise, so within-subject similarity
// stays above between-subject similarity for small SessionNoise.
package testutil
