package store

import (
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/hupe1980/parcelcorr/model"
)

// VoxelLengthError is returned by Builder.Add when a record's voxel
// vector length differs from the length already established for its
// parcel.
type VoxelLengthError struct {
	Contrast string
	Parcel   string
	Record   string
	Expected int
	Actual   int
}

func (e *VoxelLengthError) Error() string {
	return fmt.Sprintf("store: record %q of %s/%s has %d voxels, want %d",
		e.Record, e.Contrast, e.Parcel, e.Actual, e.Expected)
}

// Builder accumulates records and produces an immutable Store. It is
// safe for concurrent use.
type Builder struct {
	mu        sync.Mutex
	records   map[string]map[string][]model.Record
	parcelLen map[string]int
	numRecs   int
}

// NewBuilder creates an empty store builder.
func NewBuilder() *Builder {
	return &Builder{
		records:   make(map[string]map[string][]model.Record),
		parcelLen: make(map[string]int),
	}
}

// Add appends one record under the given contrast and parcel. The
// first record seen for a parcel establishes the parcel's voxel
// vector length; later records must match it or Add returns a
// *VoxelLengthError. The record's Mean is derived from its voxels.
func (b *Builder) Add(contrast, parcel string, rec model.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if expected, ok := b.parcelLen[parcel]; ok {
		if len(rec.Voxels) != expected {
			return &VoxelLengthError{
				Contrast: contrast,
				Parcel:   parcel,
				Record:   rec.Name(),
				Expected: expected,
				Actual:   len(rec.Voxels),
			}
		}
	} else {
		b.parcelLen[parcel] = len(rec.Voxels)
	}

	rec.Mean = 0
	if len(rec.Voxels) > 0 {
		rec.Mean = stat.Mean(rec.Voxels, nil)
	}

	parcels, ok := b.records[contrast]
	if !ok {
		parcels = make(map[string][]model.Record)
		b.records[contrast] = parcels
	}
	parcels[parcel] = append(parcels[parcel], rec)
	b.numRecs++

	return nil
}

// Len returns the number of records added so far.
func (b *Builder) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.numRecs
}

// Build finalizes the accumulated records into an immutable Store.
// Contrasts, parcels and records come out in canonical sorted order
// regardless of insertion order. The builder must not be used after
// Build.
func (b *Builder) Build() *Store {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := &Store{
		contrasts: make([]string, 0, len(b.records)),
		parcels:   make(map[string][]string, len(b.records)),
		records:   b.records,
		parcelLen: b.parcelLen,
		numRecs:   b.numRecs,
	}

	for contrast, parcels := range b.records {
		s.contrasts = append(s.contrasts, contrast)

		names := make([]string, 0, len(parcels))
		for parcel, records := range parcels {
			names = append(names, parcel)
			model.SortRecords(records)
		}
		sort.Strings(names)
		s.parcels[contrast] = names
	}
	sort.Strings(s.contrasts)

	b.records = nil
	b.parcelLen = nil

	return s
}
