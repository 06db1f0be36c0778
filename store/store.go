// Package store implements the in-memory record store that feeds the
// similarity computations. Records are grouped by contrast, then by
// parcel, and held in canonical (subject, session, run) order.
package store

import (
	"sort"

	"github.com/hupe1980/parcelcorr/model"
)

// Store is an immutable view of extracted parcel records. Build one
// with a Builder. Accessors return internal slices; callers must not
// modify them.
type Store struct {
	contrasts []string
	parcels   map[string][]string
	records   map[string]map[string][]model.Record
	parcelLen map[string]int
	numRecs   int
}

// Contrasts returns the contrast keys in sorted order.
func (s *Store) Contrasts() []string {
	return s.contrasts
}

// HasContrast reports whether the store holds any record for the
// given contrast.
func (s *Store) HasContrast(contrast string) bool {
	_, ok := s.records[contrast]
	return ok
}

// Parcels returns the parcel names stored for a contrast, in sorted
// order.
func (s *Store) Parcels(contrast string) []string {
	return s.parcels[contrast]
}

// HasParcel reports whether the store holds any record for the given
// contrast and parcel.
func (s *Store) HasParcel(contrast, parcel string) bool {
	_, ok := s.records[contrast][parcel]
	return ok
}

// Records returns the records stored for a contrast and parcel in
// canonical order. The result is nil when the pair is absent.
func (s *Store) Records(contrast, parcel string) []model.Record {
	return s.records[contrast][parcel]
}

// Keys returns every (contrast, parcel) pair in the store, sorted by
// contrast and then by parcel.
func (s *Store) Keys() []model.Key {
	keys := make([]model.Key, 0, len(s.contrasts))
	for _, contrast := range s.contrasts {
		for _, parcel := range s.parcels[contrast] {
			keys = append(keys, model.Key{Contrast: contrast, Parcel: parcel})
		}
	}
	return keys
}

// Subjects returns the distinct subjects across every record, in
// sorted order. It walks the whole store, so callers should hold on
// to the result rather than call it per key.
func (s *Store) Subjects() []string {
	seen := make(map[string]struct{})
	for _, parcels := range s.records {
		for _, records := range parcels {
			for _, rec := range records {
				seen[rec.Subject] = struct{}{}
			}
		}
	}

	subjects := make([]string, 0, len(seen))
	for subject := range seen {
		subjects = append(subjects, subject)
	}
	sort.Strings(subjects)

	return subjects
}

// ParcelLen returns the voxel vector length established for a parcel,
// or zero when the parcel is unknown.
func (s *Store) ParcelLen(parcel string) int {
	return s.parcelLen[parcel]
}

// Len returns the total number of records in the store.
func (s *Store) Len() int {
	return s.numRecs
}
