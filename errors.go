package parcelcorr

import (
	"errors"
	"fmt"

	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/store"
)

var (
	// ErrClosed is returned when an operation runs after Close.
	ErrClosed = errors.New("analysis closed")

	// ErrNoAtlas is returned by New when no atlas is given.
	ErrNoAtlas = errors.New("atlas required")

	// ErrNoRecords is returned when a pipeline stage has no input
	// records, for example when every discovered file is excluded.
	ErrNoRecords = errors.New("no records")
)

// GridMismatchError indicates a statistical volume that does not
// share the atlas grid.
//
// The original underlying error can be accessed via errors.Unwrap.
type GridMismatchError struct {
	Want  [3]int
	Got   [3]int
	cause error
}

func (e *GridMismatchError) Error() string {
	return fmt.Sprintf("grid mismatch: volume dims %v, atlas dims %v", e.Got, e.Want)
}

func (e *GridMismatchError) Unwrap() error { return e.cause }

// RecordLengthError indicates a record whose voxel vector length
// contradicts the length established for its parcel.
//
// The original underlying error can be accessed via errors.Unwrap.
type RecordLengthError struct {
	Contrast string
	Parcel   string
	Record   string
	Expected int
	Actual   int
	cause    error
}

func (e *RecordLengthError) Error() string {
	return fmt.Sprintf("record length mismatch: %s of %s/%s has %d voxels, want %d",
		e.Record, e.Contrast, e.Parcel, e.Actual, e.Expected)
}

func (e *RecordLengthError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var de *atlas.DimensionError
	if errors.As(err, &de) {
		return &GridMismatchError{Want: de.Want, Got: de.Got, cause: err}
	}

	var vle *store.VoxelLengthError
	if errors.As(err, &vle) {
		return &RecordLengthError{
			Contrast: vle.Contrast,
			Parcel:   vle.Parcel,
			Record:   vle.Record,
			Expected: vle.Expected,
			Actual:   vle.Actual,
			cause:    err,
		}
	}

	return err
}
