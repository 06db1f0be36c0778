// Package atlas loads parcellation atlases and extracts per-parcel
// voxel values from statistical volumes. Parcel membership is held in
// roaring bitmaps over flat voxel indices, so extraction never rescans
// the label volume.
package atlas

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/parcelcorr/nifti"
)

// ErrNoNameColumn is returned when a lookup table has no "name" column.
var ErrNoNameColumn = errors.New("atlas: lookup table has no name column")

// NameCountError is returned when the number of parcel names does not
// match the highest label in the atlas volume.
type NameCountError struct {
	Labels int
	Names  int
}

func (e *NameCountError) Error() string {
	return fmt.Sprintf("atlas: volume has %d labels but %d names were given", e.Labels, e.Names)
}

// DimensionError is returned when a statistical volume does not share
// the atlas grid.
type DimensionError struct {
	Want [3]int
	Got  [3]int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("atlas: volume dims %v do not match atlas dims %v", e.Got, e.Want)
}

// InvalidLabelError is returned when the atlas volume contains a
// negative label.
type InvalidLabelError struct {
	Index int
	Label int32
}

func (e *InvalidLabelError) Error() string {
	return fmt.Sprintf("atlas: negative label %d at voxel %d", e.Label, e.Index)
}

// Atlas is a labeled parcellation on a fixed grid. Label i+1 in the
// volume corresponds to parcel index i and name Names()[i]; label 0 is
// background.
type Atlas struct {
	dims  [3]int
	names []string
	masks []*roaring.Bitmap
}

// New builds an atlas from a label volume and the ordered parcel
// names. The number of names must equal the highest label.
func New(vol *nifti.Volume, names []string) (*Atlas, error) {
	labels := vol.Labels()

	var maxLabel int32
	for i, label := range labels {
		if label < 0 {
			return nil, &InvalidLabelError{Index: i, Label: label}
		}
		if label > maxLabel {
			maxLabel = label
		}
	}

	if int(maxLabel) != len(names) {
		return nil, &NameCountError{Labels: int(maxLabel), Names: len(names)}
	}

	masks := make([]*roaring.Bitmap, len(names))
	for i := range masks {
		masks[i] = roaring.New()
	}
	for i, label := range labels {
		if label > 0 {
			masks[label-1].Add(uint32(i))
		}
	}

	return &Atlas{
		dims:  vol.Dims,
		names: names,
		masks: masks,
	}, nil
}

// Load reads an atlas from a label volume and a BIDS-style lookup
// table (TSV with a "name" column).
func Load(volumePath, namesPath string) (*Atlas, error) {
	vol, err := nifti.Open(volumePath)
	if err != nil {
		return nil, err
	}

	names, err := LoadNames(namesPath)
	if err != nil {
		return nil, err
	}

	return New(vol, names)
}

// LoadNames reads the "name" column of a tab-separated lookup table,
// e.g. a TemplateFlow dseg.tsv.
func LoadNames(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("atlas: open %s: %w", path, err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("atlas: read %s: %w", path, err)
	}
	col := -1
	for i, field := range head {
		if field == "name" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, ErrNoNameColumn
	}

	var names []string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("atlas: read %s: %w", path, err)
		}
		if col >= len(row) {
			return nil, fmt.Errorf("atlas: row %d of %s has no name field", len(names)+2, path)
		}
		names = append(names, row[col])
	}

	return names, nil
}

// NumParcels returns the number of parcels.
func (a *Atlas) NumParcels() int {
	return len(a.names)
}

// Names returns the ordered parcel names. Callers must not modify the
// result.
func (a *Atlas) Names() []string {
	return a.names
}

// Name returns the name of parcel i.
func (a *Atlas) Name(i int) string {
	return a.names[i]
}

// Dims returns the atlas grid dimensions.
func (a *Atlas) Dims() [3]int {
	return a.dims
}

// Size returns the voxel count of parcel i.
func (a *Atlas) Size(i int) int {
	return int(a.masks[i].GetCardinality())
}

// Extract gathers the voxel values of parcel i from a statistical
// volume on the same grid, in flat index order.
func (a *Atlas) Extract(vol *nifti.Volume, i int) ([]float64, error) {
	if i < 0 || i >= len(a.masks) {
		return nil, fmt.Errorf("atlas: parcel index %d out of range [0,%d)", i, len(a.masks))
	}
	if vol.Dims != a.dims {
		return nil, &DimensionError{Want: a.dims, Got: vol.Dims}
	}

	out := make([]float64, 0, a.masks[i].GetCardinality())
	it := a.masks[i].Iterator()
	for it.HasNext() {
		out = append(out, vol.Data[it.Next()])
	}
	return out, nil
}
