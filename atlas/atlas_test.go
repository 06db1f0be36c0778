package atlas

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parcelcorr/nifti"
)

// labelVolume lays out two parcels on a 2x2x1 grid: label 1 at flat
// indices 0 and 3, label 2 at index 1, background at index 2.
func labelVolume() *nifti.Volume {
	return &nifti.Volume{
		Dims: [3]int{2, 2, 1},
		Data: []float64{1, 2, 0, 1},
	}
}

func TestNew(t *testing.T) {
	a, err := New(labelVolume(), []string{"parcel-a", "parcel-b"})
	require.NoError(t, err)

	assert.Equal(t, 2, a.NumParcels())
	assert.Equal(t, [3]int{2, 2, 1}, a.Dims())
	assert.Equal(t, "parcel-a", a.Name(0))
	assert.Equal(t, []string{"parcel-a", "parcel-b"}, a.Names())
	assert.Equal(t, 2, a.Size(0))
	assert.Equal(t, 1, a.Size(1))
}

func TestNewNameCountMismatch(t *testing.T) {
	_, err := New(labelVolume(), []string{"parcel-a"})
	require.Error(t, err)

	var countErr *NameCountError
	require.ErrorAs(t, err, &countErr)
	assert.Equal(t, 2, countErr.Labels)
	assert.Equal(t, 1, countErr.Names)
}

func TestNewNegativeLabel(t *testing.T) {
	vol := &nifti.Volume{
		Dims: [3]int{2, 1, 1},
		Data: []float64{1, -3},
	}

	_, err := New(vol, []string{"parcel-a"})
	require.Error(t, err)

	var labelErr *InvalidLabelError
	require.ErrorAs(t, err, &labelErr)
	assert.Equal(t, 1, labelErr.Index)
	assert.Equal(t, int32(-3), labelErr.Label)
}

func TestExtract(t *testing.T) {
	a, err := New(labelVolume(), []string{"parcel-a", "parcel-b"})
	require.NoError(t, err)

	stat := &nifti.Volume{
		Dims: [3]int{2, 2, 1},
		Data: []float64{0.1, 0.2, 0.3, 0.4},
	}

	got, err := a.Extract(stat, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.1, 0.4}, got)

	got, err = a.Extract(stat, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.2}, got)
}

func TestExtractDimensionMismatch(t *testing.T) {
	a, err := New(labelVolume(), []string{"parcel-a", "parcel-b"})
	require.NoError(t, err)

	stat := &nifti.Volume{
		Dims: [3]int{4, 1, 1},
		Data: []float64{1, 2, 3, 4},
	}

	_, err = a.Extract(stat, 0)
	require.Error(t, err)

	var dimErr *DimensionError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, [3]int{2, 2, 1}, dimErr.Want)
	assert.Equal(t, [3]int{4, 1, 1}, dimErr.Got)
}

func TestExtractIndexOutOfRange(t *testing.T) {
	a, err := New(labelVolume(), []string{"parcel-a", "parcel-b"})
	require.NoError(t, err)

	_, err = a.Extract(labelVolume(), 2)
	require.Error(t, err)
}

func TestLoadNames(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dseg.tsv")

	tsv := "index\tname\tcolor\n1\t17Networks_LH_VisCent_ExStr_1\t#781286\n2\t17Networks_LH_VisCent_ExStr_2\t#781286\n"
	require.NoError(t, os.WriteFile(path, []byte(tsv), 0o644))

	names, err := LoadNames(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"17Networks_LH_VisCent_ExStr_1", "17Networks_LH_VisCent_ExStr_2"}, names)
}

func TestLoadNamesMissingColumn(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dseg.tsv")

	require.NoError(t, os.WriteFile(path, []byte("index\tlabel\n1\tfoo\n"), 0o644))

	_, err := LoadNames(path)
	require.ErrorIs(t, err, ErrNoNameColumn)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	volPath := filepath.Join(dir, "atlas.nii.gz")
	require.NoError(t, nifti.Save(volPath, labelVolume()))

	namesPath := filepath.Join(dir, "dseg.tsv")
	require.NoError(t, os.WriteFile(namesPath, []byte("index\tname\n1\tparcel-a\n2\tparcel-b\n"), 0o644))

	a, err := Load(volPath, namesPath)
	require.NoError(t, err)
	assert.Equal(t, 2, a.NumParcels())
	assert.Equal(t, "parcel-b", a.Name(1))
}
