package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parcelcorr/model"
)

func TestBuilderAddAndBuild(t *testing.T) {
	b := NewBuilder()

	require.NoError(t, b.Add("task-b_contrast-x", "parcel-2", model.Record{
		Subject: "sub-s10", Session: "ses-01", Run: "run-01",
		Voxels: []float64{1, 2},
	}))
	require.NoError(t, b.Add("task-a_contrast-y", "parcel-1", model.Record{
		Subject: "sub-s10", Session: "ses-01", Run: "run-01",
		Voxels: []float64{3, 4, 5},
	}))
	require.NoError(t, b.Add("task-a_contrast-y", "parcel-1", model.Record{
		Subject: "sub-s03", Session: "ses-02", Run: "run-01",
		Voxels: []float64{6, 7, 8},
	}))
	require.Equal(t, 3, b.Len())

	s := b.Build()

	assert.Equal(t, []string{"task-a_contrast-y", "task-b_contrast-x"}, s.Contrasts())
	assert.Equal(t, []string{"parcel-1"}, s.Parcels("task-a_contrast-y"))
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 3, s.ParcelLen("parcel-1"))
	assert.Equal(t, 2, s.ParcelLen("parcel-2"))
	assert.True(t, s.HasContrast("task-a_contrast-y"))
	assert.False(t, s.HasContrast("task-c_contrast-z"))
	assert.True(t, s.HasParcel("task-b_contrast-x", "parcel-2"))
	assert.False(t, s.HasParcel("task-b_contrast-x", "parcel-1"))

	// Records come back in canonical order with derived means.
	records := s.Records("task-a_contrast-y", "parcel-1")
	require.Len(t, records, 2)
	assert.Equal(t, "sub-s03_ses-02_run-01", records[0].Name())
	assert.Equal(t, "sub-s10_ses-01_run-01", records[1].Name())
	assert.InDelta(t, 7, records[0].Mean, 1e-12)
	assert.InDelta(t, 4, records[1].Mean, 1e-12)
}

func TestBuilderVoxelLengthMismatch(t *testing.T) {
	b := NewBuilder()

	require.NoError(t, b.Add("task-a_contrast-y", "parcel-1", model.Record{
		Subject: "sub-s03", Session: "ses-01", Run: "run-01",
		Voxels: []float64{1, 2, 3},
	}))

	err := b.Add("task-b_contrast-x", "parcel-1", model.Record{
		Subject: "sub-s03", Session: "ses-01", Run: "run-01",
		Voxels: []float64{1, 2},
	})
	require.Error(t, err)

	var lenErr *VoxelLengthError
	require.ErrorAs(t, err, &lenErr)
	assert.Equal(t, "task-b_contrast-x", lenErr.Contrast)
	assert.Equal(t, "parcel-1", lenErr.Parcel)
	assert.Equal(t, "sub-s03_ses-01_run-01", lenErr.Record)
	assert.Equal(t, 3, lenErr.Expected)
	assert.Equal(t, 2, lenErr.Actual)
}

func TestBuildEmpty(t *testing.T) {
	s := NewBuilder().Build()

	assert.Empty(t, s.Contrasts())
	assert.Empty(t, s.Keys())
	assert.Zero(t, s.Len())
}

func TestStoreKeys(t *testing.T) {
	b := NewBuilder()
	rec := model.Record{Subject: "sub-s03", Session: "ses-01", Run: "run-01", Voxels: []float64{1, 2}}

	require.NoError(t, b.Add("task-b_contrast-x", "parcel-1", rec))
	require.NoError(t, b.Add("task-a_contrast-y", "parcel-2", rec))
	require.NoError(t, b.Add("task-a_contrast-y", "parcel-1", rec))

	s := b.Build()

	want := []model.Key{
		{Contrast: "task-a_contrast-y", Parcel: "parcel-1"},
		{Contrast: "task-a_contrast-y", Parcel: "parcel-2"},
		{Contrast: "task-b_contrast-x", Parcel: "parcel-1"},
	}
	assert.Equal(t, want, s.Keys())
}
