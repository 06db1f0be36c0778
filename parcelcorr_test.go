package parcelcorr_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parcelcorr "github.com/hupe1980/parcelcorr"
	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/dataset"
	"github.com/hupe1980/parcelcorr/nifti"
	"github.com/hupe1980/parcelcorr/similarity"
)

const (
	nBackKey   = "task-nBack_contrast-twoBack-oneBack"
	flankerKey = "task-flanker_contrast-incongruent-congruent"
)

// testAtlas has two parcels on a 3x2x1 grid: LH_Vis covers voxels
// 0-2, RH_Mot covers voxels 3-4, voxel 5 is background.
func testAtlas(t *testing.T) *atlas.Atlas {
	t.Helper()

	vol := &nifti.Volume{
		Dims: [3]int{3, 2, 1},
		Data: []float64{1, 1, 1, 2, 2, 0},
	}
	a, err := atlas.New(vol, []string{"LH_Vis", "RH_Mot"})
	require.NoError(t, err)
	return a
}

func writeImage(t *testing.T, dir, subject, session, task, contrast string, p1 [3]float64, p2 [2]float64) dataset.File {
	t.Helper()

	name := fmt.Sprintf("%s_%s_task-%s_run-01_contrast-%s_rtmodel-rt_centered_stat-effect-size.nii.gz",
		subject, session, task, contrast)

	vol := &nifti.Volume{
		Dims: [3]int{3, 2, 1},
		Data: []float64{p1[0], p1[1], p1[2], p2[0], p2[1], 99},
	}
	path := filepath.Join(dir, name)
	require.NoError(t, nifti.Save(path, vol))

	f, err := dataset.ParseName(name)
	require.NoError(t, err)
	f.Path = path
	return f
}

// buildTestDataset writes two contrasts over two subjects and two
// sessions. LH_Vis patterns repeat across sessions (within 1.0) and
// correlate 0.5 across subjects; RH_Mot patterns flip between
// sessions (within -1.0) and average to 0 across subjects.
func buildTestDataset(t *testing.T) []dataset.File {
	t.Helper()
	dir := t.TempDir()

	type acquisition struct {
		subject, session string
		p1               [3]float64
		p2               [2]float64
	}
	acquisitions := []acquisition{
		{"sub-s01", "ses-01", [3]float64{1, 2, 3}, [2]float64{1, 2}},
		{"sub-s01", "ses-02", [3]float64{1, 2, 3}, [2]float64{2, 1}},
		{"sub-s02", "ses-01", [3]float64{1, 3, 2}, [2]float64{1, 2}},
		{"sub-s02", "ses-02", [3]float64{1, 3, 2}, [2]float64{2, 1}},
	}

	var files []dataset.File
	for _, tc := range []struct{ task, contrast string }{
		{"nBack", "twoBack-oneBack"},
		{"flanker", "incongruent-congruent"},
	} {
		for _, a := range acquisitions {
			files = append(files, writeImage(t, dir, a.subject, a.session, tc.task, tc.contrast, a.p1, a.p2))
		}
	}
	return files
}

func TestNew_RequiresAtlas(t *testing.T) {
	_, err := parcelcorr.New(nil)
	assert.ErrorIs(t, err, parcelcorr.ErrNoAtlas)
}

func TestNew_Defaults(t *testing.T) {
	an, err := parcelcorr.New(testAtlas(t))
	require.NoError(t, err)
	defer an.Close()

	assert.Greater(t, an.Workers(), 0)
	assert.LessOrEqual(t, an.Workers(), 16)
	assert.Equal(t, similarity.DefaultThreshold, an.Threshold())
}

func TestNew_Options(t *testing.T) {
	an, err := parcelcorr.New(testAtlas(t),
		parcelcorr.WithThreshold(0.25),
		parcelcorr.WithWorkers(3),
	)
	require.NoError(t, err)
	defer an.Close()

	assert.Equal(t, 0.25, an.Threshold())
	assert.Equal(t, 3, an.Workers())
}

func TestAnalysis_EndToEnd(t *testing.T) {
	ctx := context.Background()
	files := buildTestDataset(t)

	metrics := &parcelcorr.BasicMetricsCollector{}
	an, err := parcelcorr.New(testAtlas(t),
		parcelcorr.WithWorkers(4),
		parcelcorr.WithMetricsCollector(metrics),
		parcelcorr.WithConstructs(construct.Map{
			"Working Memory": {nBackKey, flankerKey},
		}),
	)
	require.NoError(t, err)
	defer an.Close()

	st, err := an.ExtractStore(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, []string{flankerKey, nBackKey}, st.Contrasts())
	assert.Equal(t, 16, st.Len()) // 2 contrasts x 2 parcels x 4 acquisitions

	res, err := an.Run(ctx, st)
	require.NoError(t, err)

	for _, contrast := range []string{nBackKey, flankerKey} {
		within, ok := res.Within.Value(contrast, "LH_Vis")
		require.True(t, ok, contrast)
		assert.InDelta(t, 1.0, within, 1e-12)

		between, ok := res.Between.Value(contrast, "LH_Vis")
		require.True(t, ok, contrast)
		assert.InDelta(t, 0.5, between, 1e-12)

		assert.True(t, res.Labels.Is(contrast, "LH_Vis", similarity.LabelCanonical))
		assert.True(t, res.Labels.Is(contrast, "RH_Mot", similarity.LabelVariable))

		within, ok = res.Within.Value(contrast, "RH_Mot")
		require.True(t, ok, contrast)
		assert.InDelta(t, -1.0, within, 1e-12)

		between, ok = res.Between.Value(contrast, "RH_Mot")
		require.True(t, ok, contrast)
		assert.InDelta(t, 0.0, between, 1e-12)

		// Both member contrasts carry identical patterns, so the
		// aggregate vectors correlate perfectly.
		across, ok := res.Across.Value(contrast, "LH_Vis", "Working Memory")
		require.True(t, ok, contrast)
		assert.InDelta(t, 1.0, across, 1e-12)

		_, ok = res.Across.Value(contrast, "RH_Mot", "Working Memory")
		assert.False(t, ok, "variable parcels are skipped")
	}

	// Snapshot round trip.
	path := filepath.Join(t.TempDir(), "run.pcor")
	require.NoError(t, an.SaveSnapshot(ctx, path, st, res))

	st2, res2, err := parcelcorr.LoadSnapshot(path)
	require.NoError(t, err)
	require.NotNil(t, res2)
	assert.Equal(t, parcelcorr.Summarize(st, res), parcelcorr.Summarize(st2, res2))
	assert.Equal(t, res.Labels, res2.Labels)
	assert.Equal(t,
		st.Records(nBackKey, "LH_Vis")[0].Voxels,
		st2.Records(nBackKey, "LH_Vis")[0].Voxels,
	)

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.ExtractCount)
	assert.Equal(t, int64(8), stats.ExtractFiles)
	assert.Equal(t, int64(1), stats.WithinCount)
	assert.Equal(t, int64(1), stats.BetweenCount)
	assert.Equal(t, int64(1), stats.AcrossCount)
	assert.Equal(t, int64(1), stats.SnapshotCount)
	assert.Zero(t, stats.KeyFailures)
	assert.Zero(t, stats.ExtractErrors)
}

func TestAnalysis_Summarize(t *testing.T) {
	ctx := context.Background()

	an, err := parcelcorr.New(testAtlas(t), parcelcorr.WithWorkers(2))
	require.NoError(t, err)
	defer an.Close()

	st, err := an.ExtractStore(ctx, buildTestDataset(t))
	require.NoError(t, err)
	res, err := an.Run(ctx, st)
	require.NoError(t, err)

	s := parcelcorr.Summarize(st, res)
	assert.Equal(t, 2, s.Contrasts)
	assert.Equal(t, 2, s.Parcels)
	assert.Equal(t, 16, s.Records)
	assert.Equal(t, 2, s.Subjects)
	assert.Equal(t, 4, s.Classified)
	assert.Equal(t, 2, s.Canonical)
	assert.Equal(t, 0, s.Fingerprint)
	assert.Equal(t, 2, s.Variable)
	assert.InDelta(t, 0.0, s.MeanWithin, 1e-12)  // (1 - 1) / 2 per contrast
	assert.InDelta(t, 0.25, s.MeanBetween, 1e-12)

	// A store-only summary carries no classification counts.
	bare := parcelcorr.Summarize(st, nil)
	assert.Equal(t, 16, bare.Records)
	assert.Zero(t, bare.Classified)
}

func TestAnalysis_ExtractExclusions(t *testing.T) {
	ctx := context.Background()
	files := buildTestDataset(t)

	exclusions := dataset.NewExclusionSet(dataset.Exclusion{
		Subject: "sub-s01",
		Session: "ses-01",
		Task:    "nBack",
		Run:     "run-01",
	})

	an, err := parcelcorr.New(testAtlas(t),
		parcelcorr.WithWorkers(2),
		parcelcorr.WithExclusions(exclusions),
	)
	require.NoError(t, err)
	defer an.Close()

	st, err := an.ExtractStore(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 14, st.Len())
	assert.Len(t, st.Records(nBackKey, "LH_Vis"), 3)
	assert.Len(t, st.Records(flankerKey, "LH_Vis"), 4)
}

func TestAnalysis_ExtractNoRecords(t *testing.T) {
	an, err := parcelcorr.New(testAtlas(t), parcelcorr.WithWorkers(2))
	require.NoError(t, err)
	defer an.Close()

	_, err = an.ExtractStore(context.Background(), nil)
	assert.ErrorIs(t, err, parcelcorr.ErrNoRecords)
}

func TestAnalysis_ExtractGridMismatch(t *testing.T) {
	dir := t.TempDir()
	name := "sub-s01_ses-01_task-nBack_run-01_contrast-twoBack-oneBack_stat-effect-size.nii.gz"

	vol := &nifti.Volume{Dims: [3]int{2, 2, 1}, Data: []float64{1, 2, 3, 4}}
	path := filepath.Join(dir, name)
	require.NoError(t, nifti.Save(path, vol))

	f, err := dataset.ParseName(name)
	require.NoError(t, err)
	f.Path = path

	an, err := parcelcorr.New(testAtlas(t), parcelcorr.WithWorkers(1))
	require.NoError(t, err)
	defer an.Close()

	_, err = an.ExtractStore(context.Background(), []dataset.File{f})
	require.Error(t, err)

	var gm *parcelcorr.GridMismatchError
	require.ErrorAs(t, err, &gm)
	assert.Equal(t, [3]int{3, 2, 1}, gm.Want)
	assert.Equal(t, [3]int{2, 2, 1}, gm.Got)
}

func TestAnalysis_RunNoRecords(t *testing.T) {
	an, err := parcelcorr.New(testAtlas(t), parcelcorr.WithWorkers(1))
	require.NoError(t, err)
	defer an.Close()

	_, err = an.Run(context.Background(), nil)
	assert.ErrorIs(t, err, parcelcorr.ErrNoRecords)
}

func TestAnalysis_Closed(t *testing.T) {
	ctx := context.Background()

	an, err := parcelcorr.New(testAtlas(t), parcelcorr.WithWorkers(1))
	require.NoError(t, err)

	require.NoError(t, an.Close())
	require.NoError(t, an.Close())

	_, err = an.ExtractStore(ctx, buildTestDataset(t))
	assert.ErrorIs(t, err, parcelcorr.ErrClosed)

	_, err = an.Run(ctx, nil)
	assert.ErrorIs(t, err, parcelcorr.ErrClosed)

	err = an.SaveSnapshot(ctx, filepath.Join(t.TempDir(), "run.pcor"), nil, nil)
	assert.ErrorIs(t, err, parcelcorr.ErrClosed)
}
