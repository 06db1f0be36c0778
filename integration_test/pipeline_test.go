package integration_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	parcelcorr "github.com/hupe1980/parcelcorr"
	"github.com/hupe1980/parcelcorr/archive"
	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/dataset"
	"github.com/hupe1980/parcelcorr/manifest"
	"github.com/hupe1980/parcelcorr/nifti"
	"github.com/hupe1980/parcelcorr/report"
	"github.com/hupe1980/parcelcorr/similarity"
)

const (
	nBackKey   = "task-nBack_contrast-twoBack-oneBack"
	flankerKey = "task-flanker_contrast-incongruent-congruent"
)

// writeAtlasFiles writes a 3x2x1 label volume with two parcels plus
// its TSV lookup table and returns both paths.
func writeAtlasFiles(t *testing.T, dir string) (volumePath, namesPath string) {
	t.Helper()

	volumePath = filepath.Join(dir, "atlas.nii.gz")
	require.NoError(t, nifti.Save(volumePath, &nifti.Volume{
		Dims: [3]int{3, 2, 1},
		Data: []float64{1, 1, 1, 2, 2, 0},
	}))

	namesPath = filepath.Join(dir, "atlas.tsv")
	require.NoError(t, os.WriteFile(namesPath, []byte("index\tname\n1\tLH_Vis\n2\tRH_Mot\n"), 0o644))

	return volumePath, namesPath
}

// writeDataset lays out a BIDS-style derivatives tree with two
// subjects, two sessions and two contrasts.
func writeDataset(t *testing.T, root string) {
	t.Helper()

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

	for _, tc := range []struct{ task, contrast string }{
		{"nBack", "twoBack-oneBack"},
		{"flanker", "incongruent-congruent"},
	} {
		for _, a := range acquisitions {
			dir := filepath.Join(root, a.subject, a.session, "indiv_contrasts")
			require.NoError(t, os.MkdirAll(dir, 0o755))

			name := fmt.Sprintf("%s_%s_task-%s_run-01_contrast-%s_rtmodel-rt_centered_stat-effect-size.nii.gz",
				a.subject, a.session, tc.task, tc.contrast)
			vol := &nifti.Volume{
				Dims: [3]int{3, 2, 1},
				Data: []float64{a.p1[0], a.p1[1], a.p1[2], a.p2[0], a.p2[1], 0},
			}
			require.NoError(t, nifti.Save(filepath.Join(dir, name), vol))
		}
	}
}

func writeExclusions(t *testing.T, dir string) string {
	t.Helper()

	path := filepath.Join(dir, "exclusions.json")
	content := `{
		"fmriprep_exclusions": [
			{"subject": "sub-s02", "session": "ses-02", "task": "flanker", "run": "run-01"}
		],
		"behavioral_exclusions": []
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestPipeline(t *testing.T) {
	ctx := context.Background()
	base := t.TempDir()

	inputDir := filepath.Join(base, "input")
	outputDir := filepath.Join(base, "output")
	require.NoError(t, os.MkdirAll(outputDir, 0o755))

	writeDataset(t, inputDir)
	volumePath, namesPath := writeAtlasFiles(t, base)

	atl, err := atlas.Load(volumePath, namesPath)
	require.NoError(t, err)
	require.Equal(t, 2, atl.NumParcels())

	exclusions, err := dataset.LoadExclusions(writeExclusions(t, base))
	require.NoError(t, err)
	require.Equal(t, 1, exclusions.Len())

	analysis, err := parcelcorr.New(atl,
		parcelcorr.WithWorkers(4),
		parcelcorr.WithExclusions(exclusions),
		parcelcorr.WithConstructs(construct.Map{
			"Working Memory": {nBackKey, flankerKey},
		}),
	)
	require.NoError(t, err)
	defer analysis.Close()

	// Discover and extract.
	files, skipped, err := dataset.Discover(inputDir, []string{"sub-s01", "sub-s02"})
	require.NoError(t, err)
	require.Empty(t, skipped)
	require.Len(t, files, 8)

	st, err := analysis.ExtractStore(ctx, files)
	require.NoError(t, err)
	assert.Equal(t, 14, st.Len()) // one scan excluded, 2 parcels each

	// Analyze.
	res, err := analysis.Run(ctx, st)
	require.NoError(t, err)
	assert.True(t, res.Labels.Is(nBackKey, "LH_Vis", similarity.LabelCanonical))
	assert.True(t, res.Labels.Is(nBackKey, "RH_Mot", similarity.LabelVariable))
	assert.True(t, res.Labels.Is(flankerKey, "LH_Vis", similarity.LabelCanonical))
	assert.True(t, res.Labels.Is(flankerKey, "RH_Mot", similarity.LabelVariable))

	// Snapshot, reports, manifest.
	require.NoError(t, analysis.SaveSnapshot(ctx, filepath.Join(outputDir, "run.pcor"), st, res))

	reports, err := report.ExportCSV(outputDir, res)
	require.NoError(t, err)
	require.Len(t, reports, 6)

	ms := manifest.NewStore(nil, outputDir)
	outputs, err := ms.ScanOutputs(append([]string{"run.pcor"}, reports...)...)
	require.NoError(t, err)
	require.NoError(t, ms.Save(&manifest.Manifest{
		CreatedAt:   time.Now().UTC(),
		DatasetRoot: inputDir,
		Subjects:    []string{"sub-s01", "sub-s02"},
		Atlas:       "atlas.nii.gz (2 parcels)",
		Threshold:   analysis.Threshold(),
		Workers:     analysis.Workers(),
		Outputs:     outputs,
	}))

	loaded, err := ms.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), loaded.ID)
	assert.Len(t, loaded.Outputs, 7)
	require.NoError(t, ms.VerifyOutputs(loaded))

	// Reload the snapshot and cross-check against a serial pass.
	st2, res2, err := parcelcorr.LoadSnapshot(filepath.Join(outputDir, "run.pcor"))
	require.NoError(t, err)
	require.NotNil(t, res2)
	assert.Equal(t, res.Labels, res2.Labels)
	assert.Equal(t, similarity.Within(st2), res2.Within)
	assert.Equal(t, similarity.Between(st2), res2.Between)

	// Archive the run directory and compare the uploaded snapshot.
	archiveDir := filepath.Join(base, "archive")
	uploaded, err := archive.UploadRun(ctx, archive.NewLocal(archiveDir), outputDir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CURRENT",
		"MANIFEST-000001.json",
		"classification_summary.csv",
		"cross_contrast_consistency.csv",
		"most_canonical_parcels.csv",
		"most_fingerprint_parcels.csv",
		"most_variable_parcels.csv",
		"parcel_classifications.csv",
		"run.pcor",
	}, uploaded)

	want, err := os.ReadFile(filepath.Join(outputDir, "run.pcor"))
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(archiveDir, "run.pcor"))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
