package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	parcelcorr "github.com/hupe1980/parcelcorr"
	"github.com/hupe1980/parcelcorr/archive"
	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/dataset"
	"github.com/hupe1980/parcelcorr/manifest"
	"github.com/hupe1980/parcelcorr/persistence"
	"github.com/hupe1980/parcelcorr/report"
)

// snapshotName is the snapshot file a run writes into the output
// directory.
const snapshotName = "run.pcor"

var (
	runInputDir     string
	runOutputDir    string
	runSubjects     []string
	runAtlas        string
	runAtlasNames   string
	runExclusions   string
	runConstructMap string
	runThreshold    float64
	runWorkers      int
	runCompression  string
	runArchive      string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis pipeline",
	Long: `Discovers effect size images, extracts parcel records, computes the
similarity statistics, classifies parcels and writes the snapshot, run
manifest and CSV reports into the output directory.

Examples:
  parcelcorr run --input-dir /data/derivatives --output-dir out \
    --atlas atlas.nii.gz --atlas-names atlas.tsv --exclusions qc.json
  parcelcorr run ... --archive s3://results/discovery-run
  PARCELCORR_WORKERS=8 parcelcorr run ...`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInputDir, "input-dir", "", "Directory holding first-level outputs, one tree per subject")
	runCmd.Flags().StringVar(&runOutputDir, "output-dir", "", "Directory for snapshot, manifest and reports")
	runCmd.Flags().StringSliceVar(&runSubjects, "subjects", []string{"sub-s03", "sub-s10", "sub-s19", "sub-s29", "sub-s43"},
		"Subjects to include")
	runCmd.Flags().StringVar(&runAtlas, "atlas", "", "Atlas label volume (.nii or .nii.gz)")
	runCmd.Flags().StringVar(&runAtlasNames, "atlas-names", "", "Atlas lookup table (TSV with a name column)")
	runCmd.Flags().StringVar(&runExclusions, "exclusions", "", "Quality-control exclusions JSON (required)")
	runCmd.Flags().StringVar(&runConstructMap, "construct-map", "", "Construct-to-contrast map JSON (default: built-in battery table)")
	runCmd.Flags().Float64Var(&runThreshold, "threshold", 0.1, "Classification threshold")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Worker count (0 = auto)")
	runCmd.Flags().StringVar(&runCompression, "compression", "zstd", "Snapshot voxel payload compression: zstd, lz4 or none")
	runCmd.Flags().StringVar(&runArchive, "archive", "",
		"Upload destination: local path, s3://bucket/prefix or minio://endpoint/bucket/prefix")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	if err := bindConfig(cmd); err != nil {
		return err
	}

	// Required flags are checked after binding so env vars and config
	// files can supply them too.
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"input-dir", runInputDir},
		{"output-dir", runOutputDir},
		{"atlas", runAtlas},
		{"atlas-names", runAtlasNames},
		{"exclusions", runExclusions},
	} {
		if f.value == "" {
			missing = append(missing, "--"+f.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	atl, err := atlas.Load(runAtlas, runAtlasNames)
	if err != nil {
		return err
	}

	exclusions, err := dataset.LoadExclusions(runExclusions)
	if err != nil {
		return err
	}

	constructs := construct.Default()
	if runConstructMap != "" {
		if constructs, err = construct.Load(runConstructMap); err != nil {
			return err
		}
	}

	compression, err := persistence.ParseCompression(runCompression)
	if err != nil {
		return err
	}

	analysis, err := parcelcorr.New(atl,
		parcelcorr.WithThreshold(runThreshold),
		parcelcorr.WithWorkers(runWorkers),
		parcelcorr.WithConstructs(constructs),
		parcelcorr.WithExclusions(exclusions),
		parcelcorr.WithCompression(compression),
		parcelcorr.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	defer analysis.Close()

	ctx := cmd.Context()

	files, skipped, err := dataset.Discover(runInputDir, runSubjects)
	if err != nil {
		return err
	}
	for _, path := range skipped {
		logger.Warn("skipping unparseable file", "path", path)
	}
	fmt.Printf("Discovered %d effect size images for %d subjects\n", len(files), len(runSubjects))

	st, err := analysis.ExtractStore(ctx, files)
	if err != nil {
		return err
	}
	fmt.Printf("Extracted %d records across %d contrasts and %d parcels\n",
		st.Len(), len(st.Contrasts()), atl.NumParcels())

	if err := os.MkdirAll(runOutputDir, 0o755); err != nil {
		return err
	}

	// Snapshot the store first so the extraction survives a failed
	// analysis, then re-save with the results attached.
	snapshotPath := filepath.Join(runOutputDir, snapshotName)
	if err := analysis.SaveSnapshot(ctx, snapshotPath, st, nil); err != nil {
		return err
	}

	results, err := analysis.Run(ctx, st)
	if err != nil {
		return err
	}

	if err := analysis.SaveSnapshot(ctx, snapshotPath, st, results); err != nil {
		return err
	}

	reports, err := report.ExportCSV(runOutputDir, results)
	if err != nil {
		return err
	}
	logger.LogExport(ctx, runOutputDir, len(reports), nil)

	ms := manifest.NewStore(nil, runOutputDir)
	outputs, err := ms.ScanOutputs(append([]string{snapshotName}, reports...)...)
	if err != nil {
		return err
	}
	err = ms.Save(&manifest.Manifest{
		CreatedAt:   time.Now().UTC(),
		DatasetRoot: runInputDir,
		Subjects:    runSubjects,
		Atlas:       fmt.Sprintf("%s (%d parcels)", filepath.Base(runAtlas), atl.NumParcels()),
		Threshold:   analysis.Threshold(),
		Workers:     analysis.Workers(),
		Outputs:     outputs,
	})
	if err != nil {
		return err
	}

	summary := parcelcorr.Summarize(st, results)
	fmt.Printf("Classified %d parcel keys: %d canonical, %d indiv_fingerprint, %d variable\n",
		summary.Classified, summary.Canonical, summary.Fingerprint, summary.Variable)
	fmt.Printf("Snapshot: %s\n", snapshotPath)
	fmt.Printf("Reports:  %d CSV files in %s\n", len(reports), runOutputDir)

	if runArchive != "" {
		backend, err := archive.New(ctx, runArchive)
		if err != nil {
			return err
		}
		uploaded, err := archive.UploadRun(ctx, backend, runOutputDir)
		logger.LogUpload(ctx, runArchive, len(uploaded), err)
		if err != nil {
			return err
		}
		fmt.Printf("Uploaded: %d objects to %s\n", len(uploaded), runArchive)
	}

	return nil
}
