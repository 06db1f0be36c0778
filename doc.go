// Package parcelcorr computes parcel-level similarity statistics over
// fMRI contrast maps and classifies brain regions by the stability of
// their response patterns.
//
// The pipeline aggregates per-subject, per-session effect size images
// into voxel records grouped by contrast and atlas parcel, then
// derives three families of Pearson correlations:
//
//   - Within-subject similarity: session-to-session consistency of a
//     parcel's response inside each subject.
//   - Between-subject similarity: consistency of the response across
//     different subjects.
//   - Across-construct similarity: consistency across task contrasts
//     sharing a cognitive construct label.
//
// Each (contrast, parcel) pair holding both first-order scores is
// classified as canonical (group-consistent), indiv_fingerprint
// (subject-specific) or variable (unreliable).
//
// # Quick Start
//
//	ctx := context.Background()
//
//	atl, err := atlas.Load("atlas.nii.gz", "atlas_names.txt")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	an, err := parcelcorr.New(atl,
//	    parcelcorr.WithThreshold(0.1),
//	    parcelcorr.WithWorkers(8),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer an.Close()
//
//	files, _, err := dataset.Discover("./derivatives", subjects)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	st, err := an.ExtractStore(ctx, files)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	res, err := an.Run(ctx, st)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := an.SaveSnapshot(ctx, "run.pcor", st, res); err != nil {
//	    log.Fatal(err)
//	}
//
// Derived tables (per-parcel statistics, rankings, cross-contrast
// consistency) and their CSV export live in the report package; run
// manifests in manifest; output upload in archive.
//
// # Determinism
//
// Stores iterate contrasts, parcels and records in canonical sorted
// order, so repeated runs over the same input produce identical
// results, snapshots and reports regardless of worker count.
package parcelcorr
