package main

import (
	"context"
	"fmt"
	"log"
	"time"

	parcelcorr "github.com/hupe1980/parcelcorr"
	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/nifti"
	"github.com/hupe1980/parcelcorr/report"
	"github.com/hupe1980/parcelcorr/testutil"
)

func main() {
	seed := int64(4711)
	parcels := 100
	voxelsPerParcel := 50

	// Synthetic atlas: a flat grid with `parcels` parcels of equal size.
	dims := [3]int{voxelsPerParcel, parcels, 1}
	labels := make([]float64, dims[0]*dims[1]*dims[2])
	names := make([]string, parcels)
	for p := range parcels {
		names[p] = testutil.ParcelName(p)
		for v := range voxelsPerParcel {
			labels[p*voxelsPerParcel+v] = float64(p + 1)
		}
	}

	atl, err := atlas.New(&nifti.Volume{Dims: dims, Data: labels}, names)
	if err != nil {
		log.Fatal(err)
	}

	analysis, err := parcelcorr.New(atl, parcelcorr.WithConstructs(construct.Map{
		"Demo Construct": {testutil.ContrastName(0), testutil.ContrastName(1)},
	}))
	if err != nil {
		log.Fatal(err)
	}
	defer analysis.Close()

	cfg := testutil.StoreConfig{
		Contrasts:    2,
		Parcels:      parcels,
		Subjects:     5,
		Sessions:     2,
		Voxels:       voxelsPerParcel,
		SessionNoise: 0.5,
	}
	st, err := testutil.NewRNG(seed).GenerateStore(cfg)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Println("--- Analyze ---")
	fmt.Println("Contrasts:", cfg.Contrasts)
	fmt.Println("Parcels:", cfg.Parcels)
	fmt.Println("Records:", st.Len())

	start := time.Now()

	results, err := analysis.Run(context.Background(), st)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Seconds: %.2f\n\n", time.Since(start).Seconds())

	summary := parcelcorr.Summarize(st, results)
	fmt.Println("--- Classification ---")
	fmt.Println("canonical:", summary.Canonical)
	fmt.Println("indiv_fingerprint:", summary.Fingerprint)
	fmt.Println("variable:", summary.Variable)
	fmt.Printf("mean within:  %.4f\n", summary.MeanWithin)
	fmt.Printf("mean between: %.4f\n\n", summary.MeanBetween)

	fmt.Println("--- Top fingerprint parcels ---")
	for _, r := range report.RankByFingerprint(results, 10) {
		fmt.Printf("#%d %s/%s score %.4f (%s)\n", r.Rank, r.Contrast, r.Parcel, r.Score, r.Label)
	}
}
