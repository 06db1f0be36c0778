package parcelcorr_test

import (
	"context"
	"fmt"
	"log"

	parcelcorr "github.com/hupe1980/parcelcorr"
	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/model"
	"github.com/hupe1980/parcelcorr/nifti"
	"github.com/hupe1980/parcelcorr/store"
)

// Example classifies two parcels from hand-built records. One parcel
// repeats its pattern across sessions, the other flips it.
func Example() {
	labels := &nifti.Volume{
		Dims: [3]int{3, 2, 1},
		Data: []float64{1, 1, 1, 2, 2, 0},
	}
	atl, err := atlas.New(labels, []string{"LH_Vis", "RH_Mot"})
	if err != nil {
		log.Fatal(err)
	}

	analysis, err := parcelcorr.New(atl, parcelcorr.WithWorkers(2))
	if err != nil {
		log.Fatal(err)
	}
	defer analysis.Close()

	const contrast = "task-nBack_contrast-twoBack-oneBack"

	builder := store.NewBuilder()
	add := func(parcel, subject, session string, voxels []float64) {
		err := builder.Add(contrast, parcel, model.Record{
			Subject: subject,
			Session: session,
			Run:     "run-01",
			Voxels:  voxels,
		})
		if err != nil {
			log.Fatal(err)
		}
	}

	add("LH_Vis", "sub-s01", "ses-01", []float64{1, 2, 3})
	add("LH_Vis", "sub-s01", "ses-02", []float64{1, 2, 3})
	add("LH_Vis", "sub-s02", "ses-01", []float64{1, 3, 2})
	add("LH_Vis", "sub-s02", "ses-02", []float64{1, 3, 2})

	add("RH_Mot", "sub-s01", "ses-01", []float64{1, 2})
	add("RH_Mot", "sub-s01", "ses-02", []float64{2, 1})
	add("RH_Mot", "sub-s02", "ses-01", []float64{1, 2})
	add("RH_Mot", "sub-s02", "ses-02", []float64{2, 1})

	results, err := analysis.Run(context.Background(), builder.Build())
	if err != nil {
		log.Fatal(err)
	}

	for _, parcel := range []string{"LH_Vis", "RH_Mot"} {
		label, _ := results.Labels.Get(contrast, parcel)
		fmt.Printf("%s: %s\n", parcel, label)
	}
	// Output:
	// LH_Vis: canonical
	// RH_Mot: variable
}
