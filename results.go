package parcelcorr

import (
	"github.com/hupe1980/parcelcorr/similarity"
	"github.com/hupe1980/parcelcorr/store"
)

// Results bundles the outputs of one analysis run: the two
// first-order similarity maps, the classification labels and the
// across-construct similarity. See similarity.Results for the field
// semantics.
type Results = similarity.Results

// Summary condenses a store and its results into counts and global
// means, for inspection output and run manifests.
type Summary struct {
	Contrasts int
	Parcels   int // distinct parcel names across all contrasts
	Records   int
	Subjects  int

	Classified  int
	Canonical   int
	Fingerprint int
	Variable    int

	// MeanWithin and MeanBetween are the grand means over all stored
	// scores, zero when no score exists.
	MeanWithin  float64
	MeanBetween float64
}

// Summarize derives a Summary from a store and optional results. res
// may be nil when a snapshot carries no results yet.
func Summarize(st *store.Store, res *Results) Summary {
	var s Summary

	if st != nil {
		contrasts := st.Contrasts()
		s.Contrasts = len(contrasts)
		s.Records = st.Len()
		s.Subjects = len(st.Subjects())

		parcels := make(map[string]struct{})
		for _, contrast := range contrasts {
			for _, parcel := range st.Parcels(contrast) {
				parcels[parcel] = struct{}{}
			}
		}
		s.Parcels = len(parcels)
	}

	if res != nil {
		s.Classified = res.Labels.Len()
		s.Canonical = res.Labels.Count(similarity.LabelCanonical)
		s.Fingerprint = res.Labels.Count(similarity.LabelIndivFingerprint)
		s.Variable = res.Labels.Count(similarity.LabelVariable)
		s.MeanWithin, _ = res.Within.Mean()
		s.MeanBetween, _ = res.Between.Mean()
	}

	return s
}
