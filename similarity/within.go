package similarity

import (
	"github.com/hupe1980/parcelcorr/correlate"
	"github.com/hupe1980/parcelcorr/store"
)

// Within computes the within-subject similarity for every contrast
// and parcel in the store, serially. A value is present only when at
// least one subject contributes two or more recordings with a defined
// correlation.
func Within(s *store.Store) Scores {
	out := make(Scores)
	for _, key := range s.Keys() {
		if v, ok := withinKey(s, key.Contrast, key.Parcel); ok {
			out.Set(key.Contrast, key.Parcel, v)
		}
	}
	return out
}

// withinKey computes the within-subject similarity for one contrast
// and parcel: the per-subject mean of all pairwise correlations
// between the subject's recordings, averaged over subjects with two
// or more recordings. The boolean result is false when no subject
// qualifies.
func withinKey(s *store.Store, contrast, parcel string) (float64, bool) {
	records := s.Records(contrast, parcel)

	// Records arrive in canonical order, so subjects group
	// contiguously and the iteration below is deterministic.
	var subjects []string
	groups := make(map[string][][]float64)
	for _, rec := range records {
		if _, ok := groups[rec.Subject]; !ok {
			subjects = append(subjects, rec.Subject)
		}
		groups[rec.Subject] = append(groups[rec.Subject], rec.Voxels)
	}

	var means []float64
	for _, subject := range subjects {
		rows := groups[subject]
		if len(rows) < 2 {
			continue
		}
		tri, err := correlate.UpperTriangle(rows)
		if err != nil {
			// Row lengths are uniform per parcel, enforced at build time.
			continue
		}
		if m, ok := correlate.MeanDefined(tri); ok {
			means = append(means, m)
		}
	}

	return correlate.MeanDefined(means)
}
