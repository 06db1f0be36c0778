package similarity

import (
	"fmt"

	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/correlate"
	"github.com/hupe1980/parcelcorr/store"
)

// Across computes the across-construct similarity for every contrast
// and parcel in the store, serially. Parcels labeled variable are
// skipped; a nil labels map skips nothing. Keys whose aggregation
// fails are left out.
func Across(s *store.Store, constructs construct.Map, labels Labels) ConstructScores {
	out := make(ConstructScores)
	for _, key := range s.Keys() {
		if labels.Is(key.Contrast, key.Parcel, LabelVariable) {
			continue
		}
		scores, err := acrossKey(s, constructs, key.Contrast, key.Parcel)
		if err != nil || len(scores) == 0 {
			continue
		}
		out.Set(key.Contrast, key.Parcel, scores)
	}
	return out
}

// acrossKey computes the across-construct similarity for one contrast
// and parcel. For each construct containing the contrast, the member
// contrasts present in the store are located; when two or more remain,
// every member's records for the parcel are concatenated in canonical
// order into one aggregate vector per member, and the mean of the
// defined upper-triangle correlations over those aggregates becomes
// the construct's score. Constructs without a defined score are left
// out of the result.
//
// A non-nil error means the whole (contrast, parcel) key failed, e.g.
// when member aggregates disagree in length because record counts
// differ across contrasts.
func acrossKey(s *store.Store, constructs construct.Map, contrast, parcel string) (map[string]float64, error) {
	names := constructs.ConstructsFor(contrast)
	if len(names) == 0 {
		return nil, nil
	}

	var out map[string]float64
	for _, name := range names {
		var members []string
		for _, member := range constructs[name] {
			if s.HasContrast(member) {
				members = append(members, member)
			}
		}
		if len(members) < 2 {
			continue
		}

		var rows [][]float64
		for _, member := range members {
			records := s.Records(member, parcel)
			if len(records) == 0 {
				continue
			}
			agg := make([]float64, 0, len(records)*s.ParcelLen(parcel))
			for _, rec := range records {
				agg = append(agg, rec.Voxels...)
			}
			rows = append(rows, agg)
		}
		if len(rows) < 2 {
			continue
		}

		tri, err := correlate.UpperTriangle(rows)
		if err != nil {
			return nil, fmt.Errorf("construct %q: %w", name, err)
		}
		if m, ok := correlate.MeanDefined(tri); ok {
			if out == nil {
				out = make(map[string]float64, len(names))
			}
			out[name] = m
		}
	}

	return out, nil
}
