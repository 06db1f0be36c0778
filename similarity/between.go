package similarity

import (
	"github.com/hupe1980/parcelcorr/correlate"
	"github.com/hupe1980/parcelcorr/store"
)

// Between computes the between-subject similarity for every contrast
// and parcel in the store, serially. A value is present only when the
// parcel has recordings from at least two distinct subjects and at
// least one cross-subject pair has a defined correlation.
func Between(s *store.Store) Scores {
	out := make(Scores)
	for _, key := range s.Keys() {
		if v, ok := betweenKey(s, key.Contrast, key.Parcel); ok {
			out.Set(key.Contrast, key.Parcel, v)
		}
	}
	return out
}

// betweenKey computes the between-subject similarity for one contrast
// and parcel: the mean correlation over all recording pairs belonging
// to different subjects. Undefined pairs are dropped.
func betweenKey(s *store.Store, contrast, parcel string) (float64, bool) {
	records := s.Records(contrast, parcel)

	subjects := make(map[string]struct{}, len(records))
	for _, rec := range records {
		subjects[rec.Subject] = struct{}{}
	}
	if len(subjects) < 2 {
		return 0, false
	}

	var sum float64
	var n int
	for i := 0; i < len(records); i++ {
		for j := i + 1; j < len(records); j++ {
			if records[i].Subject == records[j].Subject {
				continue
			}
			if r, ok := correlate.Pairwise(records[i].Voxels, records[j].Voxels); ok {
				sum += r
				n++
			}
		}
	}
	if n == 0 {
		return 0, false
	}

	return sum / float64(n), true
}
