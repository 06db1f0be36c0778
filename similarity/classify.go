package similarity

// DefaultThreshold is the classification threshold applied to the sum
// and difference of within- and between-subject similarity.
const DefaultThreshold = 0.1

// Classify assigns a stability label from one within/between pair.
// Rules apply in order with strict comparisons, so a sum or
// difference landing exactly on the threshold falls through to the
// next rule:
//
//	within + between < threshold  -> variable
//	within - between < threshold  -> indiv_fingerprint
//	otherwise                     -> canonical
func Classify(within, between, threshold float64) Label {
	switch {
	case within+between < threshold:
		return LabelVariable
	case within-between < threshold:
		return LabelIndivFingerprint
	default:
		return LabelCanonical
	}
}

// ClassifyParcels labels every (contrast, parcel) pair that carries
// both a within- and a between-subject score. Pairs missing either
// score are left out.
func ClassifyParcels(within, between Scores, threshold float64) Labels {
	out := make(Labels, len(within))

	for contrast, parcels := range within {
		betweenParcels, ok := between[contrast]
		if !ok {
			continue
		}
		for parcel, w := range parcels {
			b, ok := betweenParcels[parcel]
			if !ok {
				continue
			}
			out.Set(contrast, parcel, Classify(w, b, threshold))
		}
	}

	return out
}
