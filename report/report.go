// Package report derives tabular summaries from similarity results:
// per-parcel statistics, classification summaries, rankings and
// cross-contrast consistency, plus their CSV export.
package report

import (
	"math"
	"sort"

	"github.com/hupe1980/parcelcorr/similarity"
)

// DefaultTopN is the number of rows a ranking keeps when no limit is
// configured.
const DefaultTopN = 50

// ParcelStat holds the derived statistics for one classified
// (contrast, parcel) pair.
type ParcelStat struct {
	Contrast string
	Parcel   string
	Label    similarity.Label

	Within     float64
	Between    float64
	Difference float64 // Within - Between
	Sum        float64 // Within + Between
	Ratio      float64 // Within / Between, +Inf when Between == 0
}

// Statistics computes per-key statistics for every key that carries a
// label and both similarity values, sorted by contrast then parcel.
// Keys missing either similarity value are skipped.
func Statistics(res *similarity.Results) []ParcelStat {
	stats := make([]ParcelStat, 0, res.Labels.Len())

	forEachScored(res, func(contrast, parcel string, within, between float64, label similarity.Label) {
		ratio := math.Inf(1)
		if between != 0 {
			ratio = within / between
		}
		stats = append(stats, ParcelStat{
			Contrast:   contrast,
			Parcel:     parcel,
			Label:      label,
			Within:     within,
			Between:    between,
			Difference: within - between,
			Sum:        within + between,
			Ratio:      ratio,
		})
	})

	return stats
}

// SummaryRow counts the labels assigned for one contrast.
type SummaryRow struct {
	Contrast string
	Total    int

	Canonical      int
	CanonicalPct   float64
	Fingerprint    int
	FingerprintPct float64
	Variable       int
	VariablePct    float64
}

// Summary returns one row per contrast, sorted by contrast, followed
// by an aggregate row named OVERALL. Contrasts with no labels are
// omitted.
func Summary(labels similarity.Labels) []SummaryRow {
	contrasts := make([]string, 0, len(labels))
	for contrast := range labels {
		contrasts = append(contrasts, contrast)
	}
	sort.Strings(contrasts)

	rows := make([]SummaryRow, 0, len(contrasts)+1)
	var overall SummaryRow

	for _, contrast := range contrasts {
		row := SummaryRow{Contrast: contrast}
		for _, label := range labels[contrast] {
			row.Total++
			switch label {
			case similarity.LabelCanonical:
				row.Canonical++
			case similarity.LabelIndivFingerprint:
				row.Fingerprint++
			case similarity.LabelVariable:
				row.Variable++
			}
		}
		if row.Total == 0 {
			continue
		}
		fillPercentages(&row)

		overall.Total += row.Total
		overall.Canonical += row.Canonical
		overall.Fingerprint += row.Fingerprint
		overall.Variable += row.Variable

		rows = append(rows, row)
	}

	overall.Contrast = "OVERALL"
	if overall.Total > 0 {
		fillPercentages(&overall)
		rows = append(rows, overall)
	}

	return rows
}

func fillPercentages(row *SummaryRow) {
	total := float64(row.Total)
	row.CanonicalPct = float64(row.Canonical) / total * 100
	row.FingerprintPct = float64(row.Fingerprint) / total * 100
	row.VariablePct = float64(row.Variable) / total * 100
}

// RankedParcel is one row of a ranking.
type RankedParcel struct {
	Rank     int
	Contrast string
	Parcel   string
	Score    float64
	Label    similarity.Label
}

// RankByFingerprint ranks classified keys by fingerprint strength
// (within minus between), strongest first. topN <= 0 falls back to
// DefaultTopN.
func RankByFingerprint(res *similarity.Results, topN int) []RankedParcel {
	return rank(res, topN, func(within, between float64) float64 {
		return within - between
	})
}

// RankByVariability ranks classified keys by variability, the negated
// similarity sum. The smallest sum scores highest, so the least
// reliable parcels come first.
func RankByVariability(res *similarity.Results, topN int) []RankedParcel {
	return rank(res, topN, func(within, between float64) float64 {
		return -(within + between)
	})
}

// RankByCanonicality ranks classified keys by canonicality (within
// times the within-between difference), most canonical first.
func RankByCanonicality(res *similarity.Results, topN int) []RankedParcel {
	return rank(res, topN, func(within, between float64) float64 {
		return within * (within - between)
	})
}

func rank(res *similarity.Results, topN int, score func(within, between float64) float64) []RankedParcel {
	if topN <= 0 {
		topN = DefaultTopN
	}

	rows := make([]RankedParcel, 0, res.Labels.Len())
	forEachScored(res, func(contrast, parcel string, within, between float64, label similarity.Label) {
		rows = append(rows, RankedParcel{
			Contrast: contrast,
			Parcel:   parcel,
			Score:    score(within, between),
			Label:    label,
		})
	})

	// forEachScored emits rows in (contrast, parcel) order; a stable
	// sort keeps that as the tie break.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Score > rows[j].Score
	})

	if len(rows) > topN {
		rows = rows[:topN]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}

	return rows
}

// forEachScored visits every labeled key holding both similarity
// values, in (contrast, parcel) order.
func forEachScored(res *similarity.Results, fn func(contrast, parcel string, within, between float64, label similarity.Label)) {
	contrasts := make([]string, 0, len(res.Labels))
	for contrast := range res.Labels {
		contrasts = append(contrasts, contrast)
	}
	sort.Strings(contrasts)

	for _, contrast := range contrasts {
		parcels := make([]string, 0, len(res.Labels[contrast]))
		for parcel := range res.Labels[contrast] {
			parcels = append(parcels, parcel)
		}
		sort.Strings(parcels)

		for _, parcel := range parcels {
			within, ok := res.Within.Value(contrast, parcel)
			if !ok {
				continue
			}
			between, ok := res.Between.Value(contrast, parcel)
			if !ok {
				continue
			}
			fn(contrast, parcel, within, between, res.Labels[contrast][parcel])
		}
	}
}

// Consistency describes how consistently one parcel is classified
// across contrasts.
type Consistency struct {
	Parcel     string
	MostCommon similarity.Label
	Score      float64 // proportion of the most common label
	Contrasts  int

	CanonicalProportion   float64
	FingerprintProportion float64
	VariableProportion    float64
}

// CrossContrastConsistency aggregates each parcel's labels across
// every contrast. Rows are sorted by consistency score descending,
// then by parcel name.
func CrossContrastConsistency(labels similarity.Labels) []Consistency {
	type counts struct {
		canonical   int
		fingerprint int
		variable    int
		total       int
	}

	byParcel := make(map[string]*counts)
	for _, parcels := range labels {
		for parcel, label := range parcels {
			c, ok := byParcel[parcel]
			if !ok {
				c = &counts{}
				byParcel[parcel] = c
			}
			c.total++
			switch label {
			case similarity.LabelCanonical:
				c.canonical++
			case similarity.LabelIndivFingerprint:
				c.fingerprint++
			case similarity.LabelVariable:
				c.variable++
			}
		}
	}

	rows := make([]Consistency, 0, len(byParcel))
	for parcel, c := range byParcel {
		total := float64(c.total)

		// Ties go to the first label in declaration order.
		most, n := similarity.LabelVariable, c.variable
		if c.fingerprint > n {
			most, n = similarity.LabelIndivFingerprint, c.fingerprint
		}
		if c.canonical > n {
			most, n = similarity.LabelCanonical, c.canonical
		}

		rows = append(rows, Consistency{
			Parcel:                parcel,
			MostCommon:            most,
			Score:                 float64(n) / total,
			Contrasts:             c.total,
			CanonicalProportion:   float64(c.canonical) / total,
			FingerprintProportion: float64(c.fingerprint) / total,
			VariableProportion:    float64(c.variable) / total,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Score != rows[j].Score {
			return rows[i].Score > rows[j].Score
		}
		return rows[i].Parcel < rows[j].Parcel
	})

	return rows
}
