package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hupe1980/parcelcorr/similarity"
)

// File names produced by ExportCSV, in write order.
const (
	ClassificationsFile = "parcel_classifications.csv"
	SummaryFile         = "classification_summary.csv"
	FingerprintFile     = "most_fingerprint_parcels.csv"
	VariableFile        = "most_variable_parcels.csv"
	CanonicalFile       = "most_canonical_parcels.csv"
	ConsistencyFile     = "cross_contrast_consistency.csv"
)

// Options configure the CSV export.
type Options struct {
	// TopN caps the number of rows in each ranking file. Defaults to
	// DefaultTopN.
	TopN int
}

// ExportCSV writes the six report files into dir, creating it if
// needed, and returns the file names in write order.
func ExportCSV(dir string, res *similarity.Results, optFns ...func(o *Options)) ([]string, error) {
	opts := Options{TopN: DefaultTopN}
	for _, fn := range optFns {
		fn(&opts)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("report: create directory: %w", err)
	}

	files := []struct {
		name  string
		write func(w io.Writer) error
	}{
		{ClassificationsFile, func(w io.Writer) error {
			return WriteStatisticsCSV(w, Statistics(res))
		}},
		{SummaryFile, func(w io.Writer) error {
			return WriteSummaryCSV(w, Summary(res.Labels))
		}},
		{FingerprintFile, func(w io.Writer) error {
			return WriteRankingCSV(w, "fingerprint_strength", RankByFingerprint(res, opts.TopN))
		}},
		{VariableFile, func(w io.Writer) error {
			return WriteRankingCSV(w, "variability_score", RankByVariability(res, opts.TopN))
		}},
		{CanonicalFile, func(w io.Writer) error {
			return WriteRankingCSV(w, "canonicality_score", RankByCanonicality(res, opts.TopN))
		}},
		{ConsistencyFile, func(w io.Writer) error {
			return WriteConsistencyCSV(w, CrossContrastConsistency(res.Labels))
		}},
	}

	names := make([]string, 0, len(files))
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return nil, err
		}
		names = append(names, f.name)
	}

	return names, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("report: create %s: %w", filepath.Base(path), err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("report: write %s: %w", filepath.Base(path), err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("report: close %s: %w", filepath.Base(path), err)
	}

	return nil
}

// WriteStatisticsCSV writes per-parcel statistics with six decimal
// places.
func WriteStatisticsCSV(w io.Writer, stats []ParcelStat) error {
	cw := csv.NewWriter(w)

	header := []string{
		"contrast", "parcel", "classification",
		"within_subject_similarity", "between_subject_similarity",
		"similarity_difference", "similarity_sum", "similarity_ratio",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, s := range stats {
		record := []string{
			s.Contrast,
			s.Parcel,
			s.Label.String(),
			formatScore(s.Within, 6),
			formatScore(s.Between, 6),
			formatScore(s.Difference, 6),
			formatScore(s.Sum, 6),
			formatScore(s.Ratio, 6),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteSummaryCSV writes per-contrast label counts with percentages
// to two decimal places.
func WriteSummaryCSV(w io.Writer, rows []SummaryRow) error {
	cw := csv.NewWriter(w)

	header := []string{
		"contrast", "total_parcels",
		"canonical_count", "canonical_percentage",
		"indiv_fingerprint_count", "indiv_fingerprint_percentage",
		"variable_count", "variable_percentage",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Contrast,
			strconv.Itoa(r.Total),
			strconv.Itoa(r.Canonical),
			formatScore(r.CanonicalPct, 2),
			strconv.Itoa(r.Fingerprint),
			formatScore(r.FingerprintPct, 2),
			strconv.Itoa(r.Variable),
			formatScore(r.VariablePct, 2),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteRankingCSV writes a ranking with the given score column name.
func WriteRankingCSV(w io.Writer, scoreColumn string, rows []RankedParcel) error {
	cw := csv.NewWriter(w)

	header := []string{"rank", "contrast", "parcel", scoreColumn, "classification"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			strconv.Itoa(r.Rank),
			r.Contrast,
			r.Parcel,
			formatScore(r.Score, 6),
			r.Label.String(),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteConsistencyCSV writes cross-contrast consistency rows with
// four decimal places.
func WriteConsistencyCSV(w io.Writer, rows []Consistency) error {
	cw := csv.NewWriter(w)

	header := []string{
		"parcel", "most_common_classification", "consistency_score",
		"n_contrasts", "canonical_proportion",
		"indiv_fingerprint_proportion", "variable_proportion",
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range rows {
		record := []string{
			r.Parcel,
			r.MostCommon.String(),
			formatScore(r.Score, 4),
			strconv.Itoa(r.Contrasts),
			formatScore(r.CanonicalProportion, 4),
			formatScore(r.FingerprintProportion, 4),
			formatScore(r.VariableProportion, 4),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// formatScore renders v with fixed precision. Infinities render as
// "inf" and "-inf" so downstream tabular tooling parses them.
func formatScore(v float64, prec int) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
