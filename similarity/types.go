// Package similarity implements the parcel-level similarity
// statistics: within-subject and between-subject similarity,
// stability classification and across-construct similarity.
//
// All result maps share the same absence semantics: a key that has no
// computable value is simply not present. Consumers must ask, not
// assume.
package similarity

import (
	"fmt"
	"sort"
)

// Scores holds one similarity value per contrast and parcel. Keys
// with no computable value are absent.
type Scores map[string]map[string]float64

// Value returns the score stored for (contrast, parcel).
func (s Scores) Value(contrast, parcel string) (float64, bool) {
	v, ok := s[contrast][parcel]
	return v, ok
}

// Set stores a score, allocating the inner map as needed.
func (s Scores) Set(contrast, parcel string, v float64) {
	parcels, ok := s[contrast]
	if !ok {
		parcels = make(map[string]float64)
		s[contrast] = parcels
	}
	parcels[parcel] = v
}

// Len returns the number of stored values.
func (s Scores) Len() int {
	var n int
	for _, parcels := range s {
		n += len(parcels)
	}
	return n
}

// Contrasts returns the contrasts holding at least one value, sorted.
func (s Scores) Contrasts() []string {
	out := make([]string, 0, len(s))
	for contrast := range s {
		out = append(out, contrast)
	}
	sort.Strings(out)
	return out
}

// Mean averages every stored value. The boolean result is false when
// the map holds no values.
func (s Scores) Mean() (float64, bool) {
	var sum float64
	var n int
	for _, parcels := range s {
		for _, v := range parcels {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// ContrastMean averages the values stored for a single contrast.
func (s Scores) ContrastMean(contrast string) (float64, bool) {
	parcels := s[contrast]
	if len(parcels) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range parcels {
		sum += v
	}
	return sum / float64(len(parcels)), true
}

// ConstructScores holds across-construct similarity values keyed by
// contrast, parcel and construct.
type ConstructScores map[string]map[string]map[string]float64

// Value returns the score stored for (contrast, parcel, construct).
func (c ConstructScores) Value(contrast, parcel, construct string) (float64, bool) {
	v, ok := c[contrast][parcel][construct]
	return v, ok
}

// Set stores the per-construct scores for (contrast, parcel),
// allocating inner maps as needed.
func (c ConstructScores) Set(contrast, parcel string, scores map[string]float64) {
	parcels, ok := c[contrast]
	if !ok {
		parcels = make(map[string]map[string]float64)
		c[contrast] = parcels
	}
	parcels[parcel] = scores
}

// Len returns the number of stored values across all keys.
func (c ConstructScores) Len() int {
	var n int
	for _, parcels := range c {
		for _, constructs := range parcels {
			n += len(constructs)
		}
	}
	return n
}

// Label is the stability class assigned to a contrast and parcel pair.
type Label uint8

const (
	// LabelVariable marks parcels with weak similarity overall.
	LabelVariable Label = iota

	// LabelIndivFingerprint marks parcels whose activity is stable
	// within a subject but differs across subjects.
	LabelIndivFingerprint

	// LabelCanonical marks parcels that are stable both within and
	// across subjects.
	LabelCanonical
)

// String returns the label's stable name.
func (l Label) String() string {
	switch l {
	case LabelVariable:
		return "variable"
	case LabelIndivFingerprint:
		return "indiv_fingerprint"
	case LabelCanonical:
		return "canonical"
	default:
		return fmt.Sprintf("label(%d)", uint8(l))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLabel returns the label named by s.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "variable":
		return LabelVariable, nil
	case "indiv_fingerprint":
		return LabelIndivFingerprint, nil
	case "canonical":
		return LabelCanonical, nil
	default:
		return 0, fmt.Errorf("similarity: unknown label %q", s)
	}
}

// Labels holds the classification assigned to each contrast and
// parcel pair.
type Labels map[string]map[string]Label

// Get returns the label stored for (contrast, parcel).
func (l Labels) Get(contrast, parcel string) (Label, bool) {
	v, ok := l[contrast][parcel]
	return v, ok
}

// Set stores a label, allocating the inner map as needed.
func (l Labels) Set(contrast, parcel string, label Label) {
	parcels, ok := l[contrast]
	if !ok {
		parcels = make(map[string]Label)
		l[contrast] = parcels
	}
	parcels[parcel] = label
}

// Is reports whether (contrast, parcel) carries the given label. A
// nil receiver reports false for every key.
func (l Labels) Is(contrast, parcel string, label Label) bool {
	v, ok := l[contrast][parcel]
	return ok && v == label
}

// Len returns the number of stored labels.
func (l Labels) Len() int {
	var n int
	for _, parcels := range l {
		n += len(parcels)
	}
	return n
}

// Count returns the number of stored labels equal to label.
func (l Labels) Count(label Label) int {
	var n int
	for _, parcels := range l {
		for _, v := range parcels {
			if v == label {
				n++
			}
		}
	}
	return n
}

// Results bundles the outputs of one full similarity analysis.
type Results struct {
	// Threshold is the classification threshold that produced Labels.
	Threshold float64 `json:"threshold"`

	// Within holds the within-subject similarity per contrast and parcel.
	Within Scores `json:"within_subject_similarity"`

	// Between holds the between-subject similarity per contrast and parcel.
	Between Scores `json:"between_subject_similarity"`

	// Labels holds the stability classification per contrast and parcel.
	Labels Labels `json:"parcel_classification"`

	// Across holds the across-construct similarity per contrast,
	// parcel and construct.
	Across ConstructScores `json:"across_construct_similarity"`
}
