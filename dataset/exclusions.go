package dataset

import (
	"fmt"
	"os"

	"github.com/hupe1980/parcelcorr/codec"
)

// Exclusion identifies one scan excluded by quality control.
type Exclusion struct {
	Subject string `json:"subject"`
	Session string `json:"session"`
	Task    string `json:"task"`
	Run     string `json:"run"`
}

// Key returns the lookup key "{subject}_{session}_{task}_{run}". Run
// is used exactly as given in the exclusion file.
func (e Exclusion) Key() string {
	return fmt.Sprintf("%s_%s_%s_%s", e.Subject, e.Session, e.Task, e.Run)
}

// exclusionFile mirrors the quality-control JSON layout. Either list
// may be absent.
type exclusionFile struct {
	FMRIPrep   []Exclusion `json:"fmriprep_exclusions"`
	Behavioral []Exclusion `json:"behavioral_exclusions"`
}

// ExclusionSet answers membership queries for excluded scans.
type ExclusionSet struct {
	keys map[string]struct{}
}

// NewExclusionSet builds a set from explicit exclusions.
func NewExclusionSet(exclusions ...Exclusion) *ExclusionSet {
	s := &ExclusionSet{keys: make(map[string]struct{}, len(exclusions))}
	for _, e := range exclusions {
		s.keys[e.Key()] = struct{}{}
	}
	return s
}

// LoadExclusions reads a quality-control JSON file holding
// "fmriprep_exclusions" and "behavioral_exclusions" lists and merges
// both into one set.
func LoadExclusions(path string) (*ExclusionSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("dataset: read exclusions %s: %w", path, err)
	}

	var ef exclusionFile
	if err := codec.Default.Unmarshal(data, &ef); err != nil {
		return nil, fmt.Errorf("dataset: parse exclusions %s: %w", path, err)
	}

	return NewExclusionSet(append(ef.FMRIPrep, ef.Behavioral...)...), nil
}

// Excluded reports whether the file's scan is excluded. A nil set
// excludes nothing.
func (s *ExclusionSet) Excluded(f File) bool {
	if s == nil {
		return false
	}
	_, ok := s.keys[f.ExclusionKey()]
	return ok
}

// Filter returns the files not excluded by the set plus the number
// removed.
func (s *ExclusionSet) Filter(files []File) ([]File, int) {
	if s == nil || len(s.keys) == 0 {
		return files, 0
	}

	kept := make([]File, 0, len(files))
	for _, f := range files {
		if s.Excluded(f) {
			continue
		}
		kept = append(kept, f)
	}
	return kept, len(files) - len(kept)
}

// Len returns the number of excluded scans in the set.
func (s *ExclusionSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}
