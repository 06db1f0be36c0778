package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeExclusions(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "exclusions.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestExclusionKey(t *testing.T) {
	e := Exclusion{Subject: "sub-s01", Session: "ses-01", Task: "nBack", Run: "run-01"}
	assert.Equal(t, "sub-s01_ses-01_nBack_run-01", e.Key())
}

func TestLoadExclusions(t *testing.T) {
	path := writeExclusions(t, `{
		"fmriprep_exclusions": [
			{"subject": "sub-s01", "session": "ses-01", "task": "nBack", "run": "run-01"}
		],
		"behavioral_exclusions": [
			{"subject": "sub-s02", "session": "ses-02", "task": "flanker", "run": "run-02"}
		]
	}`)

	set, err := LoadExclusions(path)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	excluded := File{Subject: "sub-s01", Session: "ses-01", Run: "run-01", Task: "nBack"}
	assert.True(t, set.Excluded(excluded))

	kept := File{Subject: "sub-s01", Session: "ses-02", Run: "run-01", Task: "nBack"}
	assert.False(t, set.Excluded(kept))
}

func TestLoadExclusionsEmptyLists(t *testing.T) {
	path := writeExclusions(t, `{"fmriprep_exclusions": [], "behavioral_exclusions": []}`)

	set, err := LoadExclusions(path)
	require.NoError(t, err)
	assert.Equal(t, 0, set.Len())
}

func TestLoadExclusionsMissingList(t *testing.T) {
	path := writeExclusions(t, `{
		"fmriprep_exclusions": [
			{"subject": "sub-s03", "session": "ses-01", "task": "stroop", "run": "run-01"}
		]
	}`)

	set, err := LoadExclusions(path)
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
}

func TestLoadExclusionsMissingFile(t *testing.T) {
	_, err := LoadExclusions(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestExclusionSetNil(t *testing.T) {
	var set *ExclusionSet

	f := File{Subject: "sub-s01", Session: "ses-01", Run: "run-01", Task: "nBack"}
	assert.False(t, set.Excluded(f))
	assert.Equal(t, 0, set.Len())

	files := []File{f}
	kept, removed := set.Filter(files)
	assert.Equal(t, files, kept)
	assert.Equal(t, 0, removed)
}

func TestFilter(t *testing.T) {
	set := NewExclusionSet(
		Exclusion{Subject: "sub-s01", Session: "ses-01", Task: "nBack", Run: "run-01"},
	)

	files := []File{
		{Subject: "sub-s01", Session: "ses-01", Run: "run-01", Task: "nBack"},
		{Subject: "sub-s01", Session: "ses-02", Run: "run-01", Task: "nBack"},
		{Subject: "sub-s02", Session: "ses-01", Run: "run-01", Task: "nBack"},
	}

	kept, removed := set.Filter(files)
	assert.Equal(t, 1, removed)
	require.Len(t, kept, 2)
	assert.Equal(t, "ses-02", kept[0].Session)
	assert.Equal(t, "sub-s02", kept[1].Subject)
}
