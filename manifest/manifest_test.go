package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/parcelcorr/internal/fs"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
}

func TestStore_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil, dir)

	m := &Manifest{
		CreatedAt:   time.Now().UTC(),
		DatasetRoot: "/data/derivatives",
		Subjects:    []string{"sub-s03", "sub-s10"},
		Atlas:       "schaefer400 (400 parcels)",
		Threshold:   0.1,
		Workers:     8,
	}
	require.NoError(t, store.Save(m))
	assert.Equal(t, uint64(1), m.ID)
	assert.Equal(t, CurrentVersion, m.Version)

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, m.ID, loaded.ID)
	assert.Equal(t, m.DatasetRoot, loaded.DatasetRoot)
	assert.Equal(t, m.Subjects, loaded.Subjects)
	assert.Equal(t, m.Atlas, loaded.Atlas)
	assert.Equal(t, m.Threshold, loaded.Threshold)
	assert.Equal(t, m.Workers, loaded.Workers)
	assert.True(t, m.CreatedAt.Equal(loaded.CreatedAt))
}

func TestStore_LoadEmpty(t *testing.T) {
	store := NewStore(nil, t.TempDir())

	m, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.ID)
	assert.Equal(t, CurrentVersion, m.Version)
}

func TestStore_Sequence(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil, dir)

	require.NoError(t, store.Save(&Manifest{DatasetRoot: "first"}))
	require.NoError(t, store.Save(&Manifest{DatasetRoot: "second"}))

	assert.FileExists(t, filepath.Join(dir, "MANIFEST-000001.json"))
	assert.FileExists(t, filepath.Join(dir, "MANIFEST-000002.json"))

	current, err := os.ReadFile(filepath.Join(dir, CurrentFileName))
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-000002.json", string(current))

	loaded, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), loaded.ID)
	assert.Equal(t, "second", loaded.DatasetRoot)
}

func TestStore_ScanOutputs(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil, dir)

	writeFile(t, dir, "run.pcor", "snapshot bytes")
	writeFile(t, dir, "parcel_classifications.csv", "contrast,parcel\n")

	outputs, err := store.ScanOutputs("run.pcor", "parcel_classifications.csv")
	require.NoError(t, err)
	require.Len(t, outputs, 2)

	sum := sha256.Sum256([]byte("snapshot bytes"))
	assert.Equal(t, Output{
		Name:   "run.pcor",
		Size:   int64(len("snapshot bytes")),
		SHA256: hex.EncodeToString(sum[:]),
	}, outputs[0])

	_, err = store.ScanOutputs("missing.csv")
	require.Error(t, err)
}

func TestStore_VerifyOutputs(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil, dir)

	writeFile(t, dir, "run.pcor", "snapshot bytes")

	outputs, err := store.ScanOutputs("run.pcor")
	require.NoError(t, err)

	m := &Manifest{Outputs: outputs}
	require.NoError(t, store.Save(m))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.VerifyOutputs(loaded))

	// Tampering with the output must surface on verification.
	writeFile(t, dir, "run.pcor", "snapshot bytez")
	require.Error(t, store.VerifyOutputs(loaded))
}

func TestStore_LoadRejectsMalformedChecksum(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil, dir)

	writeFile(t, dir, "MANIFEST-000001.json",
		`{"version":1,"id":1,"outputs":[{"name":"x","size":1,"sha256":"nothex"}]}`)
	writeFile(t, dir, CurrentFileName, "MANIFEST-000001.json")

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed checksum")
}

func TestStore_LoadRejectsUnsupportedVersion(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(nil, dir)

	writeFile(t, dir, "MANIFEST-000001.json", `{"version":99,"id":1}`)
	writeFile(t, dir, CurrentFileName, "MANIFEST-000001.json")

	_, err := store.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version")
}

func TestStore_SaveFaultySync(t *testing.T) {
	dir := t.TempDir()

	ffs := fs.NewFaultyFS(nil)
	ffs.Default.FailOnSync = true

	store := NewStore(ffs, dir)
	err := store.Save(&Manifest{DatasetRoot: "x"})
	require.Error(t, err)

	// The failed save must not leave a readable CURRENT behind.
	clean := NewStore(nil, dir)
	m, err := clean.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.ID)
}
