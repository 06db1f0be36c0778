package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "manifests")
	lfs := LocalFS{}

	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	// The write-sync-rename sequence the manifest store performs.
	tmp := filepath.Join(dir, "CURRENT.tmp")
	f, err := lfs.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("MANIFEST-000001.json"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	final := filepath.Join(dir, "CURRENT")
	require.NoError(t, lfs.Rename(tmp, final))

	content, err := os.ReadFile(final)
	require.NoError(t, err)
	assert.Equal(t, "MANIFEST-000001.json", string(content))

	require.NoError(t, lfs.Remove(final))
	_, err = os.Stat(final)
	assert.True(t, os.IsNotExist(err))
}

func TestFaultyFS_FailAfterBytes(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.Default.FailAfterBytes = 5

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "limited"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	defer f.Close()

	n, err := f.Write([]byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = f.Write([]byte("!"))
	require.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)
}

func TestFaultyFS_RuleSelectsFile(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.AddRule("CURRENT", Fault{FailAfterBytes: -1, FailOnSync: true})

	dir := t.TempDir()
	open := func(name string) File {
		t.Helper()
		f, err := ffs.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE, 0o644)
		require.NoError(t, err)
		return f
	}

	plain := open("MANIFEST-000001.json")
	assert.NoError(t, plain.Sync())
	require.NoError(t, plain.Close())

	current := open("CURRENT.tmp")
	assert.ErrorIs(t, current.Sync(), ErrInjected)
	require.NoError(t, current.Close())
}

func TestFaultyFS_LongestRuleWins(t *testing.T) {
	boom := errors.New("boom")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("MANIFEST", Fault{FailAfterBytes: -1})
	ffs.AddRule("MANIFEST-000002", Fault{FailAfterBytes: -1, FailOnSync: true, Err: boom})

	dir := t.TempDir()

	f, err := ffs.OpenFile(filepath.Join(dir, "MANIFEST-000001.json"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	assert.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	f, err = ffs.OpenFile(filepath.Join(dir, "MANIFEST-000002.json"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Sync(), boom)
	require.NoError(t, f.Close())
}

func TestFaultyFS_FailOnClose(t *testing.T) {
	ffs := NewFaultyFS(nil)
	ffs.Default.FailOnClose = true

	f, err := ffs.OpenFile(filepath.Join(t.TempDir(), "out"), os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), ErrInjected)
}

func TestFaultyFS_Delegation(t *testing.T) {
	ffs := NewFaultyFS(nil)

	dir := filepath.Join(t.TempDir(), "nested")
	require.NoError(t, ffs.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "file")
	f, err := ffs.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, ffs.Rename(path, path+".moved"))
	require.NoError(t, ffs.Remove(path+".moved"))
}
