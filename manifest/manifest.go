// Package manifest writes and loads run manifests: small JSON files
// recording what an analysis run consumed and produced, stored next
// to the outputs they describe.
//
// Each save creates a new MANIFEST-<seq>.json and atomically repoints
// the CURRENT file at it, so a reader always sees a complete manifest
// and earlier runs remain inspectable.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/hupe1980/parcelcorr/internal/fs"
)

const (
	ManifestFileName = "MANIFEST"
	CurrentFileName  = "CURRENT"
	CurrentVersion   = 1
)

// Manifest describes one completed analysis run.
type Manifest struct {
	Version   int       `json:"version"`
	ID        uint64    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// DatasetRoot is the input directory the run discovered maps in.
	DatasetRoot string `json:"dataset_root"`

	// Subjects are the subjects the run was restricted to.
	Subjects []string `json:"subjects"`

	// Atlas describes the parcellation, e.g. its file name and parcel
	// count.
	Atlas string `json:"atlas"`

	// Threshold is the classification threshold the run used.
	Threshold float64 `json:"threshold"`

	// Workers is the worker count the run used.
	Workers int `json:"workers"`

	// Outputs lists the files the run produced, relative to the
	// manifest directory.
	Outputs []Output `json:"outputs"`
}

// Output describes one file produced by a run.
type Output struct {
	Name   string `json:"name"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

// Store manages the manifest files in one directory and their atomic
// updates.
type Store struct {
	fs  fs.FileSystem
	dir string
	mu  sync.Mutex
}

// NewStore creates a manifest store for dir. A nil fsys falls back to
// the local filesystem.
func NewStore(fsys fs.FileSystem, dir string) *Store {
	if fsys == nil {
		fsys = fs.Default
	}
	return &Store{
		fs:  fsys,
		dir: dir,
	}
}

// Load loads the manifest CURRENT points at. When no manifest has
// been saved yet it returns an empty manifest with ID zero.
func (s *Store) Load() (*Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load()
}

func (s *Store) load() (*Manifest, error) {
	readFile := func(path string) ([]byte, error) {
		f, err := s.fs.OpenFile(path, os.O_RDONLY, 0)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	// CURRENT names the manifest file to read.
	currentPath := filepath.Join(s.dir, CurrentFileName)
	content, err := readFile(currentPath)
	if os.IsNotExist(err) {
		return &Manifest{ID: 0, Version: CurrentVersion}, nil
	}
	if err != nil {
		return nil, err
	}

	manifestPath := filepath.Join(s.dir, string(content))
	data, err := readFile(manifestPath)
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}

	if m.Version != CurrentVersion {
		return nil, fmt.Errorf("manifest: unsupported version: %d (expected %d)", m.Version, CurrentVersion)
	}
	for _, out := range m.Outputs {
		if len(out.SHA256) != sha256.Size*2 {
			return nil, fmt.Errorf("manifest: output %q carries malformed checksum %q", out.Name, out.SHA256)
		}
		if _, err := hex.DecodeString(out.SHA256); err != nil {
			return nil, fmt.Errorf("manifest: output %q carries malformed checksum %q", out.Name, out.SHA256)
		}
	}

	return &m, nil
}

// Save atomically saves m as the next manifest in sequence and
// repoints CURRENT at it. The manifest's Version and ID are assigned
// by Save.
func (s *Store) Save(m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	prev, err := s.load()
	if err != nil {
		return err
	}

	m.Version = CurrentVersion
	m.ID = prev.ID + 1

	// 1. Write the new manifest file.
	filename := fmt.Sprintf("%s-%06d.json", ManifestFileName, m.ID)
	path := filepath.Join(s.dir, filename)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}

	if err := s.writeAtomic(path, data); err != nil {
		return err
	}
	if err := s.syncDir(s.dir); err != nil {
		return err
	}

	// 2. Repoint CURRENT.
	if err := s.writeAtomic(filepath.Join(s.dir, CurrentFileName), []byte(filename)); err != nil {
		return err
	}

	return s.syncDir(s.dir)
}

// ScanOutputs stats and hashes the named files in the store's
// directory. Names are recorded as given, in the given order.
func (s *Store) ScanOutputs(names ...string) ([]Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	outputs := make([]Output, 0, len(names))
	for _, name := range names {
		out, err := s.scanOutput(name)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// VerifyOutputs re-hashes every output m names and reports the first
// mismatch.
func (s *Store) VerifyOutputs(m *Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, want := range m.Outputs {
		got, err := s.scanOutput(want.Name)
		if err != nil {
			return err
		}
		if got.Size != want.Size {
			return fmt.Errorf("manifest: output %q is %d bytes, manifest says %d", want.Name, got.Size, want.Size)
		}
		if got.SHA256 != want.SHA256 {
			return fmt.Errorf("manifest: output %q checksum mismatch: %s != %s", want.Name, got.SHA256, want.SHA256)
		}
	}
	return nil
}

func (s *Store) scanOutput(name string) (Output, error) {
	path := filepath.Join(s.dir, name)

	f, err := s.fs.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return Output{}, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Output{}, err
	}

	return Output{
		Name:   name,
		Size:   size,
		SHA256: hex.EncodeToString(h.Sum(nil)),
	}, nil
}

// writeAtomic writes data to path via a temp file, sync and rename.
func (s *Store) writeAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"

	f, err := s.fs.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		s.fs.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		s.fs.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}

	if err := s.fs.Rename(tmpPath, path); err != nil {
		s.fs.Remove(tmpPath)
		return err
	}

	return nil
}

func (s *Store) syncDir(dir string) error {
	f, err := s.fs.OpenFile(dir, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
