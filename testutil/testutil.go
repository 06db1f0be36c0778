package testutil

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/hupe1980/parcelcorr/model"
	"github.com/hupe1980/parcelcorr/store"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float64 returns a pseudo-random number in [0.0,1.0).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float64()
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float64 in a loop).
func (r *RNG) FillUniform(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float64()
	}
}

// FillGaussian fills dst with values from a standard normal
// distribution.
func (r *RNG) FillGaussian(dst []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.NormFloat64()
	}
}

// GaussianVoxels returns a fresh standard normal voxel vector of
// length n.
func (r *RNG) GaussianVoxels(n int) []float64 {
	voxels := make([]float64, n)
	r.FillGaussian(voxels)
	return voxels
}

// StoreConfig shapes a synthetic record store.
type StoreConfig struct {
	Contrasts int
	Parcels   int
	Subjects  int
	Sessions  int
	Voxels    int

	// SessionNoise is the standard deviation of the noise added to a
	// subject's archetype pattern for each session record. Small values
	// keep within-subject similarity high.
	SessionNoise float64
}

// DefaultStoreConfig returns the configuration the benchmarks use:
// 2 contrasts, 50 parcels, 5 subjects, 2 sessions, 100 voxels.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		Contrasts:    2,
		Parcels:      50,
		Subjects:     5,
		Sessions:     2,
		Voxels:       100,
		SessionNoise: 0.5,
	}
}

// ContrastName returns the i-th synthetic contrast key (0-based).
func ContrastName(i int) string {
	return fmt.Sprintf("task-t%02d_contrast-c%02d", i+1, i+1)
}

// ParcelName returns the i-th synthetic parcel name (0-based).
func ParcelName(i int) string {
	return fmt.Sprintf("Parcel_%03d", i+1)
}

// SubjectName returns the i-th synthetic subject (0-based).
func SubjectName(i int) string {
	return fmt.Sprintf("sub-s%02d", i+1)
}

// SessionName returns the i-th synthetic session (0-based).
func SessionName(i int) string {
	return fmt.Sprintf("ses-%02d", i+1)
}

// GenerateStore builds a record store per cfg. Each subject gets one
// archetype pattern per (contrast, parcel) and each session record is
// the archetype plus Gaussian noise scaled by SessionNoise.
func (r *RNG) GenerateStore(cfg StoreConfig) (*store.Store, error) {
	b := store.NewBuilder()

	for c := 0; c < cfg.Contrasts; c++ {
		for p := 0; p < cfg.Parcels; p++ {
			for s := 0; s < cfg.Subjects; s++ {
				archetype := r.GaussianVoxels(cfg.Voxels)

				for ses := 0; ses < cfg.Sessions; ses++ {
					voxels := make([]float64, cfg.Voxels)
					r.FillGaussian(voxels)
					for i := range voxels {
						voxels[i] = archetype[i] + voxels[i]*cfg.SessionNoise
					}

					err := b.Add(ContrastName(c), ParcelName(p), model.Record{
						Subject: SubjectName(s),
						Session: SessionName(ses),
						Run:     "run-01",
						Voxels:  voxels,
					})
					if err != nil {
						return nil, err
					}
				}
			}
		}
	}

	return b.Build(), nil
}
