package parcelcorr

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/parcelcorr/atlas"
	"github.com/hupe1980/parcelcorr/codec"
	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/dataset"
	"github.com/hupe1980/parcelcorr/model"
	"github.com/hupe1980/parcelcorr/nifti"
	"github.com/hupe1980/parcelcorr/persistence"
	"github.com/hupe1980/parcelcorr/similarity"
	"github.com/hupe1980/parcelcorr/store"
)

// maxAutoWorkers caps automatically sized worker pools.
const maxAutoWorkers = 16

// Analysis runs the parcel similarity pipeline: voxel extraction into
// a record store, the similarity phases with classification, and
// snapshot persistence. An Analysis is safe for concurrent use.
type Analysis struct {
	atlas       *atlas.Atlas
	codec       codec.Codec
	compression persistence.Compression
	threshold   float64
	workers     int
	constructs  construct.Map
	exclusions  *dataset.ExclusionSet

	metrics MetricsCollector
	logger  *Logger

	runner *similarity.Runner
	closed atomic.Bool
}

// New creates an Analysis bound to an atlas. Close it when done.
func New(a *atlas.Atlas, optFns ...Option) (*Analysis, error) {
	if a == nil {
		return nil, ErrNoAtlas
	}

	opts := applyOptions(optFns)

	c := opts.codec
	if c == nil {
		c = codec.Default
	}

	constructs := opts.constructs
	if constructs == nil {
		constructs = construct.Default()
	}

	workers := opts.workers
	if workers <= 0 {
		workers = min(runtime.GOMAXPROCS(0), maxAutoWorkers)
	}

	metrics := opts.metricsCollector
	if metrics == nil {
		metrics = NoopMetricsCollector{}
	}

	logger := opts.logger
	if logger == nil {
		logger = NoopLogger()
	}

	an := &Analysis{
		atlas:       a,
		codec:       c,
		compression: opts.compression,
		threshold:   opts.threshold,
		workers:     workers,
		constructs:  constructs,
		exclusions:  opts.exclusions,
		metrics:     metrics,
		logger:      logger,
	}

	an.runner = similarity.NewRunner(func(o *similarity.RunnerOptions) {
		o.Workers = workers
		o.Logger = logger.Logger
		o.OnKeyFailure = metrics.RecordKeyFailure
	})

	return an, nil
}

// Workers returns the resolved worker count.
func (a *Analysis) Workers() int { return a.workers }

// Threshold returns the classification threshold in effect.
func (a *Analysis) Threshold() float64 { return a.threshold }

// ExtractStore reads every effect size image and gathers its voxel
// values per atlas parcel, producing the record store the similarity
// phases run on. Files excluded by the configured quality-control
// set are skipped; ErrNoRecords is returned when nothing remains.
func (a *Analysis) ExtractStore(ctx context.Context, files []dataset.File) (*store.Store, error) {
	start := time.Now()
	st, used, err := a.extract(ctx, files)
	duration := time.Since(start)
	err = translateError(err)
	a.metrics.RecordExtract(used, duration, err)

	var records int
	if st != nil {
		records = st.Len()
	}
	a.logger.LogExtract(ctx, used, records, err)

	return st, err
}

func (a *Analysis) extract(ctx context.Context, files []dataset.File) (*store.Store, int, error) {
	if a.closed.Load() {
		return nil, 0, ErrClosed
	}

	kept, excluded := a.exclusions.Filter(files)
	if excluded > 0 {
		a.logger.InfoContext(ctx, "excluded scans skipped",
			"excluded", excluded,
			"kept", len(kept),
		)
	}
	if len(kept) == 0 {
		return nil, 0, ErrNoRecords
	}

	builder := store.NewBuilder()
	progress := rate.Sometimes{Interval: 5 * time.Second}
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for _, f := range kept {
		f := f
		g.Go(func() error {
			vol, err := nifti.Open(f.Path)
			if err != nil {
				return fmt.Errorf("read %s: %w", filepath.Base(f.Path), err)
			}

			for i := 0; i < a.atlas.NumParcels(); i++ {
				voxels, err := a.atlas.Extract(vol, i)
				if err != nil {
					return fmt.Errorf("extract %s: %w", f.RecordName(), err)
				}

				rec := model.Record{
					Subject: f.Subject,
					Session: f.Session,
					Run:     f.Run,
					Voxels:  voxels,
				}
				if err := builder.Add(f.Contrast, a.atlas.Name(i), rec); err != nil {
					return err
				}
			}

			n := done.Add(1)
			progress.Do(func() {
				a.logger.InfoContext(gctx, "extraction progress",
					"files", n,
					"total", len(kept),
				)
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, len(kept), err
	}

	return builder.Build(), len(kept), nil
}

// Run computes within-subject and between-subject similarity in
// parallel, classifies every key holding both scores, and derives
// across-construct similarity for the non-variable parcels.
func (a *Analysis) Run(ctx context.Context, st *store.Store) (*Results, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if st == nil || st.Len() == 0 {
		return nil, ErrNoRecords
	}

	var within, between similarity.Scores

	// The two first-order phases only read the store.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		scores, err := a.runner.Within(gctx, st)
		duration := time.Since(start)
		err = translateError(err)
		a.metrics.RecordWithin(duration, err)
		a.logger.LogPhase(gctx, "within", scores.Len(), duration, err)
		if err != nil {
			return err
		}
		within = scores
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		scores, err := a.runner.Between(gctx, st)
		duration := time.Since(start)
		err = translateError(err)
		a.metrics.RecordBetween(duration, err)
		a.logger.LogPhase(gctx, "between", scores.Len(), duration, err)
		if err != nil {
			return err
		}
		between = scores
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	labels := similarity.ClassifyParcels(within, between, a.threshold)
	a.logger.LogClassify(ctx, labels.Len(), a.threshold)

	start := time.Now()
	across, err := a.runner.Across(ctx, st, a.constructs, labels)
	duration := time.Since(start)
	err = translateError(err)
	a.metrics.RecordAcross(duration, err)
	a.logger.LogPhase(ctx, "across", across.Len(), duration, err)
	if err != nil {
		return nil, err
	}

	return &Results{
		Threshold: a.threshold,
		Within:    within,
		Between:   between,
		Labels:    labels,
		Across:    across,
	}, nil
}

// SaveSnapshot atomically writes the store and results to path using
// the configured codec and compression. res may be nil to snapshot a
// store before any phase has run.
func (a *Analysis) SaveSnapshot(ctx context.Context, path string, st *store.Store, res *Results) error {
	if a.closed.Load() {
		return ErrClosed
	}
	if st == nil {
		return ErrNoRecords
	}

	start := time.Now()
	err := persistence.SaveToFile(path, st, res, func(o *persistence.Options) {
		o.Codec = a.codec
		o.Compression = a.compression
	})
	duration := time.Since(start)
	a.metrics.RecordSnapshot(duration, err)
	a.logger.LogSnapshot(ctx, path, err)

	return err
}

// LoadSnapshot reads a snapshot produced by SaveSnapshot. The store
// comes back in canonical order with derived means recomputed. The
// results pointer is nil when the snapshot carries none.
func LoadSnapshot(path string) (*store.Store, *Results, error) {
	snap, err := persistence.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return snap.Store, snap.Results, nil
}

// Close releases the worker pool. Operations on a closed Analysis
// return ErrClosed. Close is idempotent.
func (a *Analysis) Close() error {
	if a == nil {
		return nil
	}
	if !a.closed.CompareAndSwap(false, true) {
		return nil
	}
	return a.runner.Close()
}
