package similarity

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/model"
	"github.com/hupe1980/parcelcorr/store"
)

// RunnerOptions configure a Runner.
type RunnerOptions struct {
	// Workers sets the pool size. Non-positive counts fall back to
	// runtime.GOMAXPROCS(0).
	Workers int

	// Logger receives per-key failure reports. Nil discards them.
	Logger *slog.Logger

	// OnKeyFailure, when non-nil, is invoked once for every key whose
	// task failed or panicked. It runs on the worker goroutine and
	// must be safe for concurrent use.
	OnKeyFailure func(phase string)
}

// Runner computes similarity maps in parallel over the store's
// (contrast, parcel) keys. A runner produces exactly the same maps as
// the serial Within, Between and Across functions: a key whose task
// fails is logged and left out, never aborting its siblings.
type Runner struct {
	pool         *WorkerPool
	logger       *slog.Logger
	onKeyFailure func(phase string)
}

// NewRunner creates a runner backed by a fixed worker pool. Close it
// when done.
func NewRunner(optFns ...func(o *RunnerOptions)) *Runner {
	opts := RunnerOptions{}

	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.Level(1000), // Unreachable level
		}))
	}

	return &Runner{
		pool:         NewWorkerPool(opts.Workers),
		logger:       logger,
		onKeyFailure: opts.OnKeyFailure,
	}
}

// Within computes the within-subject similarity for every contrast
// and parcel, fanned out over the pool.
func (r *Runner) Within(ctx context.Context, s *store.Store) (Scores, error) {
	keys := s.Keys()
	values := make([]float64, len(keys))
	defined := make([]bool, len(keys))

	err := r.each(ctx, "within", keys, func(i int, key model.Key) error {
		values[i], defined[i] = withinKey(s, key.Contrast, key.Parcel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(Scores)
	for i, key := range keys {
		if defined[i] {
			out.Set(key.Contrast, key.Parcel, values[i])
		}
	}
	return out, nil
}

// Between computes the between-subject similarity for every contrast
// and parcel, fanned out over the pool.
func (r *Runner) Between(ctx context.Context, s *store.Store) (Scores, error) {
	keys := s.Keys()
	values := make([]float64, len(keys))
	defined := make([]bool, len(keys))

	err := r.each(ctx, "between", keys, func(i int, key model.Key) error {
		values[i], defined[i] = betweenKey(s, key.Contrast, key.Parcel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(Scores)
	for i, key := range keys {
		if defined[i] {
			out.Set(key.Contrast, key.Parcel, values[i])
		}
	}
	return out, nil
}

// Across computes the across-construct similarity for every contrast
// and parcel, fanned out over the pool. Parcels labeled variable are
// skipped; a nil labels map skips nothing.
func (r *Runner) Across(ctx context.Context, s *store.Store, constructs construct.Map, labels Labels) (ConstructScores, error) {
	keys := s.Keys()
	values := make([]map[string]float64, len(keys))

	err := r.each(ctx, "across", keys, func(i int, key model.Key) error {
		if labels.Is(key.Contrast, key.Parcel, LabelVariable) {
			return nil
		}
		scores, err := acrossKey(s, constructs, key.Contrast, key.Parcel)
		if err != nil {
			return err
		}
		values[i] = scores
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make(ConstructScores)
	for i, key := range keys {
		if len(values[i]) > 0 {
			out.Set(key.Contrast, key.Parcel, values[i])
		}
	}
	return out, nil
}

// each fans the keys out over the pool and waits for all submitted
// tasks. Each task writes only its own slot, so tasks never contend.
// A task that returns an error or panics loses only its own key: the
// failure is logged and the slot stays empty. The returned error is
// non-nil only when submission itself fails, i.e. the context is
// cancelled or the pool is closed.
func (r *Runner) each(ctx context.Context, phase string, keys []model.Key, fn func(i int, key model.Key) error) error {
	var wg sync.WaitGroup

	for i, key := range keys {
		i, key := i, key
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.logger.ErrorContext(ctx, "similarity task panicked",
						"phase", phase,
						"key", key.String(),
						"panic", rec,
					)
					if r.onKeyFailure != nil {
						r.onKeyFailure(phase)
					}
				}
			}()
			if err := fn(i, key); err != nil {
				r.logger.ErrorContext(ctx, "similarity task failed",
					"phase", phase,
					"key", key.String(),
					"error", err,
				)
				if r.onKeyFailure != nil {
					r.onKeyFailure(phase)
				}
			}
		}
		if err := r.pool.Submit(ctx, task); err != nil {
			wg.Done()
			wg.Wait()
			return err
		}
	}

	wg.Wait()
	return nil
}

// Close shuts down the runner's worker pool. The runner must not be
// used afterwards.
func (r *Runner) Close() error {
	r.pool.Close()
	return nil
}
