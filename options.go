package parcelcorr

import (
	"log/slog"

	"github.com/hupe1980/parcelcorr/codec"
	"github.com/hupe1980/parcelcorr/construct"
	"github.com/hupe1980/parcelcorr/dataset"
	"github.com/hupe1980/parcelcorr/persistence"
	"github.com/hupe1980/parcelcorr/similarity"
)

type options struct {
	codec            codec.Codec
	compression      persistence.Compression
	threshold        float64
	workers          int
	constructs       construct.Map
	exclusions       *dataset.ExclusionSet
	metricsCollector MetricsCollector
	logger           *Logger
}

// Option configures Analysis construction.
type Option func(*options)

// WithCodec configures the codec used for snapshot metadata sections.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithCompression selects the snapshot payload compression. The
// default is persistence.DefaultCompression.
func WithCompression(c persistence.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithThreshold sets the classification threshold applied to the sum
// and difference of within- and between-subject similarity. The
// default is similarity.DefaultThreshold.
func WithThreshold(threshold float64) Option {
	return func(o *options) {
		o.threshold = threshold
	}
}

// WithWorkers caps the worker pool shared by extraction and the
// similarity phases. n <= 0 keeps the automatic size, GOMAXPROCS
// capped at 16.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithConstructs replaces the built-in construct table used by the
// across-construct phase.
func WithConstructs(m construct.Map) Option {
	return func(o *options) {
		o.constructs = m
	}
}

// WithExclusions applies quality-control exclusions during
// extraction. Pass nil to exclude nothing.
func WithExclusions(s *dataset.ExclusionSet) Option {
	return func(o *options) {
		o.exclusions = s
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &parcelcorr.BasicMetricsCollector{}
//	an, _ := parcelcorr.New(atlas, parcelcorr.WithMetricsCollector(metrics))
//	// ... run the pipeline ...
//	stats := metrics.GetStats()
//	fmt.Printf("Within avg: %dns, key failures: %d\n", stats.WithinAvgNanos, stats.KeyFailures)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := parcelcorr.NewJSONLogger(slog.LevelInfo)
//	an, _ := parcelcorr.New(atlas, parcelcorr.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            nil,
		compression:      persistence.DefaultCompression,
		threshold:        similarity.DefaultThreshold,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}
