package mediacache

import (
	"log/slog"
	"time"

	"github.com/fitstride/mediacache/codec"
	"github.com/fitstride/mediacache/internal/tier"
	"github.com/fitstride/mediacache/origin"
	"github.com/fitstride/mediacache/resource"
)

// DefaultBudgetBytes is the cache byte budget used when WithBudget is not set.
const DefaultBudgetBytes int64 = 50 << 20 // 50 MB

// Compression selects the payload compression algorithm for the durable tier.
type Compression = tier.Compression

// Supported compression algorithms.
const (
	CompressionNone = tier.CompressionNone
	CompressionLZ4  = tier.CompressionLZ4
	CompressionZSTD = tier.CompressionZSTD
)

type options struct {
	budgetBytes      int64
	origin           origin.Origin
	cacheDir         string
	durable          DurableTier
	compression      Compression
	manifestCodec    codec.Codec
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
	clock            func() time.Time
}

// Option configures MediaCache constructor behavior.
type Option func(*options)

// WithBudget sets the combined byte budget for cached payload bytes.
// New must fail with ErrInvalidBudget when the budget is not positive,
// so callers cannot accidentally build an unbounded cache.
func WithBudget(bytes int64) Option {
	return func(o *options) {
		o.budgetBytes = bytes
	}
}

// WithOrigin configures the origin used to fetch media that is not cached.
//
// If nil is passed, origin.NewHTTP() is used.
func WithOrigin(src origin.Origin) Option {
	return func(o *options) {
		if src == nil {
			src = origin.NewHTTP()
		}
		o.origin = src
	}
}

// WithCacheDir enables the on-disk durable tier rooted at dir.
// Payloads and the manifest survive process restarts; a new cache built
// over the same directory rehydrates its metadata from the manifest.
//
// WithCacheDir and WithDurableTier are mutually exclusive; the last one
// applied wins.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
		o.durable = nil
	}
}

// WithDurableTier configures a custom durable tier, replacing the default
// on-disk tier. Use this to back the cache with object storage:
//
//	cache, err := mediacache.New(
//	    mediacache.WithBudget(200<<20),
//	    mediacache.WithDurableTier(myS3Tier),
//	)
func WithDurableTier(t DurableTier) Option {
	return func(o *options) {
		o.durable = t
		o.cacheDir = ""
	}
}

// WithCompression selects the compression algorithm for durable tier
// payloads. Only effective together with WithCacheDir.
//
// CompressionZSTD gives the best ratio; CompressionLZ4 trades ratio for
// speed. Incompressible payloads (most video and already-encoded images)
// are stored raw regardless of the configured algorithm.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithManifestCodec configures the codec used to encode the durable tier
// manifest. If nil is passed, codec.Default is used.
func WithManifestCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.manifestCodec = c
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &mediacache.BasicMetricsCollector{}
//	mc, _ := mediacache.New(mediacache.WithMetricsCollector(metrics))
//	// ... use mc ...
//	stats := metrics.GetStats()
//	fmt.Printf("Gets: %d, Hits: %d\n", stats.GetCount, stats.GetHits)
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
//	logger := mediacache.NewJSONLogger(slog.LevelInfo)
//	mc, _ := mediacache.New(mediacache.WithLogger(logger))
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

// WithResourceController caps fast-tier payload memory with the given
// controller. Share the same controller with the preloader (via
// WithPreloaderResourceController) to also bound background workers and
// download bandwidth. Pass nil to run unbounded.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		budgetBytes:      DefaultBudgetBytes,
		origin:           origin.NewHTTP(),
		compression:      CompressionNone,
		manifestCodec:    codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		clock:            time.Now,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

// PreloaderOption configures Preloader constructor behavior.
type PreloaderOption func(*preloaderOptions)

type preloaderOptions struct {
	concurrency      ConcurrencyLimits
	timeouts         TimeoutLimits
	strategy         Strategy
	metricsCollector MetricsCollector
	logger           *Logger
	controller       *resource.Controller
}

// ConcurrencyLimits caps how many preload jobs of each priority band run
// at the same time.
type ConcurrencyLimits struct {
	High   int
	Medium int
	Low    int
}

// DefaultConcurrencyLimits returns the per-band concurrency ceilings used
// when WithConcurrencyLimits is not set.
func DefaultConcurrencyLimits() ConcurrencyLimits {
	return ConcurrencyLimits{High: 3, Medium: 2, Low: 1}
}

// ForPriority returns the ceiling for the given priority band.
func (c ConcurrencyLimits) ForPriority(p Priority) int {
	switch p {
	case PriorityHigh:
		return c.High
	case PriorityMedium:
		return c.Medium
	default:
		return c.Low
	}
}

// TimeoutLimits caps how long a single preload job of each priority band
// may run before it is recorded as failed.
type TimeoutLimits struct {
	High   time.Duration
	Medium time.Duration
	Low    time.Duration
}

// DefaultTimeoutLimits returns the per-band job timeouts used when
// WithTimeoutLimits is not set.
func DefaultTimeoutLimits() TimeoutLimits {
	return TimeoutLimits{
		High:   10 * time.Second,
		Medium: 15 * time.Second,
		Low:    20 * time.Second,
	}
}

// ForPriority returns the timeout for the given priority band.
func (t TimeoutLimits) ForPriority(p Priority) time.Duration {
	switch p {
	case PriorityHigh:
		return t.High
	case PriorityMedium:
		return t.Medium
	default:
		return t.Low
	}
}

// WithConcurrencyLimits overrides the per-band concurrency ceilings.
// Non-positive values fall back to their defaults.
func WithConcurrencyLimits(limits ConcurrencyLimits) PreloaderOption {
	return func(o *preloaderOptions) {
		def := DefaultConcurrencyLimits()
		if limits.High <= 0 {
			limits.High = def.High
		}
		if limits.Medium <= 0 {
			limits.Medium = def.Medium
		}
		if limits.Low <= 0 {
			limits.Low = def.Low
		}
		o.concurrency = limits
	}
}

// WithTimeoutLimits overrides the per-band job timeouts.
// Non-positive values fall back to their defaults.
func WithTimeoutLimits(limits TimeoutLimits) PreloaderOption {
	return func(o *preloaderOptions) {
		def := DefaultTimeoutLimits()
		if limits.High <= 0 {
			limits.High = def.High
		}
		if limits.Medium <= 0 {
			limits.Medium = def.Medium
		}
		if limits.Low <= 0 {
			limits.Low = def.Low
		}
		o.timeouts = limits
	}
}

// WithStrategy selects how PreloadAssets assigns priority bands to media.
func WithStrategy(s Strategy) PreloaderOption {
	return func(o *preloaderOptions) {
		o.strategy = s
	}
}

// WithPreloaderMetricsCollector configures a metrics collector for preload
// operations. Pass nil to disable metrics collection.
func WithPreloaderMetricsCollector(mc MetricsCollector) PreloaderOption {
	return func(o *preloaderOptions) {
		o.metricsCollector = mc
	}
}

// WithPreloaderLogger configures structured logging for preload operations.
// Pass nil to disable logging.
func WithPreloaderLogger(logger *Logger) PreloaderOption {
	return func(o *preloaderOptions) {
		o.logger = logger
	}
}

// WithPreloaderResourceController bounds background worker usage with the
// given controller. Pass nil to run unbounded.
func WithPreloaderResourceController(rc *resource.Controller) PreloaderOption {
	return func(o *preloaderOptions) {
		o.controller = rc
	}
}

func applyPreloaderOptions(optFns []PreloaderOption) preloaderOptions {
	o := preloaderOptions{
		concurrency:      DefaultConcurrencyLimits(),
		timeouts:         DefaultTimeoutLimits(),
		strategy:         StrategySmart,
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
