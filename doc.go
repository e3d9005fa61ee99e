// Package mediacache provides a byte-budgeted, two-tier media cache and a
// priority-banded background preloader for workout media assets.
//
// The cache keeps hot payloads in memory and, optionally, a durable copy
// on disk or in object storage. The total bytes of all cached payloads
// never exceed the configured budget; least-recently-used entries are
// evicted to make room. Retrieval never fails the caller: when every tier
// misses and the origin fetch fails, Get returns the original URL so the
// UI can load the asset directly.
//
// # Quick Start
//
// In-memory cache over plain HTTP:
//
//	ctx := context.Background()
//	cache, _ := mediacache.New(mediacache.WithBudget(50 << 20))
//	content, _ := cache.Get(ctx, url, mediacache.KindAnimation, mediacache.CategoryPrimaryDemo)
//	if content.Source == mediacache.SourceFallback {
//	    // render from content.URL directly
//	}
//
// With a durable on-disk tier that survives restarts:
//
//	cache, _ := mediacache.New(
//	    mediacache.WithBudget(200 << 20),
//	    mediacache.WithCacheDir("./media"),
//	    mediacache.WithCompression(mediacache.CompressionZSTD),
//	)
//	defer cache.Close()
//
// Backed by object storage instead of local disk:
//
//	src, _ := s3.NewWithDefaultConfig(ctx, "media-bucket")
//	cache, _ := mediacache.New(
//	    mediacache.WithOrigin(src),
//	    mediacache.WithCacheDir("/fast/nvme"),
//	)
//
// # Preloading
//
// The preloader warms the cache in the background without starving
// foreground fetches. Jobs are banded by priority; high drains before
// medium, medium before low, with per-band concurrency ceilings and
// timeouts:
//
//	pre, _ := mediacache.NewPreloader(cache,
//	    mediacache.WithStrategy(mediacache.StrategyAggressive),
//	)
//	pre.PreloadAssets(ctx, assets) // ordered most-likely-first
//
// A settled job is never retried: a failed asset is simply served via the
// URL fallback when it is actually requested.
//
// # Resource Bounds
//
// A resource.Controller can be shared between the cache and preloader to
// bound memory, background workers and disk IO:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     64 << 20,
//	    MaxBackgroundWorkers: 4,
//	})
//	cache, _ := mediacache.New(mediacache.WithResourceController(rc))
package mediacache
