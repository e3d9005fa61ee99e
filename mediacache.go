package mediacache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fitstride/mediacache/internal/tier"
	"github.com/fitstride/mediacache/origin"
)

// DurableTier is the slower persistent storage layer behind the in-memory
// fast tier. The built-in implementation writes framed files to a local
// directory (see WithCacheDir); object-storage backed implementations can
// be plugged in via WithDurableTier. Implementations must be safe for
// concurrent use and return ErrTierMiss for plain misses.
type DurableTier interface {
	Get(ctx context.Context, id string) ([]byte, error)
	Put(ctx context.Context, id string, data []byte) error
	Delete(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// ContentSource identifies where a Get result came from.
type ContentSource uint8

const (
	// SourceFastTier means the payload was served from memory.
	SourceFastTier ContentSource = iota
	// SourceDurableTier means the payload was read back from durable
	// storage and promoted into the fast tier.
	SourceDurableTier
	// SourceOrigin means the payload was fetched from the origin and
	// cached on the way through.
	SourceOrigin
	// SourceFallback means the payload could not be obtained; Data is nil
	// and the caller should load URL directly.
	SourceFallback
)

// String implements fmt.Stringer.
func (s ContentSource) String() string {
	switch s {
	case SourceFastTier:
		return "fast-tier"
	case SourceDurableTier:
		return "durable-tier"
	case SourceOrigin:
		return "origin"
	default:
		return "fallback"
	}
}

// Content is the result of a Get. When Source is SourceFallback, Data is
// nil and URL is the original request URL, so a renderer can always fall
// back to loading the asset directly. Get degrades instead of failing.
type Content struct {
	URL    string
	Data   []byte
	Source ContentSource
}

// StoreResult reports per-tier outcomes of a store. A payload counts as
// cached when at least one tier accepted it.
type StoreResult struct {
	FastTierOK    bool
	DurableTierOK bool
}

// MediaCache is a two-tier LRU cache for media payloads with a hard byte
// budget across both tiers. It is safe for concurrent use.
type MediaCache struct {
	mu          sync.Mutex
	items       map[string]*list.Element // id -> element holding *MediaItem
	evictList   *list.List               // front = most recently used
	cachedBytes int64
	budget      int64
	closed      bool

	fast    *tier.Memory
	durable DurableTier
	disk    *tier.Disk // non-nil only when WithCacheDir is used

	fetch   origin.Origin
	logger  *Logger
	metrics MetricsCollector
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a MediaCache. Without options it caches in memory only,
// with a 50 MB budget, fetching misses over plain HTTP.
func New(optFns ...Option) (*MediaCache, error) {
	o := applyOptions(optFns)
	if o.budgetBytes <= 0 {
		return nil, ErrInvalidBudget
	}

	mc := &MediaCache{
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		budget:    o.budgetBytes,
		fast:      tier.NewMemory(o.controller),
		durable:   o.durable,
		fetch:     o.origin,
		logger:    o.logger,
		metrics:   o.metricsCollector,
		now:       o.clock,
	}

	if o.cacheDir != "" {
		d, err := tier.NewDisk(tier.DiskConfig{
			RootDir:     o.cacheDir,
			Compression: o.compression,
			Codec:       o.manifestCodec,
		})
		if err != nil {
			return nil, err
		}
		mc.disk = d
		mc.durable = d
		if err := mc.rehydrate(); err != nil {
			return nil, err
		}
	}

	return mc, nil
}

// rehydrate restores cache metadata from the on-disk manifest. Missing or
// corrupt persisted state is treated as an empty cache, never an error;
// only real IO failures propagate.
func (mc *MediaCache) rehydrate() error {
	entries, err := mc.disk.LoadManifest()
	if err != nil {
		if errors.Is(err, tier.ErrCorrupt) {
			mc.logger.Warn("cache manifest corrupt, starting empty", "error", err)
			return nil
		}
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	present, err := mc.disk.Scan()
	if err != nil {
		return err
	}

	// Oldest entries go in first so they end up at the LRU end.
	sortManifestEntries(entries)
	for _, e := range entries {
		if _, ok := present[e.ID]; !ok {
			continue
		}
		kind, _ := ParseMediaKind(e.Kind)
		category, _ := ParseMediaCategory(e.Category)
		item := &MediaItem{
			ID:           e.ID,
			URL:          e.URL,
			Kind:         kind,
			Category:     category,
			SizeBytes:    e.SizeBytes,
			Cached:       true,
			LastAccessed: e.LastAccessed,
		}
		mc.items[item.ID] = mc.evictList.PushFront(item)
		mc.cachedBytes += item.SizeBytes
	}

	// The budget may have shrunk since the manifest was written.
	mc.evictLocked(context.Background(), 0)
	return nil
}

// sortManifestEntries orders entries by ascending LastAccessed.
func sortManifestEntries(entries []tier.ManifestEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].LastAccessed.Before(entries[j-1].LastAccessed); j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// Get returns the payload for url, consulting the fast tier, then the
// durable tier, then the origin. Failures never surface to the caller as
// errors: the returned Content falls back to the original URL instead.
// The only error conditions are a closed cache and caller cancellation.
func (mc *MediaCache) Get(ctx context.Context, url string, kind MediaKind, category MediaCategory) (Content, error) {
	start := mc.timeNow()
	fallback := Content{URL: url, Source: SourceFallback}

	if err := ctx.Err(); err != nil {
		return fallback, err
	}

	id := MediaID(url)

	mc.mu.Lock()
	if mc.closed {
		mc.mu.Unlock()
		return fallback, ErrClosed
	}
	if elem, ok := mc.items[id]; ok {
		if data, err := mc.fast.Get(ctx, id); err == nil {
			mc.touchLocked(elem)
			mc.mu.Unlock()
			mc.hits.Add(1)
			mc.metrics.RecordGet(true, mc.timeNow().Sub(start))
			return Content{URL: url, Data: data, Source: SourceFastTier}, nil
		}
	}
	mc.mu.Unlock()

	if content, ok := mc.getDurable(ctx, url, id); ok {
		mc.hits.Add(1)
		mc.metrics.RecordGet(true, mc.timeNow().Sub(start))
		return content, nil
	}

	mc.misses.Add(1)

	data, err := mc.fetchOrigin(ctx, url)
	if err != nil {
		mc.metrics.RecordGet(false, mc.timeNow().Sub(start))
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fallback, ctxErr
		}
		return fallback, nil
	}

	mc.store(ctx, MediaItem{
		ID:       id,
		URL:      url,
		Kind:     kind,
		Category: category,
	}, data)

	mc.metrics.RecordGet(false, mc.timeNow().Sub(start))
	return Content{URL: url, Data: data, Source: SourceOrigin}, nil
}

// getDurable serves a payload from the durable tier and promotes it into
// the fast tier. A miss or corrupt payload drops the stale metadata entry.
func (mc *MediaCache) getDurable(ctx context.Context, url, id string) (Content, bool) {
	mc.mu.Lock()
	_, ok := mc.items[id]
	mc.mu.Unlock()
	if !ok || mc.durable == nil {
		return Content{}, false
	}

	data, err := mc.durable.Get(ctx, id)
	if err != nil {
		if errors.Is(err, tier.ErrNotFound) || errors.Is(err, tier.ErrCorrupt) {
			// Metadata with no payload behind it. Drop the entry so the
			// budget accounting stays honest.
			mc.dropEntry(ctx, id)
		}
		return Content{}, false
	}

	// Promotion is best effort; a denied memory acquisition just means
	// the next hit reads from disk again.
	if err := mc.fast.Put(ctx, id, data); err != nil {
		mc.logger.Debug("fast tier promotion skipped", "id", id, "error", err)
	}

	mc.mu.Lock()
	elem, live := mc.items[id]
	if live {
		mc.touchLocked(elem)
	}
	mc.mu.Unlock()
	if !live {
		// The entry was evicted while the payload was read back; do not
		// leave an orphan in the fast tier.
		_ = mc.fast.Delete(ctx, id)
	}

	return Content{URL: url, Data: data, Source: SourceDurableTier}, true
}

// fetchOrigin downloads a payload at full speed. IO pacing applies only to
// background preload fetches; the preloader charges the budget itself.
func (mc *MediaCache) fetchOrigin(ctx context.Context, url string) ([]byte, error) {
	start := mc.timeNow()
	data, err := mc.fetch.Fetch(ctx, url)
	duration := mc.timeNow().Sub(start)
	mc.metrics.RecordFetch(len(data), duration, err)
	mc.logger.LogFetch(ctx, url, len(data), duration, err)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// store inserts a payload under the byte budget. Budget check, eviction,
// metadata insertion and the fast tier write happen in one critical
// section, so two concurrent stores can never overshoot the budget
// between each other's check and insert. The durable write happens
// outside the lock.
func (mc *MediaCache) store(ctx context.Context, item MediaItem, data []byte) StoreResult {
	size := int64(len(data))
	if size > mc.budget {
		mc.logger.Warn("payload exceeds entire cache budget, not caching",
			"id", item.ID, "size_bytes", size, "budget_bytes", mc.budget)
		return StoreResult{}
	}

	var result StoreResult

	mc.mu.Lock()
	if mc.closed {
		mc.mu.Unlock()
		return StoreResult{}
	}
	if elem, ok := mc.items[item.ID]; ok {
		// Replacing an existing entry releases its bytes first.
		mc.removeLocked(ctx, elem)
	}
	mc.evictLocked(ctx, size)

	item.SizeBytes = size
	item.Cached = true
	item.LastAccessed = mc.timeNow()
	stored := item
	mc.items[item.ID] = mc.evictList.PushFront(&stored)
	mc.cachedBytes += size

	if err := mc.fast.Put(ctx, item.ID, data); err != nil {
		mc.logger.Debug("fast tier rejected payload", "id", item.ID, "error", err)
	} else {
		result.FastTierOK = true
	}
	mc.mu.Unlock()

	if mc.durable != nil {
		if err := mc.durable.Put(ctx, item.ID, data); err != nil {
			mc.logger.Warn("durable tier write failed", "id", item.ID, "error", err)
		} else {
			result.DurableTierOK = true
			// The entry may have been evicted while the write was in
			// flight; do not leave an orphan payload behind.
			mc.mu.Lock()
			_, live := mc.items[item.ID]
			mc.mu.Unlock()
			if !live {
				_ = mc.durable.Delete(ctx, item.ID)
			}
		}
	}

	if !result.FastTierOK && !result.DurableTierOK {
		// Neither tier holds the payload: metadata would lie.
		mc.dropEntry(ctx, item.ID)
	}

	mc.metrics.RecordStore(int(size), result)
	mc.logger.LogStore(ctx, item.ID, result)
	return result
}

// touchLocked marks an entry as most recently used. Callers hold mc.mu.
func (mc *MediaCache) touchLocked(elem *list.Element) {
	mc.evictList.MoveToFront(elem)
	elem.Value.(*MediaItem).LastAccessed = mc.timeNow()
}

// evictLocked removes least-recently-used entries until need more bytes
// fit within the budget. Callers hold mc.mu.
func (mc *MediaCache) evictLocked(ctx context.Context, need int64) {
	var evicted int
	var freed int64
	for mc.cachedBytes+need > mc.budget {
		elem := mc.evictList.Back()
		if elem == nil {
			break
		}
		freed += elem.Value.(*MediaItem).SizeBytes
		mc.removeLocked(ctx, elem)
		evicted++
	}
	if evicted > 0 {
		mc.metrics.RecordEviction(evicted, freed)
		mc.logger.LogEviction(ctx, evicted, freed)
	}
}

// removeLocked unlinks an entry and deletes its payloads. Callers hold mc.mu.
func (mc *MediaCache) removeLocked(ctx context.Context, elem *list.Element) {
	item := elem.Value.(*MediaItem)
	mc.evictList.Remove(elem)
	delete(mc.items, item.ID)
	mc.cachedBytes -= item.SizeBytes
	item.Cached = false

	_ = mc.fast.Delete(ctx, item.ID)
	if mc.durable != nil {
		if err := mc.durable.Delete(ctx, item.ID); err != nil {
			mc.logger.Warn("durable tier delete failed", "id", item.ID, "error", err)
		}
	}
}

// dropEntry removes the entry for id if it still exists.
func (mc *MediaCache) dropEntry(ctx context.Context, id string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if elem, ok := mc.items[id]; ok {
		mc.removeLocked(ctx, elem)
	}
}

// Contains reports whether url currently has a cached entry. Unlike Get
// it does not touch recency or hit accounting.
func (mc *MediaCache) Contains(url string) bool {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	_, ok := mc.items[MediaID(url)]
	return ok
}

// Item returns a copy of the metadata entry for url.
func (mc *MediaCache) Item(url string) (MediaItem, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	elem, ok := mc.items[MediaID(url)]
	if !ok {
		return MediaItem{}, false
	}
	return *elem.Value.(*MediaItem), true
}

// Stats returns a read-only snapshot of cache state.
func (mc *MediaCache) Stats() CacheStats {
	mc.mu.Lock()
	items := len(mc.items)
	cachedBytes := mc.cachedBytes
	mc.mu.Unlock()

	hits := mc.hits.Load()
	misses := mc.misses.Load()
	var hitRate float64
	if total := hits + misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}

	return CacheStats{
		Items:       items,
		CachedBytes: cachedBytes,
		BudgetBytes: mc.budget,
		Hits:        hits,
		Misses:      misses,
		HitRate:     hitRate,
	}
}

// ClearCache removes all cached payloads and metadata and resets the
// hit/miss counters. Tier failures during the clear are logged, not
// returned; the metadata is gone either way.
func (mc *MediaCache) ClearCache(ctx context.Context) {
	mc.mu.Lock()
	mc.items = make(map[string]*list.Element)
	mc.evictList = list.New()
	mc.cachedBytes = 0
	mc.mu.Unlock()

	mc.hits.Store(0)
	mc.misses.Store(0)

	if err := mc.fast.Clear(ctx); err != nil {
		mc.logger.Warn("fast tier clear failed", "error", err)
	}
	if mc.durable != nil {
		if err := mc.durable.Clear(ctx); err != nil {
			mc.logger.Warn("durable tier clear failed", "error", err)
		}
	}
}

// Flush persists the metadata manifest to the durable tier directory.
// It is a no-op without WithCacheDir. Close calls Flush automatically;
// long-running applications may also call it periodically.
func (mc *MediaCache) Flush() error {
	if mc.disk == nil {
		return nil
	}

	mc.mu.Lock()
	entries := make([]tier.ManifestEntry, 0, mc.evictList.Len())
	for elem := mc.evictList.Back(); elem != nil; elem = elem.Prev() {
		item := elem.Value.(*MediaItem)
		entries = append(entries, tier.ManifestEntry{
			ID:           item.ID,
			URL:          item.URL,
			Kind:         item.Kind.String(),
			Category:     item.Category.String(),
			SizeBytes:    item.SizeBytes,
			LastAccessed: item.LastAccessed,
		})
	}
	mc.mu.Unlock()

	return mc.disk.SaveManifest(entries)
}

// Close flushes the manifest and marks the cache closed. Subsequent Gets
// return ErrClosed. Close is idempotent.
func (mc *MediaCache) Close() error {
	mc.mu.Lock()
	if mc.closed {
		mc.mu.Unlock()
		return nil
	}
	mc.closed = true
	mc.mu.Unlock()

	return mc.Flush()
}

func (mc *MediaCache) timeNow() time.Time {
	if mc.now == nil {
		return time.Now()
	}
	return mc.now()
}
