package mediacache

// CacheStats is a read-only snapshot of cache state. Obtain one via
// MediaCache.Stats; it never mutates the cache.
type CacheStats struct {
	// Items is the number of cached metadata entries.
	Items int
	// CachedBytes is the sum of payload sizes across cached entries.
	// Always <= BudgetBytes.
	CachedBytes int64
	// BudgetBytes is the configured byte budget.
	BudgetBytes int64
	// Hits and Misses count Get outcomes since construction or the last
	// ClearCache.
	Hits   int64
	Misses int64
	// HitRate is Hits/(Hits+Misses), 0 when no Gets have happened.
	HitRate float64
}

// PreloaderStats is a read-only snapshot of scheduler state.
type PreloaderStats struct {
	// Queued is the number of jobs waiting for dispatch.
	Queued int
	// Active is the number of jobs currently executing.
	Active int
	// Completed and Failed count settled jobs since construction or the
	// last Clear.
	Completed int
	Failed    int
	// SuccessRate is Completed/(Completed+Failed), 0 when no jobs have
	// concluded.
	SuccessRate float64
}
