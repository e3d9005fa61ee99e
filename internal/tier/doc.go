// Package tier implements the storage tiers of the media cache.
//
// # Memory (fast tier)
//
// Memory holds payloads in a mutex-protected map. It carries no eviction
// logic of its own: byte budgeting and LRU ordering live in the cache's
// single critical section, so tiers stay dumb stores. An optional
// resource.Controller caps fast-tier bytes alongside the host app's other
// memory consumers.
//
// # Disk (durable tier)
//
// Disk persists one framed file per payload under the cache directory,
// written atomically (temp file + rename). Frames carry a CRC32C checksum
// and optional LZ4 or ZSTD compression; a frame that fails validation is
// removed and reported as a miss. Concurrent writes are bounded with a
// weighted semaphore so preload batches cannot flood the disk.
//
// The disk tier also persists the cache's item manifest, a self-describing
// codec-encoded snapshot of metadata that lets cached entries survive
// process restarts on a best-effort basis.
package tier
