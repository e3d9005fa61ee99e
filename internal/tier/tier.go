package tier

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a tier has no payload for the id.
var ErrNotFound = errors.New("payload not in tier")

// ErrCorrupt is returned when a stored payload fails checksum or framing
// validation. Callers treat it as a miss; the tier drops the entry.
var ErrCorrupt = errors.New("payload corrupt")

// ErrMemoryLimit is returned by the memory tier when the shared resource
// controller denies the allocation.
var ErrMemoryLimit = errors.New("fast tier memory limit reached")

// Tier is a storage layer for cached media payloads, keyed by asset id.
// Implementations must be safe for concurrent use. Returned slices must be
// treated as read-only.
type Tier interface {
	// Get returns the payload for id, ErrNotFound if absent.
	Get(ctx context.Context, id string) ([]byte, error)
	// Put stores the payload for id, replacing any previous value.
	Put(ctx context.Context, id string, data []byte) error
	// Delete removes the payload for id. Deleting an absent id is not an error.
	Delete(ctx context.Context, id string) error
	// Clear removes all payloads.
	Clear(ctx context.Context) error
}
