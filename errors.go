package mediacache

import (
	"errors"
	"fmt"

	"github.com/fitstride/mediacache/internal/tier"
)

var (
	// ErrInvalidBudget is returned by New when the configured byte budget
	// is not positive.
	ErrInvalidBudget = errors.New("cache byte budget must be positive")

	// ErrClosed is returned for operations on a closed cache.
	ErrClosed = errors.New("media cache is closed")

	// ErrTierMiss signals that a tier has no payload for an id. Custom
	// DurableTier implementations should return an error satisfying
	// `errors.Is(err, ErrTierMiss)` for plain misses.
	ErrTierMiss = tier.ErrNotFound
)

// ErrUnknownKind indicates a media kind outside the closed set.
type ErrUnknownKind struct {
	Value string
}

func (e *ErrUnknownKind) Error() string {
	return fmt.Sprintf("unknown media kind: %q", e.Value)
}

// ErrUnknownCategory indicates a media category outside the closed set.
type ErrUnknownCategory struct {
	Value string
}

func (e *ErrUnknownCategory) Error() string {
	return fmt.Sprintf("unknown media category: %q", e.Value)
}

// ErrUnknownPriority indicates a priority band outside {high, medium, low}.
type ErrUnknownPriority struct {
	Value string
}

func (e *ErrUnknownPriority) Error() string {
	return fmt.Sprintf("unknown priority: %q", e.Value)
}

// ErrUnknownStrategy indicates an unrecognized preload strategy name.
type ErrUnknownStrategy struct {
	Name string
}

func (e *ErrUnknownStrategy) Error() string {
	return fmt.Sprintf("unknown preload strategy: %q", e.Name)
}

// ErrInvalidJob reports a preload job rejected at submission time.
type ErrInvalidJob struct {
	ID     string
	Reason string
}

func (e *ErrInvalidJob) Error() string {
	return fmt.Sprintf("invalid preload job %q: %s", e.ID, e.Reason)
}
