package mediacache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MediaKind classifies the payload format of a cached asset.
type MediaKind uint8

const (
	KindUnknown MediaKind = iota
	KindAnimation
	KindStillImage
	KindVideo
)

// String returns the stable wire name of the kind.
func (k MediaKind) String() string {
	switch k {
	case KindAnimation:
		return "animation"
	case KindStillImage:
		return "still-image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Valid reports whether k is within the closed set.
func (k MediaKind) Valid() bool {
	return k == KindAnimation || k == KindStillImage || k == KindVideo
}

// ParseMediaKind parses a stable wire name into a MediaKind.
func ParseMediaKind(s string) (MediaKind, error) {
	switch s {
	case "animation":
		return KindAnimation, nil
	case "still-image":
		return KindStillImage, nil
	case "video":
		return KindVideo, nil
	default:
		return KindUnknown, &ErrUnknownKind{Value: s}
	}
}

// MediaCategory describes what an asset is used for in the app. Categories
// affect bookkeeping and preload priorities, never retrieval correctness.
type MediaCategory uint8

const (
	CategoryUnknown MediaCategory = iota
	CategoryPrimaryDemo
	CategoryDiagram
	CategoryThumbnail
	CategoryInstructionalImage
)

// String returns the stable wire name of the category.
func (c MediaCategory) String() string {
	switch c {
	case CategoryPrimaryDemo:
		return "primary-demo"
	case CategoryDiagram:
		return "diagram"
	case CategoryThumbnail:
		return "thumbnail"
	case CategoryInstructionalImage:
		return "instructional-image"
	default:
		return "unknown"
	}
}

// Valid reports whether c is within the closed set.
func (c MediaCategory) Valid() bool {
	return c >= CategoryPrimaryDemo && c <= CategoryInstructionalImage
}

// ParseMediaCategory parses a stable wire name into a MediaCategory.
func ParseMediaCategory(s string) (MediaCategory, error) {
	switch s {
	case "primary-demo":
		return CategoryPrimaryDemo, nil
	case "diagram":
		return CategoryDiagram, nil
	case "thumbnail":
		return CategoryThumbnail, nil
	case "instructional-image":
		return CategoryInstructionalImage, nil
	default:
		return CategoryUnknown, &ErrUnknownCategory{Value: s}
	}
}

// MediaID derives the stable cache id for a URL. The same URL always maps
// to the same id, across process restarts, so durable-tier entries written
// by a previous run stay addressable.
func MediaID(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:12])
}

// MediaItem is the cache metadata entry for one asset.
type MediaItem struct {
	ID           string
	URL          string
	Kind         MediaKind
	Category     MediaCategory
	SizeBytes    int64
	Cached       bool
	LastAccessed time.Time
}

// Asset is an exercise's media bundle as the app layer knows it. Empty
// URLs mean the exercise has no media of that purpose.
type Asset struct {
	ID           string
	Name         string
	AnimationURL string
	DiagramURL   string
	ThumbnailURL string
}

// Priority is a preload scheduling band. High fully drains before medium
// starts, medium before low.
type Priority uint8

const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

// String returns the stable wire name of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Valid reports whether p is within the closed set.
func (p Priority) Valid() bool {
	return p <= PriorityLow
}

// ParsePriority parses a stable wire name into a Priority.
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return PriorityHigh, &ErrUnknownPriority{Value: s}
	}
}

// PreloadJob is a unit of prefetch work. The ID is normally MediaID(URL)
// and is the deduplication key across the queued, active, completed and
// failed sets: the same URL submitted via two different assets still
// fetches once.
type PreloadJob struct {
	ID       string
	URL      string
	Kind     MediaKind
	Category MediaCategory
	Priority Priority

	// AssetID is a back-reference to the originating asset, used only for
	// logging. It carries no ownership.
	AssetID string
}

// Validate rejects jobs with unknown enum values or missing fields. Jobs
// are validated at submission time so untyped data never enters the
// scheduler.
func (j PreloadJob) Validate() error {
	if j.ID == "" {
		return &ErrInvalidJob{ID: j.ID, Reason: "empty id"}
	}
	if j.URL == "" {
		return &ErrInvalidJob{ID: j.ID, Reason: "empty url"}
	}
	if !j.Kind.Valid() {
		return &ErrInvalidJob{ID: j.ID, Reason: "unknown media kind"}
	}
	if !j.Category.Valid() {
		return &ErrInvalidJob{ID: j.ID, Reason: "unknown media category"}
	}
	if !j.Priority.Valid() {
		return &ErrInvalidJob{ID: j.ID, Reason: "unknown priority"}
	}
	return nil
}
