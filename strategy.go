package mediacache

import "fmt"

// Strategy selects how ordered candidate assets are partitioned into
// preload priority bands. The candidate order matters: assets earlier
// in the list are assumed more likely to be requested soon.
type Strategy int

// Supported strategies.
const (
	// StrategySmart preloads broadly: the first 8 assets are high
	// priority, the next 12 medium, the rest low. Default.
	StrategySmart Strategy = iota
	// StrategyAggressive front-loads a small high band (first 5) and a
	// wide medium band (next 10), the rest low.
	StrategyAggressive
	// StrategyConservative preloads only the first 3 assets at high
	// priority and everything else at low; no medium band.
	StrategyConservative
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case StrategySmart:
		return "smart"
	case StrategyAggressive:
		return "aggressive"
	case StrategyConservative:
		return "conservative"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategySmart, StrategyAggressive, StrategyConservative:
		return true
	default:
		return false
	}
}

// ParseStrategy maps a strategy name to its Strategy value.
// The empty string maps to StrategySmart.
func ParseStrategy(name string) (Strategy, error) {
	switch name {
	case "", "smart":
		return StrategySmart, nil
	case "aggressive":
		return StrategyAggressive, nil
	case "conservative":
		return StrategyConservative, nil
	default:
		return StrategySmart, &ErrUnknownStrategy{Name: name}
	}
}

// Priority returns the band for the asset at the given position in the
// ordered candidate list.
func (s Strategy) Priority(index int) Priority {
	switch s {
	case StrategyAggressive:
		switch {
		case index < 5:
			return PriorityHigh
		case index < 15:
			return PriorityMedium
		default:
			return PriorityLow
		}
	case StrategyConservative:
		if index < 3 {
			return PriorityHigh
		}
		return PriorityLow
	default: // StrategySmart
		switch {
		case index < 8:
			return PriorityHigh
		case index < 20:
			return PriorityMedium
		default:
			return PriorityLow
		}
	}
}

// BuildJobs expands ordered candidate assets into preload jobs. Each
// asset yields up to three jobs: its primary animation, its diagram, and
// its thumbnail. Thumbnails are always assigned PriorityHigh regardless
// of strategy, since they are the cheapest payloads and the first thing
// a list view renders. Assets with no URLs yield no jobs.
func (s Strategy) BuildJobs(assets []Asset) []PreloadJob {
	jobs := make([]PreloadJob, 0, len(assets)*3)
	for i, asset := range assets {
		band := s.Priority(i)
		if asset.AnimationURL != "" {
			jobs = append(jobs, PreloadJob{
				ID:       MediaID(asset.AnimationURL),
				URL:      asset.AnimationURL,
				Kind:     KindAnimation,
				Category: CategoryPrimaryDemo,
				Priority: band,
				AssetID:  asset.ID,
			})
		}
		if asset.DiagramURL != "" {
			jobs = append(jobs, PreloadJob{
				ID:       MediaID(asset.DiagramURL),
				URL:      asset.DiagramURL,
				Kind:     KindStillImage,
				Category: CategoryDiagram,
				Priority: band,
				AssetID:  asset.ID,
			})
		}
		if asset.ThumbnailURL != "" {
			jobs = append(jobs, PreloadJob{
				ID:       MediaID(asset.ThumbnailURL),
				URL:      asset.ThumbnailURL,
				Kind:     KindStillImage,
				Category: CategoryThumbnail,
				Priority: PriorityHigh,
				AssetID:  asset.ID,
			})
		}
	}
	return jobs
}
