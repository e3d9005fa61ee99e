package mediacache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitstride/mediacache/resource"
)

func newPreloadCache(t *testing.T, src *countingOrigin) *MediaCache {
	t.Helper()
	mc, err := New(WithBudget(10<<20), WithOrigin(src))
	require.NoError(t, err)
	return mc
}

func testJob(url string, p Priority) PreloadJob {
	return PreloadJob{
		ID:       MediaID(url),
		URL:      url,
		Kind:     KindAnimation,
		Category: CategoryPrimaryDemo,
		Priority: p,
	}
}

func TestNewPreloader(t *testing.T) {
	_, err := NewPreloader(nil)
	require.ErrorIs(t, err, ErrNilCache)
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()

	t.Run("RejectsInvalidJob", func(t *testing.T) {
		src := newCountingOrigin()
		p, err := NewPreloader(newPreloadCache(t, src))
		require.NoError(t, err)

		_, err = p.Submit(ctx, PreloadJob{URL: "a"})
		var invalid *ErrInvalidJob
		require.ErrorAs(t, err, &invalid)

		_, err = p.Submit(ctx, PreloadJob{ID: "x", URL: "a", Kind: MediaKind(99), Category: CategoryDiagram})
		require.ErrorAs(t, err, &invalid)
	})

	t.Run("DeduplicatesSettledJobs", func(t *testing.T) {
		src := newCountingOrigin()
		src.serve("a", payload(10))
		p, err := NewPreloader(newPreloadCache(t, src))
		require.NoError(t, err)

		require.NoError(t, p.Preload(ctx, []string{"a"}, KindAnimation, CategoryPrimaryDemo))
		require.Equal(t, 1, p.Stats().Completed)

		// Completed ids are not accepted again.
		accepted, err := p.Submit(ctx, testJob("a", PriorityHigh))
		require.NoError(t, err)
		assert.Equal(t, 0, accepted)
		assert.Equal(t, 1, src.count("a"))
	})

	t.Run("DeduplicatesActiveJobs", func(t *testing.T) {
		release := make(chan struct{})
		var started atomic.Int64
		src := originFunc(func(_ context.Context, url string) ([]byte, error) {
			started.Add(1)
			<-release
			return payload(10), nil
		})

		mc, err := New(WithBudget(10<<20), WithOrigin(src))
		require.NoError(t, err)
		p, err := NewPreloader(mc)
		require.NoError(t, err)

		accepted, err := p.Submit(ctx, testJob("a", PriorityHigh))
		require.NoError(t, err)
		require.Equal(t, 1, accepted)

		require.Eventually(t, func() bool {
			return started.Load() == 1
		}, time.Second, 5*time.Millisecond)

		// Same id while in flight: not accepted.
		accepted, err = p.Submit(ctx, testJob("a", PriorityHigh))
		require.NoError(t, err)
		assert.Equal(t, 0, accepted)

		close(release)
		require.Eventually(t, func() bool {
			return p.Stats().Active == 0
		}, time.Second, 5*time.Millisecond)
		assert.Equal(t, int64(1), started.Load())
	})
}

// originFunc adapts a function to the origin interface for tests.
type originFunc func(ctx context.Context, url string) ([]byte, error)

func (f originFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

func TestProcessQueue(t *testing.T) {
	ctx := context.Background()

	t.Run("HighBandDrainsFirst", func(t *testing.T) {
		src := newCountingOrigin()
		var jobs []PreloadJob
		for i := 0; i < 4; i++ {
			url := fmt.Sprintf("low-%d", i)
			src.serve(url, payload(10))
			jobs = append(jobs, testJob(url, PriorityLow))
		}
		for i := 0; i < 4; i++ {
			url := fmt.Sprintf("med-%d", i)
			src.serve(url, payload(10))
			jobs = append(jobs, testJob(url, PriorityMedium))
		}
		for i := 0; i < 4; i++ {
			url := fmt.Sprintf("high-%d", i)
			src.serve(url, payload(10))
			jobs = append(jobs, testJob(url, PriorityHigh))
		}

		p, err := NewPreloader(newPreloadCache(t, src))
		require.NoError(t, err)

		// Low and medium are queued first; high still runs first.
		p.enqueue(jobs)
		p.ProcessQueue(ctx)

		require.Equal(t, 12, p.Stats().Completed)

		src.mu.Lock()
		order := append([]string(nil), src.order...)
		src.mu.Unlock()
		require.Len(t, order, 12)

		pos := make(map[string]int, len(order))
		for i, url := range order {
			pos[url] = i
		}
		for i := 0; i < 4; i++ {
			for j := 0; j < 4; j++ {
				assert.Less(t, pos[fmt.Sprintf("high-%d", i)], pos[fmt.Sprintf("med-%d", j)])
				assert.Less(t, pos[fmt.Sprintf("med-%d", i)], pos[fmt.Sprintf("low-%d", j)])
			}
		}
	})

	t.Run("ConcurrencyCeiling", func(t *testing.T) {
		release := make(chan struct{})
		var inflight atomic.Int64
		var max atomic.Int64
		src := originFunc(func(context.Context, string) ([]byte, error) {
			n := inflight.Add(1)
			for {
				prev := max.Load()
				if n <= prev || max.CompareAndSwap(prev, n) {
					break
				}
			}
			<-release
			inflight.Add(-1)
			return payload(10), nil
		})

		mc, err := New(WithBudget(10<<20), WithOrigin(src))
		require.NoError(t, err)
		p, err := NewPreloader(mc)
		require.NoError(t, err)

		var jobs []PreloadJob
		for i := 0; i < 7; i++ {
			jobs = append(jobs, testJob(fmt.Sprintf("h-%d", i), PriorityHigh))
		}
		p.enqueue(jobs)

		done := make(chan struct{})
		go func() {
			p.ProcessQueue(ctx)
			close(done)
		}()

		// The first batch fills the high band ceiling and no more.
		require.Eventually(t, func() bool {
			return inflight.Load() == 3
		}, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int64(3), inflight.Load())

		close(release)
		<-done

		assert.Equal(t, int64(3), max.Load())
		assert.Equal(t, 7, p.Stats().Completed)
	})

	t.Run("LowBandRunsSerially", func(t *testing.T) {
		var inflight atomic.Int64
		var max atomic.Int64
		src := originFunc(func(context.Context, string) ([]byte, error) {
			n := inflight.Add(1)
			defer inflight.Add(-1)
			for {
				prev := max.Load()
				if n <= prev || max.CompareAndSwap(prev, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			return payload(10), nil
		})

		mc, err := New(WithBudget(10<<20), WithOrigin(src))
		require.NoError(t, err)
		p, err := NewPreloader(mc)
		require.NoError(t, err)

		var jobs []PreloadJob
		for i := 0; i < 4; i++ {
			jobs = append(jobs, testJob(fmt.Sprintf("l-%d", i), PriorityLow))
		}
		p.enqueue(jobs)
		p.ProcessQueue(ctx)

		assert.Equal(t, int64(1), max.Load())
		assert.Equal(t, 4, p.Stats().Completed)
	})
}

func TestPreloadPacedByIOBudget(t *testing.T) {
	ctx := context.Background()

	src := newCountingOrigin()
	src.serve("big", payload(1500))

	mc, err := New(WithBudget(10<<20), WithOrigin(src))
	require.NoError(t, err)

	// 1000 B/s budget against a 1500 B payload: the burst covers the first
	// 1000 bytes, the remainder must wait for the bucket to refill.
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1000})
	p, err := NewPreloader(mc, WithPreloaderResourceController(rc))
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, p.Preload(ctx, []string{"big"}, KindAnimation, CategoryPrimaryDemo))
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)

	stats := p.Stats()
	assert.Equal(t, 1, stats.Completed)
	assert.True(t, mc.Contains("big"))
}

func TestClearResetsActiveSet(t *testing.T) {
	ctx := context.Background()

	release := make(chan struct{})
	var started atomic.Int64
	src := originFunc(func(context.Context, string) ([]byte, error) {
		started.Add(1)
		<-release
		return payload(10), nil
	})

	mc, err := New(WithBudget(10<<20), WithOrigin(src))
	require.NoError(t, err)
	p, err := NewPreloader(mc)
	require.NoError(t, err)

	_, err = p.Submit(ctx, testJob("a", PriorityHigh))
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return started.Load() == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, p.Stats().Active)

	p.Clear()

	stats := p.Stats()
	assert.Equal(t, 0, stats.Queued)
	assert.Equal(t, 0, stats.Active)
	assert.Equal(t, 0, stats.Completed)
	assert.Equal(t, 0, stats.Failed)

	// The running job is not interrupted; it settles into the fresh sets.
	close(release)
	require.Eventually(t, func() bool {
		return p.Stats().Completed == 1
	}, time.Second, 5*time.Millisecond)
}

func TestNoRetry(t *testing.T) {
	ctx := context.Background()

	src := newCountingOrigin()
	src.failURL("a")

	p, err := NewPreloader(newPreloadCache(t, src))
	require.NoError(t, err)

	require.NoError(t, p.Preload(ctx, []string{"a"}, KindAnimation, CategoryPrimaryDemo))

	stats := p.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.SuccessRate)

	// The origin recovers, but a failed id is never resubmitted.
	src.mu.Lock()
	delete(src.fail, "a")
	src.data["a"] = payload(10)
	src.mu.Unlock()

	accepted, err := p.Submit(ctx, testJob("a", PriorityHigh))
	require.NoError(t, err)
	assert.Equal(t, 0, accepted)
	assert.Equal(t, 1, src.count("a"))

	// Clear forgets history and makes the id submittable again.
	p.Clear()
	require.NoError(t, p.Preload(ctx, []string{"a"}, KindAnimation, CategoryPrimaryDemo))
	assert.Equal(t, 1, p.Stats().Completed)
	assert.Equal(t, 2, src.count("a"))
}

func TestSuccessRate(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyIsZero", func(t *testing.T) {
		src := newCountingOrigin()
		p, err := NewPreloader(newPreloadCache(t, src))
		require.NoError(t, err)
		assert.Zero(t, p.Stats().SuccessRate)
	})

	t.Run("MixedOutcomes", func(t *testing.T) {
		src := newCountingOrigin()
		src.serve("a", payload(10))
		src.serve("b", payload(10))
		src.serve("c", payload(10))
		src.failURL("d")

		p, err := NewPreloader(newPreloadCache(t, src))
		require.NoError(t, err)

		require.NoError(t, p.Preload(ctx, []string{"a", "b", "c", "d"}, KindAnimation, CategoryPrimaryDemo))

		stats := p.Stats()
		assert.Equal(t, 3, stats.Completed)
		assert.Equal(t, 1, stats.Failed)
		assert.InDelta(t, 0.75, stats.SuccessRate, 1e-9)
	})
}

func TestJobTimeout(t *testing.T) {
	ctx := context.Background()

	var mu sync.Mutex
	delivered := false
	src := originFunc(func(context.Context, string) ([]byte, error) {
		time.Sleep(100 * time.Millisecond)
		mu.Lock()
		delivered = true
		mu.Unlock()
		return payload(10), nil
	})

	mc, err := New(WithBudget(10<<20), WithOrigin(src))
	require.NoError(t, err)
	p, err := NewPreloader(mc,
		WithTimeoutLimits(TimeoutLimits{High: 20 * time.Millisecond}),
	)
	require.NoError(t, err)

	require.NoError(t, p.Preload(ctx, []string{"slow"}, KindAnimation, CategoryPrimaryDemo))

	stats := p.Stats()
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 0, stats.Completed)

	// The fetch is not cancelled: the late result still warms the cache.
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered
	}, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		return mc.Contains("slow")
	}, time.Second, 5*time.Millisecond)
}

func TestPreloadAssets(t *testing.T) {
	ctx := context.Background()

	src := newCountingOrigin()
	assets := make([]Asset, 5)
	for i := range assets {
		assets[i] = Asset{
			ID:           fmt.Sprintf("ex-%d", i),
			AnimationURL: fmt.Sprintf("anim-%d", i),
			ThumbnailURL: fmt.Sprintf("thumb-%d", i),
		}
		src.serve(assets[i].AnimationURL, payload(20))
		src.serve(assets[i].ThumbnailURL, payload(5))
	}

	mc := newPreloadCache(t, src)
	p, err := NewPreloader(mc, WithStrategy(StrategyConservative))
	require.NoError(t, err)

	p.PreloadAssets(ctx, assets)

	stats := p.Stats()
	assert.Equal(t, 10, stats.Completed)
	assert.Equal(t, 0, stats.Failed)

	for i := range assets {
		assert.True(t, mc.Contains(assets[i].AnimationURL))
		assert.True(t, mc.Contains(assets[i].ThumbnailURL))
	}

	// Thumbnails ride the high band even for low-banded assets, so every
	// thumbnail is fetched before any low-band animation.
	src.mu.Lock()
	order := append([]string(nil), src.order...)
	src.mu.Unlock()
	pos := make(map[string]int, len(order))
	for i, url := range order {
		pos[url] = i
	}
	for i := 0; i < 5; i++ {
		assert.Less(t, pos[fmt.Sprintf("thumb-%d", i)], pos["anim-3"])
		assert.Less(t, pos[fmt.Sprintf("thumb-%d", i)], pos["anim-4"])
	}
}
