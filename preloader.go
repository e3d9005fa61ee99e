package mediacache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fitstride/mediacache/resource"
)

// ErrNilCache is returned by NewPreloader when no cache is provided.
var ErrNilCache = errors.New("preloader requires a media cache")

// Preloader opportunistically warms a MediaCache for assets likely to be
// requested soon. Jobs are scheduled in priority bands: the high band
// drains completely before medium starts, medium before low. Within a
// band, at most a fixed number of jobs run concurrently, so background
// warming never floods the origin or starves foreground fetches.
//
// A job id settles exactly once. Completed and failed ids are never
// re-fetched: a failed asset will simply be served via the cache's
// URL fallback when the UI actually needs it.
type Preloader struct {
	cache *MediaCache

	mu        sync.Mutex
	queue     []PreloadJob
	queued    map[string]struct{}
	active    map[string]struct{}
	completed map[string]struct{}
	failed    map[string]struct{}

	// drainMu serializes queue draining. A ProcessQueue call that starts
	// while another is draining blocks until the first finishes, then
	// picks up whatever is still queued.
	drainMu sync.Mutex

	concurrency ConcurrencyLimits
	timeouts    TimeoutLimits
	strategy    Strategy
	rc          *resource.Controller
	logger      *Logger
	metrics     MetricsCollector
}

// NewPreloader creates a Preloader that warms the given cache.
func NewPreloader(cache *MediaCache, optFns ...PreloaderOption) (*Preloader, error) {
	if cache == nil {
		return nil, ErrNilCache
	}
	o := applyPreloaderOptions(optFns)
	return &Preloader{
		cache:       cache,
		queued:      make(map[string]struct{}),
		active:      make(map[string]struct{}),
		completed:   make(map[string]struct{}),
		failed:      make(map[string]struct{}),
		concurrency: o.concurrency,
		timeouts:    o.timeouts,
		strategy:    o.strategy,
		rc:          o.controller,
		logger:      o.logger,
		metrics:     o.metricsCollector,
	}, nil
}

// Submit validates jobs and appends the ones not already known to the
// scheduler. A job id that is queued, active, completed or failed is
// silently skipped: settled work is never re-submitted. Accepted jobs are
// processed in the background; returns how many were accepted.
func (p *Preloader) Submit(ctx context.Context, jobs ...PreloadJob) (int, error) {
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return 0, err
		}
	}

	accepted := p.enqueue(jobs)
	if accepted > 0 {
		// Background warming outlives the submitting request.
		go p.ProcessQueue(context.WithoutCancel(ctx))
	}
	return accepted, nil
}

func (p *Preloader) enqueue(jobs []PreloadJob) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	accepted := 0
	for _, job := range jobs {
		if _, ok := p.queued[job.ID]; ok {
			continue
		}
		if _, ok := p.active[job.ID]; ok {
			continue
		}
		if _, ok := p.completed[job.ID]; ok {
			continue
		}
		if _, ok := p.failed[job.ID]; ok {
			continue
		}
		p.queued[job.ID] = struct{}{}
		p.queue = append(p.queue, job)
		accepted++
	}
	return accepted
}

// ProcessQueue drains the pending queue batch by batch and returns when
// it is empty. Each batch holds jobs of the single highest pending band,
// capped at that band's concurrency ceiling, and must settle completely
// before the next batch is taken; jobs submitted mid-drain are picked up
// at the next batch boundary, so a late high-priority submission still
// runs before queued low-priority work.
func (p *Preloader) ProcessQueue(ctx context.Context) {
	p.drainMu.Lock()
	defer p.drainMu.Unlock()

	for {
		batch := p.takeBatch()
		if len(batch) == 0 {
			return
		}
		p.runBatch(ctx, batch)
	}
}

// takeBatch pops up to the band ceiling of jobs from the highest
// non-empty priority band, in submission order, and marks them active.
func (p *Preloader) takeBatch() []PreloadJob {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 {
		return nil
	}

	band := PriorityLow
	for _, job := range p.queue {
		if job.Priority < band {
			band = job.Priority
		}
	}

	limit := p.concurrency.ForPriority(band)
	batch := make([]PreloadJob, 0, limit)
	rest := p.queue[:0]
	for _, job := range p.queue {
		if job.Priority == band && len(batch) < limit {
			batch = append(batch, job)
			delete(p.queued, job.ID)
			p.active[job.ID] = struct{}{}
			continue
		}
		rest = append(rest, job)
	}
	p.queue = rest
	return batch
}

func (p *Preloader) runBatch(ctx context.Context, batch []PreloadJob) {
	var failed atomic.Int64

	g := new(errgroup.Group)
	for _, job := range batch {
		job := job
		g.Go(func() error {
			if !p.runJob(ctx, job) {
				failed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	p.logger.LogPreloadBatch(ctx, batch[0].Priority, len(batch), int(failed.Load()))
}

// errPreloadTimeout marks jobs that outlived their band's time budget.
var errPreloadTimeout = errors.New("preload job timed out")

// runJob executes one job and settles it exactly once. The fetch itself
// runs on an uncancellable context: when the band timeout fires, the job
// is recorded as failed, but a late fetch result still lands in the cache
// so the bytes are not wasted.
func (p *Preloader) runJob(ctx context.Context, job PreloadJob) bool {
	start := time.Now()

	if p.rc != nil {
		if err := p.rc.AcquireBackground(ctx); err != nil {
			p.settle(job, false)
			p.metrics.RecordPreload(job.Priority, time.Since(start), err)
			p.logger.LogPreloadJob(ctx, job, time.Since(start), err)
			return false
		}
		defer p.rc.ReleaseBackground()
	}

	fetchCtx := context.WithoutCancel(ctx)
	done := make(chan error, 1)
	go func() {
		content, err := p.cache.Get(fetchCtx, job.URL, job.Kind, job.Category)
		if err == nil && content.Source == SourceFallback {
			err = errors.New("origin fetch failed")
		}
		// Downloaded bytes count against the background IO budget, so a
		// band cannot saturate the link. Foreground gets are never paced.
		if err == nil && content.Source == SourceOrigin && p.rc != nil {
			err = p.rc.AcquireIO(fetchCtx, len(content.Data))
		}
		done <- err
	}()

	timer := time.NewTimer(p.timeouts.ForPriority(job.Priority))
	defer timer.Stop()

	var err error
	select {
	case err = <-done:
	case <-timer.C:
		err = errPreloadTimeout
	}

	ok := err == nil
	p.settle(job, ok)
	p.metrics.RecordPreload(job.Priority, time.Since(start), err)
	p.logger.LogPreloadJob(ctx, job, time.Since(start), err)
	return ok
}

func (p *Preloader) settle(job PreloadJob, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, job.ID)
	if ok {
		p.completed[job.ID] = struct{}{}
	} else {
		p.failed[job.ID] = struct{}{}
	}
}

// Preload submits one job per URL at high priority and blocks until the
// queue has drained. Use Submit directly for fire-and-forget warming.
func (p *Preloader) Preload(ctx context.Context, urls []string, kind MediaKind, category MediaCategory) error {
	jobs := make([]PreloadJob, 0, len(urls))
	for _, url := range urls {
		jobs = append(jobs, PreloadJob{
			ID:       MediaID(url),
			URL:      url,
			Kind:     kind,
			Category: category,
			Priority: PriorityHigh,
		})
	}
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return err
		}
	}
	p.enqueue(jobs)
	p.ProcessQueue(ctx)
	return nil
}

// PreloadAssets expands ordered assets into jobs using the configured
// strategy, submits them, and blocks until the queue has drained. Asset
// order matters: earlier assets land in higher priority bands.
func (p *Preloader) PreloadAssets(ctx context.Context, assets []Asset) {
	p.enqueue(p.strategy.BuildJobs(assets))
	p.ProcessQueue(ctx)
}

// Stats returns a read-only snapshot of scheduler state.
func (p *Preloader) Stats() PreloaderStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	completed := len(p.completed)
	failed := len(p.failed)
	var successRate float64
	if total := completed + failed; total > 0 {
		successRate = float64(completed) / float64(total)
	}

	return PreloaderStats{
		Queued:      len(p.queue),
		Active:      len(p.active),
		Completed:   completed,
		Failed:      failed,
		SuccessRate: successRate,
	}
}

// Clear drops all pending jobs, empties the active set, and forgets
// settled history, so previously failed ids become submittable again.
// Jobs already running are not interrupted; they settle into the fresh
// completed/failed sets when they finish.
func (p *Preloader) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.queue = nil
	p.queued = make(map[string]struct{})
	p.active = make(map[string]struct{})
	p.completed = make(map[string]struct{})
	p.failed = make(map[string]struct{})
}
