package scheduler

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/coinpulse/coinpulse/internal/collector"
	"github.com/coinpulse/coinpulse/internal/processor"
)

// State of the cycle machine. One scheduled cycle walks
// Idle -> Fetching -> Normalizing -> Deduplicating -> Published -> Idle.
// Normalization happens inside the adapters, so Normalizing is the
// window between fan-in and the dedup merge.
type State string

const (
	StateIdle          State = "idle"
	StateFetching      State = "fetching"
	StateNormalizing   State = "normalizing"
	StateDeduplicating State = "deduplicating"
	StatePublished     State = "published"
)

// BatchStore persists a published batch. Satisfied by *storage.Store.
type BatchStore interface {
	SaveBatch(articles []collector.Article) error
}

// ContentEnricher fills in article bodies for link-only items after the
// dedup merge. Satisfied by *collector.PageTextClient.
type ContentEnricher interface {
	Enrich(ctx context.Context, articles []collector.Article) int
}

// Options tune one Collector.
type Options struct {
	FetchLimit     int           // per-source article cap per cycle
	Window         time.Duration // how far back each cycle queries
	SourceTimeout  time.Duration // per-adapter call budget
	MaxConcurrent  int           // concurrency cap across adapters
	MaxAttempts    int           // bounded retries for transient failures
	RetryBaseDelay time.Duration // exponential backoff base

	Enricher ContentEnricher // optional, nil means no enrichment
}

func (o *Options) defaults() {
	if o.FetchLimit <= 0 {
		o.FetchLimit = 50
	}
	if o.Window <= 0 {
		o.Window = 24 * time.Hour
	}
	if o.SourceTimeout <= 0 {
		o.SourceTimeout = 10 * time.Second
	}
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 3
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.RetryBaseDelay <= 0 {
		o.RetryBaseDelay = 2 * time.Second
	}
}

// Collector runs collection cycles over the configured sources on a
// cron schedule and fans the published batches out to subscribers.
type Collector struct {
	cron    *cron.Cron
	sources []collector.Source
	dedup   *processor.DedupIndex
	store   BatchStore
	opts    Options

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	state  State
	latest *processor.Batch
	subs   []chan processor.Batch
}

func New(spec string, sources []collector.Source, dedup *processor.DedupIndex, store BatchStore, opts Options) (*Collector, error) {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Collector{
		cron:    cron.New(),
		sources: sources,
		dedup:   dedup,
		store:   store,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		state:   StateIdle,
	}
	if _, err := c.cron.AddFunc(spec, func() { c.runScheduled() }); err != nil {
		cancel()
		return nil, err
	}
	return c, nil
}

// Start begins the cron schedule. The first cycle is delayed a little so
// a freshly started API server answers its first requests promptly.
func (c *Collector) Start() {
	c.cron.Start()
	const startupDelay = 10 * time.Second
	time.AfterFunc(startupDelay, func() { c.runScheduled() })
}

// Stop cancels any in-flight cycle and halts the schedule. A cancelled
// cycle publishes nothing. Subscriber channels are closed so consumers
// ranging over them terminate.
func (c *Collector) Stop() {
	c.cancel()
	c.cron.Stop()

	c.mu.Lock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.mu.Unlock()
}

// State returns the current cycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Latest returns the most recently published batch, or nil before the
// first cycle completes. Pull interface.
func (c *Collector) Latest() *processor.Batch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest
}

// Subscribe returns a channel that receives every published batch.
// Slow consumers drop batches rather than stall the pipeline.
func (c *Collector) Subscribe() <-chan processor.Batch {
	ch := make(chan processor.Batch, 1)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

func (c *Collector) runScheduled() {
	if _, err := c.RunCycle(c.ctx); err != nil {
		log.Printf("cycle aborted: %v", err)
	}
}

// RunCycle executes one full cycle: concurrent fan-out across all
// sources, dedup merge, persist, publish. A failing source contributes
// an error to the report, never an abort; only context cancellation
// aborts the cycle, and then partial results are discarded.
func (c *Collector) RunCycle(ctx context.Context) (*processor.Batch, error) {
	started := time.Now()
	c.setState(StateFetching)
	defer c.setState(StateIdle)

	q := collector.Query{
		Since: started.Add(-c.opts.Window),
		Limit: c.opts.FetchLimit,
	}

	results := make([]collector.Result, len(c.sources))
	reports := make([]processor.SourceReport, len(c.sources))

	g := new(errgroup.Group)
	g.SetLimit(c.opts.MaxConcurrent)
	for i, src := range c.sources {
		g.Go(func() error {
			res, err := c.fetchWithRetry(ctx, src, q)
			results[i] = res
			reports[i] = processor.SourceReport{
				Source:    src.Name(),
				Fetched:   len(res.Articles),
				Malformed: res.Malformed,
			}
			if err != nil {
				reports[i].Error = err.Error()
				log.Printf("fetch %s error: %v", src.Name(), err)
			}
			return nil // source failures are isolated, not propagated
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err // cancelled mid-flight: discard partial results
	}

	c.setState(StateNormalizing)
	c.setState(StateDeduplicating)
	batch := processor.Assemble(results, reports, c.dedup, time.Now())
	batch.Report.StartedAt = started
	batch.Report.FinishedAt = time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c.opts.Enricher != nil && len(batch.Articles) > 0 {
		if n := c.opts.Enricher.Enrich(ctx, batch.Articles); n > 0 {
			log.Printf("enriched %d articles with page text", n)
		}
	}

	if c.store != nil && len(batch.Articles) > 0 {
		if err := c.store.SaveBatch(batch.Articles); err != nil {
			log.Printf("save batch error: %v", err)
		}
	}

	c.setState(StatePublished)
	c.publish(batch)

	log.Printf("cycle done: %d articles from %d sources (%d errors) in %s",
		batch.Report.Total, len(c.sources), len(batch.Report.Errors()), time.Since(started).Round(time.Millisecond))
	return &batch, nil
}

// fetchWithRetry applies the error policy: transient failures retry
// with exponential backoff up to MaxAttempts, rate limits honor the
// provider's retry-after hint, configuration errors fail immediately
// for that source.
func (c *Collector) fetchWithRetry(ctx context.Context, src collector.Source, q collector.Query) (collector.Result, error) {
	var lastErr error
	delay := c.opts.RetryBaseDelay

	for attempt := 1; attempt <= c.opts.MaxAttempts; attempt++ {
		sctx, cancel := context.WithTimeout(ctx, c.opts.SourceTimeout)
		res, err := src.Fetch(sctx, q)
		cancel()
		if err == nil {
			return res, nil
		}
		lastErr = err

		var cfgErr *collector.ConfigError
		if errors.As(err, &cfgErr) {
			return res, err // misconfiguration will not heal on retry
		}
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		if attempt == c.opts.MaxAttempts {
			break
		}

		wait := delay
		var rl *collector.RateLimitedError
		if errors.As(err, &rl) && rl.RetryAfter > 0 {
			if rl.RetryAfter > c.opts.SourceTimeout {
				return res, err // pacing window outlasts any attempt, next cycle picks it up
			}
			wait = rl.RetryAfter
		}
		log.Printf("fetch %s attempt %d/%d failed, retrying in %s: %v", src.Name(), attempt, c.opts.MaxAttempts, wait, err)

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return collector.Result{Source: src.Name()}, ctx.Err()
		case <-t.C:
		}
		delay *= 2
	}
	return collector.Result{Source: src.Name()}, lastErr
}

func (c *Collector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Collector) publish(batch processor.Batch) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.latest = &batch
	for _, ch := range c.subs {
		select {
		case ch <- batch:
		default: // drop for slow consumers
		}
	}
}
