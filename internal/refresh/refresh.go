// Package refresh runs background revalidation of cached query results.
// Jobs flow through a bounded in-memory queue into a worker pool; enqueue
// never blocks, and a query already waiting or running is enqueued at most
// once, so a burst of stale hits for the same fingerprint costs one
// aggregation.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// Default pool configuration.
const (
	DefaultWorkers   = 4
	DefaultQueueSize = 256

	jobTimeout          = 30 * time.Second
	poolShutdownTimeout = 30 * time.Second
)

// Job is one revalidation request: re-run the query and replace its cache
// entry.
type Job struct {
	Fingerprint string
	Query       query.Query
}

// Func re-executes one query and stores the result. A returned error keeps
// the old cache entry in place; staleness is preferred over unavailability.
type Func func(ctx context.Context, q query.Query) error

// Pool owns the queue and its workers.
type Pool struct {
	fn        Func
	workers   int
	queueSize int

	jobs chan Job

	mu       sync.Mutex
	inFlight map[string]struct{}
	closed   bool

	done chan struct{}
	wg   sync.WaitGroup

	log logger.Logger
}

// New creates a stopped pool around fn. Call Start to begin draining.
func New(fn Func, opts ...Option) *Pool {
	p := &Pool{
		fn:        fn,
		workers:   DefaultWorkers,
		queueSize: DefaultQueueSize,
		inFlight:  make(map[string]struct{}),
		done:      make(chan struct{}),
		log:       logger.Named("refresh"),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.jobs = make(chan Job, p.queueSize)

	metrics.UpdateRefreshQueueCapacity(p.queueSize)
	metrics.UpdateRefreshQueueSize(0)
	metrics.UpdateRefreshWorkers(0)
	return p
}

// Enqueue offers a job without blocking. It reports false when the job was
// dropped: the pool is stopped, the queue is full, or the same fingerprint
// is already pending.
func (p *Pool) Enqueue(ctx context.Context, job Job) bool {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false
	}
	if _, pending := p.inFlight[job.Fingerprint]; pending {
		p.mu.Unlock()
		metrics.RecordRefreshDuplicate()
		return false
	}
	p.inFlight[job.Fingerprint] = struct{}{}
	p.mu.Unlock()

	select {
	case p.jobs <- job:
		metrics.RecordRefreshEnqueue()
		metrics.UpdateRefreshQueueSize(len(p.jobs))
		return true
	default:
		p.release(job.Fingerprint)
		metrics.RecordRefreshDropped()
		p.log.Warn(ctx, "revalidation queue full, dropping job",
			logger.String("fingerprint", job.Fingerprint))
		return false
	}
}

// Len reports the queued job backlog.
func (p *Pool) Len() int { return len(p.jobs) }

// Start launches the workers. They drain the queue until Stop is called or
// ctx is canceled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.run(ctx)
	}
	metrics.UpdateRefreshWorkers(p.workers)
}

// Stop closes the queue and waits for in-flight jobs, bounded by the
// shutdown timeout.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.jobs)

	finished := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(poolShutdownTimeout):
		p.log.Warn(context.Background(), "refresh pool shutdown timed out")
	}
	close(p.done)
	metrics.UpdateRefreshWorkers(0)
}

// run is one worker loop.
func (p *Pool) run(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.process(ctx, job)
			metrics.UpdateRefreshQueueSize(len(p.jobs))
		}
	}
}

// process executes one job. The fingerprint stays reserved for the whole
// run so a stale hit arriving mid-refresh does not queue a second pass.
func (p *Pool) process(ctx context.Context, job Job) {
	defer p.release(job.Fingerprint)

	jctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	start := time.Now()
	err := p.fn(jctx, job.Query)
	metrics.RecordRefreshLatency(float64(time.Since(start).Milliseconds()))

	if err != nil {
		metrics.RecordRefreshJob("error")
		p.log.Warn(ctx, "revalidation failed, keeping stale entry",
			logger.String("fingerprint", job.Fingerprint),
			logger.String("query", job.Query.String()),
			logger.Error(err))
		return
	}
	metrics.RecordRefreshJob("ok")
	p.log.Debug(ctx, "revalidated cache entry", logger.String("fingerprint", job.Fingerprint))
}

func (p *Pool) release(fingerprint string) {
	p.mu.Lock()
	delete(p.inFlight, fingerprint)
	p.mu.Unlock()
}
