// Package feedwatch polls provider action feeds (RSS/Atom) and turns
// observed legislative activity into targeted cache revalidation. Polling a
// feed is free; re-fetching from a metered API is not, so the watcher only
// enqueues refreshes for sources that actually showed new activity, and
// only for cached entries old enough to plausibly miss it.
package feedwatch

import (
	"context"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/civiclens/billhub/internal/cache"
	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/refresh"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// Default polling configuration.
const (
	DefaultInterval = 5 * time.Minute
	DefaultMinAge   = 30 * time.Second

	pollTimeout = 20 * time.Second
	maxSeen     = 10000
)

// Feed is one provider action feed to watch.
type Feed struct {
	Name   string         `json:"name" koanf:"name"`
	Source model.SourceID `json:"source" koanf:"source"`
	URL    string         `json:"url" koanf:"url"`
}

// Lister exposes the cached entry population to walk on activity.
type Lister interface {
	Entries() []cache.Entry
}

// Enqueuer accepts revalidation jobs.
type Enqueuer interface {
	Enqueue(ctx context.Context, job refresh.Job) bool
}

// Watcher polls the configured feeds on a ticker. Feed failures are logged
// and counted, never fatal: a broken feed only loses proactive refresh.
type Watcher struct {
	feeds    []Feed
	cache    Lister
	pool     Enqueuer
	parser   *gofeed.Parser
	interval time.Duration
	minAge   time.Duration
	now      func() time.Time

	mu     sync.Mutex
	seen   map[string]struct{}
	primed map[string]bool // feed name -> first poll done

	done chan struct{}
	stop sync.Once
	log  logger.Logger
}

// New creates a watcher over the given feeds.
func New(feeds []Feed, lister Lister, pool Enqueuer, opts ...Option) *Watcher {
	w := &Watcher{
		feeds:    feeds,
		cache:    lister,
		pool:     pool,
		parser:   gofeed.NewParser(),
		interval: DefaultInterval,
		minAge:   DefaultMinAge,
		now:      time.Now,
		seen:     make(map[string]struct{}),
		primed:   make(map[string]bool),
		done:     make(chan struct{}),
		log:      logger.Named("feedwatch"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the polling loop. It returns immediately; cancel ctx or
// call Stop to end it.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		// Prime the seen set so startup does not refresh the whole cache.
		w.PollAll(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-ticker.C:
				w.PollAll(ctx)
			}
		}
	}()
}

// Stop ends the polling loop.
func (w *Watcher) Stop() {
	w.stop.Do(func() { close(w.done) })
}

// PollAll polls every configured feed once and enqueues refreshes for
// sources with new activity.
func (w *Watcher) PollAll(ctx context.Context) {
	active := make(map[model.SourceID]bool)
	for _, feed := range w.feeds {
		if w.poll(ctx, feed) {
			active[feed.Source] = true
		}
	}
	for source := range active {
		w.trigger(ctx, source)
	}
}

// poll fetches one feed and reports whether it carried unseen items. The
// first poll of a feed only seeds the seen set.
func (w *Watcher) poll(ctx context.Context, feed Feed) bool {
	pctx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	parsed, err := w.parser.ParseURLWithContext(feed.URL, pctx)
	if err != nil {
		metrics.RecordFeedPoll(feed.Name, "error")
		w.log.Warn(ctx, "feed poll failed", logger.String("feed", feed.Name), logger.Error(err))
		return false
	}
	metrics.RecordFeedPoll(feed.Name, "ok")

	w.mu.Lock()
	defer w.mu.Unlock()

	first := !w.primed[feed.Name]
	w.primed[feed.Name] = true

	fresh := false
	for _, item := range parsed.Items {
		guid := item.GUID
		if guid == "" {
			guid = item.Link
		}
		if guid == "" {
			continue
		}
		key := feed.Name + "\x00" + guid
		if _, ok := w.seen[key]; ok {
			continue
		}
		w.seen[key] = struct{}{}
		fresh = true
	}
	if len(w.seen) > maxSeen {
		// Unbounded growth beats a slow leak into OOM; losing the set only
		// costs one spurious refresh round.
		w.seen = make(map[string]struct{})
		w.primed = map[string]bool{feed.Name: true}
	}

	return fresh && !first
}

// trigger enqueues a refresh for every cached entry whose query involves
// source and whose result is old enough to miss the observed activity.
func (w *Watcher) trigger(ctx context.Context, source model.SourceID) {
	now := w.now()
	for _, entry := range w.cache.Entries() {
		if !involves(entry, source) {
			continue
		}
		if entry.Age(now) < w.minAge {
			continue
		}
		if w.pool.Enqueue(ctx, refresh.Job{Fingerprint: entry.Fingerprint, Query: entry.Query}) {
			metrics.RecordFeedTrigger()
			w.log.Debug(ctx, "feed activity triggered refresh",
				logger.String("source", string(source)),
				logger.String("fingerprint", entry.Fingerprint))
		}
	}
}

// involves reports whether the entry's query consults source. A query with
// no explicit source fans out to every provider.
func involves(entry cache.Entry, source model.SourceID) bool {
	return entry.Query.Source == "" || entry.Query.Source == source
}
