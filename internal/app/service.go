// Package service wires the aggregation pipeline together and implements
// the dependencies required by the HTTP API: cached query serving with
// stale-while-revalidate, per-source health reporting, and operational
// statistics.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/civiclens/billhub/internal/aggregator"
	"github.com/civiclens/billhub/internal/breaker"
	"github.com/civiclens/billhub/internal/cache"
	"github.com/civiclens/billhub/internal/civic"
	"github.com/civiclens/billhub/internal/config"
	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/domain/types"
	"github.com/civiclens/billhub/internal/feedwatch"
	"github.com/civiclens/billhub/internal/kv"
	"github.com/civiclens/billhub/internal/quota"
	"github.com/civiclens/billhub/internal/refresh"
	"github.com/civiclens/billhub/internal/sources"
	"github.com/civiclens/billhub/internal/sources/federal"
	"github.com/civiclens/billhub/internal/sources/statehouse"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// Service composes the durable store, quota limiter, circuit breakers,
// source registry, aggregator, response cache, background refresh pool and
// feed watcher into one lifecycle.
type Service struct {
	mu  sync.RWMutex
	cfg *config.Config

	store    kv.Store
	ownStore bool
	limiter  *quota.Limiter
	registry *sources.Registry
	resolver civic.Resolver
	agg      *aggregator.Aggregator
	cache    *cache.Cache
	pool     *refresh.Pool
	watcher  *feedwatch.Watcher

	// clients overrides the real upstream adapters; used by tests.
	clients []sources.Client

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects a pre-built durable store instead of the one derived
// from configuration.
func WithStore(store kv.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClients replaces the real upstream adapters, typically with fakes.
func WithClients(clients ...sources.Client) Option {
	return func(s *Service) {
		if len(clients) > 0 {
			s.clients = clients
		}
	}
}

// WithResolver sets the constituency resolver used for zip and
// representative scoped queries.
func WithResolver(resolver civic.Resolver) Option {
	return func(s *Service) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(log logger.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.logger = log
		}
	}
}

// New constructs a Service from configuration. Nothing is connected until
// Start is called.
func New(cfg *config.Config, opts ...Option) *Service {
	s := &Service{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}

	s.logger.Info(ctx, "starting bill aggregation service...")

	if s.store == nil {
		s.store = s.buildStore(ctx)
		s.ownStore = true
	}

	s.limiter = quota.New(
		quota.WithPeriod(s.cfg.QuotaPeriod()),
		quota.WithStore(s.store),
	)

	clients := s.clients
	if len(clients) == 0 {
		clients = s.buildClients()
	}

	srcs := make([]*sources.Source, 0, len(clients))
	for i, client := range clients {
		id := client.Source()
		limit := s.quotaFor(id)
		s.limiter.Register(id, limit)
		metrics.UpdateQuotaLimit(string(id), limit)

		brk := breaker.New(id,
			breaker.WithThreshold(s.cfg.BreakerThreshold),
			breaker.WithWindow(s.cfg.BreakerWindow()),
			breaker.WithCooldown(s.cfg.BreakerCooldown()),
			breaker.WithClassifier(sources.Countable),
		)
		srcs = append(srcs, sources.New(client, s.limiter, brk,
			sources.WithPriority(i+1),
		))
	}
	s.registry = sources.NewRegistry(srcs...)
	s.limiter.Restore(ctx)

	if s.resolver == nil && len(s.cfg.Representatives) > 0 {
		s.resolver = civic.NewStatic(s.cfg.Representatives,
			civic.WithMaxScope(s.cfg.CivicMaxScope),
		)
	}

	aggOpts := []aggregator.Option{
		aggregator.WithSourceTimeout(s.cfg.SourceTimeout()),
	}
	if s.resolver != nil {
		aggOpts = append(aggOpts, aggregator.WithResolver(s.resolver))
	}
	s.agg = aggregator.New(s.registry, aggOpts...)

	s.cache = cache.New(
		cache.WithTTL(s.cfg.CacheTTL()),
		cache.WithRetention(s.cfg.CacheRetention()),
		cache.WithStore(s.store),
	)

	s.pool = refresh.New(s.refreshQuery,
		refresh.WithWorkers(s.cfg.RefreshWorkers),
		refresh.WithQueueSize(s.cfg.RefreshQueueSize),
	)
	s.pool.Start(ctx)

	if len(s.cfg.Feeds) > 0 {
		s.watcher = feedwatch.New(s.cfg.Feeds, s.cache, s.pool,
			feedwatch.WithInterval(s.cfg.FeedPollInterval()),
			feedwatch.WithMinAge(s.cfg.FeedMinAge()),
		)
		s.watcher.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "bill aggregation service started",
		logger.Int("sources", s.registry.Len()),
		logger.Int("refreshWorkers", s.cfg.RefreshWorkers),
		logger.Int("feeds", len(s.cfg.Feeds)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping bill aggregation service...")

	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.pool != nil {
		s.pool.Stop()
	}
	if s.ownStore && s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "bill aggregation service stopped")
}

// Query serves one bill query, consulting the response cache first.
// clientETag carries the If-None-Match validator, already unquoted; an
// empty string means the request is unconditional.
//
// Stale entries are served immediately in mixed and constituent modes with
// a background refresh scheduled; single-source queries re-aggregate
// synchronously and fall back to the stale entry only when every upstream
// fails definitively.
func (s *Service) Query(ctx context.Context, q query.Query, clientETag string) (types.QueryReply, error) {
	fingerprint := q.Fingerprint()
	entry, found := s.cache.Get(ctx, fingerprint)
	now := time.Now()

	if found && clientETag != "" && clientETag == entry.ETag {
		metrics.RecordNotModified()
		return types.QueryReply{
			ETag:        entry.ETag,
			Cache:       s.cacheState(entry),
			Age:         entry.Age(now),
			TTL:         s.cache.TTL(),
			NotModified: true,
		}, nil
	}

	if found && s.cache.IsFresh(entry) {
		metrics.RecordCacheHit()
		return s.reply(entry, types.CacheHit, now), nil
	}

	if found && q.Mode() != query.ModeSingle {
		// Serve stale immediately, revalidate in the background.
		s.pool.Enqueue(ctx, refresh.Job{Fingerprint: fingerprint, Query: q})
		metrics.RecordCacheStaleHit()
		return s.reply(entry, types.CacheStale, now), nil
	}

	result, err := s.agg.Run(ctx, q)
	if err != nil {
		if found && fallbackEligible(err) {
			s.logger.Warn(ctx, "aggregation failed, serving stale entry",
				logger.String("query", q.String()),
			)
			metrics.RecordFallbackResponse()
			return s.reply(entry, types.CacheStale, now), nil
		}
		return types.QueryReply{}, err
	}

	fresh := s.cache.NewEntry(q, result)
	s.cache.Put(ctx, fresh)
	metrics.RecordCacheMiss()
	return s.reply(fresh, types.CacheMiss, time.Now()), nil
}

// Sources reports the operational snapshot for every registered upstream.
func (s *Service) Sources() []types.SourceStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.registry == nil {
		return nil
	}
	statuses := make([]types.SourceStatus, 0, s.registry.Len())
	for _, src := range s.registry.All() {
		status := types.SourceStatus{
			Source:   src.ID(),
			Priority: src.Priority(),
			Health:   src.Health(),
		}
		if snap, err := src.Quota(); err == nil {
			status.Quota = snap
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"refreshWorkers": s.cfg.RefreshWorkers,
	}

	if s.started {
		stats["sources"] = s.registry.Len()
		stats["cacheEntries"] = s.cache.Len()
		stats["cacheTTLMs"] = s.cache.TTL().Milliseconds()
		stats["refreshQueue"] = s.pool.Len()

		metrics.UpdateCacheEntries(s.cache.Len())
		metrics.UpdateRefreshQueueSize(s.pool.Len())
	}

	return stats
}

// refreshQuery re-aggregates one cached query and replaces its entry. It
// runs on the refresh pool's workers.
func (s *Service) refreshQuery(ctx context.Context, q query.Query) error {
	result, err := s.agg.Run(ctx, q)
	if err != nil {
		return err
	}
	s.cache.Put(ctx, s.cache.NewEntry(q, result))
	return nil
}

// fallbackEligible reports whether an aggregation error is a completed
// upstream failure, in which case a retained stale entry is still a better
// answer than the error.
func fallbackEligible(err error) bool {
	if errors.Is(err, aggregator.ErrAllSourcesFailed) {
		return true
	}
	return sources.Outcome(err).DefinitiveFailure()
}

func (s *Service) reply(entry cache.Entry, state types.CacheState, now time.Time) types.QueryReply {
	return types.QueryReply{
		Result: entry.Result,
		ETag:   entry.ETag,
		Cache:  state,
		Age:    entry.Age(now),
		TTL:    s.cache.TTL(),
	}
}

func (s *Service) cacheState(entry cache.Entry) types.CacheState {
	if s.cache.IsFresh(entry) {
		return types.CacheHit
	}
	return types.CacheStale
}

func (s *Service) buildStore(ctx context.Context) kv.Store {
	if s.cfg.RedisAddr == "" {
		s.logger.Info(ctx, "using in-memory store")
		return kv.NewMemory()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPassword,
		DB:       s.cfg.RedisDB,
	})
	s.logger.Info(ctx, "using redis store", logger.String("addr", s.cfg.RedisAddr))
	return kv.NewRedis(client, kv.WithKeyPrefix("billhub:"))
}

func (s *Service) buildClients() []sources.Client {
	clients := []sources.Client{
		federal.New(s.cfg.FederalAPIKey,
			federal.WithBaseURL(s.cfg.FederalBaseURL),
			federal.WithTimeout(s.cfg.SourceTimeout()),
		),
	}
	if s.cfg.StateAPIKey != "" {
		clients = append(clients, statehouse.New(s.cfg.StateAPIKey, s.cfg.StateCode,
			statehouse.WithBaseURL(s.cfg.StateBaseURL),
			statehouse.WithTimeout(s.cfg.SourceTimeout()),
		))
	}
	return clients
}

func (s *Service) quotaFor(id model.SourceID) int {
	switch id {
	case model.SourceState:
		return s.cfg.StateQuota
	default:
		return s.cfg.FederalQuota
	}
}
