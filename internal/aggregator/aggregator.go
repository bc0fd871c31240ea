// Package aggregator orchestrates one logical query across the registered
// sources: it plans which adapters to consult from a declarative per-mode
// policy, fans the calls out concurrently, and merges the completed results
// under the declared priority order. A source that fails contributes
// nothing in mixed mode; only a board of definitive failures fails the
// whole aggregation.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/civiclens/billhub/internal/civic"
	"github.com/civiclens/billhub/internal/domain/merge"
	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/domain/types"
	"github.com/civiclens/billhub/internal/sources"
	"github.com/civiclens/billhub/pkg/logger"
	"github.com/civiclens/billhub/pkg/metrics"
)

// DefaultSourceTimeout bounds each adapter call.
const DefaultSourceTimeout = 8 * time.Second

// policy declares how one query mode consults sources. The table below is
// the complete fallback specification; nothing else decides it.
type policy struct {
	failFast   bool // propagate the first task error instead of degrading
	needsScope bool // expand the constituency before planning
}

var policies = map[query.Mode]policy{
	query.ModeSingle:      {failFast: true},
	query.ModeMixed:       {},
	query.ModeConstituent: {needsScope: true},
}

// task is one planned adapter call. Its index is the merge priority:
// planning emits tasks in (source priority, role) order.
type task struct {
	src   *sources.Source
	op    sources.Operation
	role  sources.Role
	ids   []string
	index int
}

type taskResult struct {
	index   int
	bills   []model.Bill
	err     error
	pending bool
}

// Aggregator fans queries out over the source registry.
type Aggregator struct {
	registry      *sources.Registry
	resolver      civic.Resolver
	sourceTimeout time.Duration
	log           logger.Logger
}

// New creates an aggregator over registry.
func New(registry *sources.Registry, opts ...Option) *Aggregator {
	a := &Aggregator{
		registry:      registry,
		sourceTimeout: DefaultSourceTimeout,
		log:           logger.Named("aggregator"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Run executes one logical query and merges the results. Mixed and
// constituent modes degrade to partial results; single-source mode
// propagates the adapter's error unchanged.
func (a *Aggregator) Run(ctx context.Context, q query.Query) (types.QueryResult, error) {
	started := time.Now()
	mode := q.Mode()
	pol := policies[mode]

	var scope civic.Scope
	if pol.needsScope {
		if a.resolver == nil {
			return types.QueryResult{}, ErrNoResolver
		}
		var err error
		scope, err = a.resolveScope(ctx, q)
		if err != nil {
			return types.QueryResult{}, err
		}
	}

	tasks := a.plan(q, mode, scope)
	if len(tasks) == 0 {
		return types.QueryResult{}, ErrNoSources
	}

	results := a.execute(ctx, q, tasks)

	if pol.failFast {
		if err := singleError(results[0], tasks[0].src.ID()); err != nil {
			return types.QueryResult{}, err
		}
	}

	res, err := a.assemble(q, tasks, results)
	metrics.RecordAggregateLatency(string(mode), float64(time.Since(started).Milliseconds()))
	if err != nil {
		a.log.Warn(ctx, "aggregation failed on every source", logger.String("query", q.String()))
		return res, err
	}
	if res.Partial {
		metrics.RecordPartialResponse()
	}
	return res, nil
}

// resolveScope expands the query's constituency into sponsor ids.
func (a *Aggregator) resolveScope(ctx context.Context, q query.Query) (civic.Scope, error) {
	if q.ZipCode != "" {
		return a.resolver.ResolveZip(ctx, q.ZipCode)
	}
	return a.resolver.ResolveRep(ctx, q.RepresentativeID)
}

// plan emits the ordered task list for a query. The emission order is the
// declared merge priority; completion timing never reorders it.
func (a *Aggregator) plan(q query.Query, mode query.Mode, scope civic.Scope) []task {
	var tasks []task
	add := func(src *sources.Source, op sources.Operation, role sources.Role, ids []string) {
		tasks = append(tasks, task{src: src, op: op, role: role, ids: ids, index: len(tasks)})
	}

	switch mode {
	case query.ModeSingle:
		if src, ok := a.registry.Get(q.Source); ok {
			add(src, listOp(q), "", nil)
		}
	case query.ModeConstituent:
		for _, src := range a.registry.All() {
			if q.Source != "" && src.ID() != q.Source {
				continue
			}
			ids := scope.IDs(src.ID())
			if len(ids) == 0 {
				continue
			}
			for _, role := range src.Roles() {
				add(src, sources.OpBySponsor, role, ids)
			}
		}
	default:
		for _, src := range a.registry.All() {
			add(src, listOp(q), "", nil)
		}
	}
	return tasks
}

// listOp picks the provider-side narrowing for list fetches. The merge
// applies the authoritative filters again afterwards.
func listOp(q query.Query) sources.Operation {
	switch {
	case q.Topic != "":
		return sources.OpByTopic
	case q.Status != "":
		return sources.OpByStatus
	default:
		return sources.OpRecent
	}
}

// execute runs every task concurrently and collects whatever completes
// before ctx expires. Abandoned tasks stay marked pending; their goroutines
// finish into a buffered channel and are never awaited.
func (a *Aggregator) execute(ctx context.Context, q query.Query, tasks []task) []taskResult {
	page := sources.Page{Limit: q.Offset + q.Limit}.Normalize()

	results := make([]taskResult, len(tasks))
	for i := range results {
		results[i] = taskResult{index: i, pending: true}
	}

	resCh := make(chan taskResult, len(tasks))
	for _, t := range tasks {
		go func(t task) {
			tctx, cancel := context.WithTimeout(ctx, a.sourceTimeout)
			defer cancel()
			bills, err := a.fetch(tctx, t, q, page)
			resCh <- taskResult{index: t.index, bills: bills, err: err}
		}(t)
	}

	outstanding := len(tasks)
	for outstanding > 0 {
		select {
		case r := <-resCh:
			results[r.index] = r
			outstanding--
		case <-ctx.Done():
			return results
		}
	}
	return results
}

func (a *Aggregator) fetch(ctx context.Context, t task, q query.Query, page sources.Page) ([]model.Bill, error) {
	switch t.op {
	case sources.OpByTopic:
		return t.src.ByTopic(ctx, q.Topic, page)
	case sources.OpByStatus:
		return t.src.ByStatus(ctx, q.Status, page)
	case sources.OpBySponsor:
		return t.src.BySponsor(ctx, t.role, t.ids, page)
	default:
		return t.src.Recent(ctx, page)
	}
}

// singleError adapts a fail-fast task result to the error the caller sees.
func singleError(r taskResult, source model.SourceID) error {
	if r.pending {
		return &sources.UpstreamError{Source: source, Message: "call abandoned at request deadline"}
	}
	return r.err
}

// assemble merges completed tasks under the declared priority order,
// applies the post-merge filters and window, and reports per-source
// provenance. It fails with ErrAllSourcesFailed only when every consulted
// source completed with a definitive failure.
func (a *Aggregator) assemble(q query.Query, tasks []task, results []taskResult) (types.QueryResult, error) {
	var (
		order  []model.SourceID
		per    = make(map[model.SourceID]*types.SourceOutcome)
		inputs []merge.Input
	)

	for i, t := range tasks {
		src := t.src.ID()
		outcome, seen := per[src]
		if !seen {
			outcome = &types.SourceOutcome{Source: src, Status: types.OutcomePending, Reason: "abandoned at request deadline"}
			per[src] = outcome
			order = append(order, src)
		}

		r := results[i]
		switch {
		case r.pending:
			// keep whatever stronger outcome the source already has
		case r.err == nil:
			inputs = append(inputs, merge.Input{Source: src, Priority: t.index, Bills: r.bills})
			outcome.Status = types.OutcomeOK
			outcome.Reason = ""
		default:
			if outcome.Status != types.OutcomeOK && !outcome.Status.DefinitiveFailure() {
				outcome.Status = sources.Outcome(r.err)
				outcome.Reason = reasonFor(r.err)
			}
		}
	}

	combined, duplicates := merge.Combine(inputs)
	filtered := merge.Filter(combined, q.Topic, q.Status)
	windowed := merge.Window(filtered, q.Offset, q.Limit)
	metrics.RecordMergeDuplicates(duplicates)

	contributed := make(map[model.SourceID]int)
	for _, bill := range filtered {
		contributed[bill.Source]++
	}

	res := types.QueryResult{
		Bills:     windowed,
		Total:     len(filtered),
		Sources:   make([]types.SourceOutcome, 0, len(order)),
		FetchedAt: time.Now(),
	}

	allFailed := len(order) > 0
	for _, src := range order {
		outcome := per[src]
		outcome.Bills = contributed[src]
		if outcome.Status != types.OutcomeOK {
			res.Partial = true
		}
		if !outcome.Status.DefinitiveFailure() {
			allFailed = false
		}
		res.Sources = append(res.Sources, *outcome)
	}

	if allFailed {
		return res, ErrAllSourcesFailed
	}
	return res, nil
}

// reasonFor is the sanitized per-source detail reported to callers. Raw
// upstream messages stay in logs.
func reasonFor(err error) string {
	switch outcome := sources.Outcome(err); outcome {
	case types.OutcomeQuotaExceeded:
		return "quota exhausted"
	case types.OutcomeCircuitOpen:
		return "circuit open"
	default:
		var upstream *sources.UpstreamError
		if errors.As(err, &upstream) && upstream.Status != 0 {
			return fmt.Sprintf("upstream status %d", upstream.Status)
		}
		return "upstream error"
	}
}
