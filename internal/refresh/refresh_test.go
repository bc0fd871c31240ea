package refresh_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/refresh"
	"github.com/civiclens/billhub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

type recorder struct {
	mu      sync.Mutex
	queries []query.Query
	block   chan struct{} // when set, jobs wait here before finishing
	ran     chan struct{}
}

func newRecorder() *recorder {
	return &recorder{ran: make(chan struct{}, 16)}
}

func (r *recorder) fn(_ context.Context, q query.Query) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	r.ran <- struct{}{}
	return nil
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queries)
}

func mkJob(topic string) refresh.Job {
	q, err := query.Parse(query.Params{Topic: topic})
	So(err, ShouldBeNil)
	return refresh.Job{Fingerprint: q.Fingerprint(), Query: q}
}

func TestPoolRunsJobs(t *testing.T) {
	Convey("Given a started pool", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rec := newRecorder()
		pool := refresh.New(rec.fn, refresh.WithWorkers(2), refresh.WithQueueSize(8))
		pool.Start(ctx)
		defer pool.Stop()

		Convey("Enqueued jobs are executed", func() {
			So(pool.Enqueue(ctx, mkJob("water")), ShouldBeTrue)
			So(pool.Enqueue(ctx, mkJob("energy")), ShouldBeTrue)

			for i := 0; i < 2; i++ {
				select {
				case <-rec.ran:
				case <-time.After(2 * time.Second):
					t.Fatal("job did not run")
				}
			}
			So(rec.count(), ShouldEqual, 2)
		})
	})
}

func TestInFlightDedupe(t *testing.T) {
	Convey("Given a pool with one worker stuck on a job", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		rec := newRecorder()
		rec.block = make(chan struct{})
		pool := refresh.New(rec.fn, refresh.WithWorkers(1), refresh.WithQueueSize(8))
		pool.Start(ctx)

		job := mkJob("water")
		So(pool.Enqueue(ctx, job), ShouldBeTrue)

		Convey("The same fingerprint is rejected while pending", func() {
			So(pool.Enqueue(ctx, job), ShouldBeFalse)

			Convey("And accepted again once the job finished", func() {
				close(rec.block)
				select {
				case <-rec.ran:
				case <-time.After(2 * time.Second):
					t.Fatal("job did not run")
				}
				rec.block = nil
				So(pool.Enqueue(ctx, job), ShouldBeTrue)
			})
		})

		Reset(func() {
			if rec.block != nil {
				select {
				case <-rec.block:
				default:
					close(rec.block)
				}
			}
			pool.Stop()
		})
	})
}

func TestQueueFullDrops(t *testing.T) {
	Convey("Given an unstarted pool with a tiny queue", t, func() {
		ctx := context.Background()
		rec := newRecorder()
		pool := refresh.New(rec.fn, refresh.WithQueueSize(1))

		Convey("Enqueues beyond capacity are dropped, not blocked", func() {
			So(pool.Enqueue(ctx, mkJob("one")), ShouldBeTrue)
			So(pool.Enqueue(ctx, mkJob("two")), ShouldBeFalse)
			So(pool.Len(), ShouldEqual, 1)

			Convey("And the dropped fingerprint is free to retry", func() {
				// Drain the slot, then the dropped job fits.
				started := make(chan struct{})
				go func() { pool.Start(context.Background()); close(started) }()
				<-started
				select {
				case <-rec.ran:
				case <-time.After(2 * time.Second):
					t.Fatal("job did not run")
				}
				So(pool.Enqueue(ctx, mkJob("two")), ShouldBeTrue)
				pool.Stop()
			})
		})
	})
}

func TestStoppedPoolRejects(t *testing.T) {
	Convey("Given a stopped pool", t, func() {
		ctx := context.Background()
		rec := newRecorder()
		pool := refresh.New(rec.fn)
		pool.Start(ctx)
		pool.Stop()

		Convey("Enqueue reports false", func() {
			So(pool.Enqueue(ctx, mkJob("water")), ShouldBeFalse)
		})
	})
}
