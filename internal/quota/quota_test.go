package quota_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	kv "github.com/civiclens/billhub/internal/kv"
	quota "github.com/civiclens/billhub/internal/quota"
	"github.com/civiclens/billhub/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestTryAcquire(t *testing.T) {
	Convey("Given a limiter with a hard ceiling of 3", t, func() {
		ctx := context.Background()
		limiter := quota.New()
		limiter.Register(model.SourceState, 3)

		Convey("When acquiring up to the ceiling", func() {
			remaining := make([]int, 0, 3)
			for i := 0; i < 3; i++ {
				decision, err := limiter.TryAcquire(ctx, model.SourceState)
				So(err, ShouldBeNil)
				So(decision.Allowed, ShouldBeTrue)
				remaining = append(remaining, decision.Remaining)
			}

			Convey("Then remaining counts down to zero", func() {
				So(remaining, ShouldResemble, []int{2, 1, 0})
			})

			Convey("And the next acquisition is denied without error", func() {
				decision, err := limiter.TryAcquire(ctx, model.SourceState)
				So(err, ShouldBeNil)
				So(decision.Allowed, ShouldBeFalse)
				So(decision.Remaining, ShouldEqual, 0)
				So(decision.ResetAt, ShouldHappenAfter, time.Now())
			})
		})

		Convey("When acquiring for an unregistered source", func() {
			_, err := limiter.TryAcquire(ctx, model.SourceFederal)

			Convey("Then it fails with ErrUnknownSource", func() {
				So(errors.Is(err, quota.ErrUnknownSource), ShouldBeTrue)
			})
		})

		Convey("When using the error-returning form past the ceiling", func() {
			for i := 0; i < 3; i++ {
				So(limiter.Acquire(ctx, model.SourceState), ShouldBeNil)
			}
			err := limiter.Acquire(ctx, model.SourceState)

			Convey("Then the denial is a typed exhaustion error", func() {
				So(errors.Is(err, quota.ErrExhausted), ShouldBeTrue)

				var exhausted *quota.ExhaustedError
				So(errors.As(err, &exhausted), ShouldBeTrue)
				So(exhausted.Source, ShouldEqual, model.SourceState)
				So(exhausted.ResetAt, ShouldHappenAfter, time.Now())
			})
		})
	})
}

func TestPeriodRollover(t *testing.T) {
	Convey("Given a limiter with an injected clock and a one-hour period", t, func() {
		ctx := context.Background()
		now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		var clock atomic.Value
		clock.Store(now)

		limiter := quota.New(
			quota.WithPeriod(time.Hour),
			quota.WithClock(func() time.Time { return clock.Load().(time.Time) }),
		)
		limiter.Register(model.SourceFederal, 2)

		Convey("When the budget is exhausted", func() {
			for i := 0; i < 2; i++ {
				decision, _ := limiter.TryAcquire(ctx, model.SourceFederal)
				So(decision.Allowed, ShouldBeTrue)
			}
			denied, _ := limiter.TryAcquire(ctx, model.SourceFederal)
			So(denied.Allowed, ShouldBeFalse)

			Convey("And the period elapses", func() {
				clock.Store(now.Add(61 * time.Minute))
				decision, err := limiter.TryAcquire(ctx, model.SourceFederal)

				Convey("Then the counter has reset", func() {
					So(err, ShouldBeNil)
					So(decision.Allowed, ShouldBeTrue)
					So(decision.Remaining, ShouldEqual, 1)
				})
			})

			Convey("And several periods elapse at once", func() {
				clock.Store(now.Add(5*time.Hour + 10*time.Minute))
				snap, err := limiter.Snapshot(model.SourceFederal)

				Convey("Then the window advances by whole periods", func() {
					So(err, ShouldBeNil)
					So(snap.Used, ShouldEqual, 0)
					So(snap.PeriodStart, ShouldEqual, now.Add(5*time.Hour))
					So(snap.ResetAt, ShouldEqual, now.Add(6*time.Hour))
				})
			})
		})
	})
}

func TestConcurrentAcquisition(t *testing.T) {
	Convey("Given a ceiling of 50 under 200 concurrent callers", t, func() {
		ctx := context.Background()
		limiter := quota.New()
		limiter.Register(model.SourceState, 50)

		var allowed int64
		var wg sync.WaitGroup
		for i := 0; i < 200; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				decision, err := limiter.TryAcquire(ctx, model.SourceState)
				if err == nil && decision.Allowed {
					atomic.AddInt64(&allowed, 1)
				}
			}()
		}
		wg.Wait()

		Convey("Then exactly the ceiling is granted", func() {
			So(allowed, ShouldEqual, 50)
		})

		Convey("And the snapshot agrees", func() {
			snap, err := limiter.Snapshot(model.SourceState)
			So(err, ShouldBeNil)
			So(snap.Used, ShouldEqual, 50)
			So(snap.Remaining, ShouldEqual, 0)
		})
	})
}

func TestDurability(t *testing.T) {
	Convey("Given a limiter persisting to a store", t, func() {
		ctx := context.Background()
		store := kv.NewMemory()

		limiter := quota.New(quota.WithStore(store))
		limiter.Register(model.SourceFederal, 10)

		Convey("When budget is consumed and a new limiter restores", func() {
			for i := 0; i < 4; i++ {
				_, err := limiter.TryAcquire(ctx, model.SourceFederal)
				So(err, ShouldBeNil)
			}

			restored := quota.New(quota.WithStore(store))
			restored.Register(model.SourceFederal, 10)
			restored.Restore(ctx)

			Convey("Then consumption carries across restarts", func() {
				snap, err := restored.Snapshot(model.SourceFederal)
				So(err, ShouldBeNil)
				So(snap.Used, ShouldEqual, 4)
				So(snap.Remaining, ShouldEqual, 6)
			})
		})

		Convey("When the store holds garbage", func() {
			So(store.Set(ctx, "quota:federal", []byte("not json"), 0), ShouldBeNil)
			restored := quota.New(quota.WithStore(store))
			restored.Register(model.SourceFederal, 10)
			restored.Restore(ctx)

			Convey("Then the source starts fresh", func() {
				snap, err := restored.Snapshot(model.SourceFederal)
				So(err, ShouldBeNil)
				So(snap.Used, ShouldEqual, 0)
			})
		})
	})
}

func TestSnapshots(t *testing.T) {
	Convey("Given two registered sources", t, func() {
		limiter := quota.New()
		limiter.Register(model.SourceState, 500)
		limiter.Register(model.SourceFederal, 5000)

		Convey("When listing snapshots", func() {
			snapshots := limiter.Snapshots()

			Convey("Then they are ordered by source id", func() {
				So(snapshots, ShouldHaveLength, 2)
				So(snapshots[0].Source, ShouldEqual, model.SourceFederal)
				So(snapshots[1].Source, ShouldEqual, model.SourceState)
				So(snapshots[0].Limit, ShouldEqual, 5000)
			})
		})
	})
}
