package service_test

import (
	"context"
	"errors"
	"testing"

	service "github.com/civiclens/billhub/internal/app"
	"github.com/civiclens/billhub/internal/civic"
	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/domain/query"
	"github.com/civiclens/billhub/internal/domain/types"
	"github.com/civiclens/billhub/internal/kv"
	. "github.com/smartystreets/goconvey/convey"
)

func TestServiceMergeAcrossSources(t *testing.T) {
	Convey("Given two upstreams reporting an overlapping bill", t, func() {
		ctx := context.Background()
		federal := &stubClient{id: model.SourceFederal, bills: []model.Bill{
			makeBill(model.SourceFederal, "HR-2045", "Rural Broadband Act"),
			makeBill(model.SourceFederal, "HR-3100", "Farm Credit Extension"),
		}}
		// The statehouse mirrors HR 2045 under its own formatting.
		state := &stubClient{id: model.SourceState, bills: []model.Bill{
			makeBill(model.SourceState, "H.R. 2045", "Rural Broadband Act (mirrored)"),
			makeBill(model.SourceState, "SB-101", "State Water Rights"),
		}}
		svc := service.New(testConfig(),
			service.WithStore(kv.NewMemory()),
			service.WithClients(federal, state),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a mixed query runs", func() {
			reply, err := svc.Query(ctx, mustParse(query.Params{}), "")
			So(err, ShouldBeNil)

			Convey("Then the duplicate collapses to the higher-priority source", func() {
				So(reply.Result.Bills, ShouldHaveLength, 3)
				So(reply.Result.Total, ShouldEqual, 3)

				var rural model.Bill
				for _, bill := range reply.Result.Bills {
					if bill.NativeID == "hr2045" {
						rural = bill
					}
				}
				So(rural.Source, ShouldEqual, model.SourceFederal)
				So(rural.Title, ShouldEqual, "Rural Broadband Act")
			})

			Convey("And provenance covers both sources", func() {
				So(reply.Result.Sources, ShouldHaveLength, 2)
				So(reply.Result.Partial, ShouldBeFalse)
			})
		})

		Convey("When one upstream is failing", func() {
			state.setErr(errors.New("upstream 503"))

			reply, err := svc.Query(ctx, mustParse(query.Params{}), "")
			So(err, ShouldBeNil)

			Convey("Then the survivors still produce a partial result", func() {
				So(reply.Result.Partial, ShouldBeTrue)
				So(reply.Result.Bills, ShouldHaveLength, 2)
				for _, bill := range reply.Result.Bills {
					So(bill.Source, ShouldEqual, model.SourceFederal)
				}
			})
		})
	})
}

func TestServiceConstituentQueries(t *testing.T) {
	Convey("Given a roster-backed resolver and sponsored bills", t, func() {
		ctx := context.Background()
		federal := &stubClient{
			id: model.SourceFederal,
			sponsored: []model.Bill{
				makeBill(model.SourceFederal, "HR-77", "District Transit Funding"),
			},
		}
		state := &stubClient{id: model.SourceState}
		resolver := civic.NewStatic([]civic.Representative{
			{
				ID:        "rep-ruiz",
				Name:      "A. Ruiz",
				Source:    model.SourceFederal,
				SponsorID: "R000123",
				Zips:      []string{"94107"},
			},
		})
		svc := service.New(testConfig(),
			service.WithStore(kv.NewMemory()),
			service.WithClients(federal, state),
			service.WithResolver(resolver),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When a zip-scoped query runs", func() {
			reply, err := svc.Query(ctx, mustParse(query.Params{ZipCode: "94107"}), "")
			So(err, ShouldBeNil)

			Convey("Then only the scoped source's sponsored bills come back", func() {
				So(reply.Result.Bills, ShouldHaveLength, 1)
				So(reply.Result.Bills[0].NativeID, ShouldEqual, "hr77")
			})
		})

		Convey("When the zip is not in the roster", func() {
			q, err := query.Parse(query.Params{ZipCode: "00000"})
			So(err, ShouldBeNil)

			_, err = svc.Query(ctx, q, "")

			Convey("Then resolution fails with the unresolved sentinel", func() {
				So(errors.Is(err, civic.ErrUnresolved), ShouldBeTrue)
			})
		})
	})
}

func TestServiceDurableTier(t *testing.T) {
	Convey("Given a shared durable store across two service generations", t, func() {
		ctx := context.Background()
		store := kv.NewMemory()
		federal := &stubClient{id: model.SourceFederal, bills: []model.Bill{
			makeBill(model.SourceFederal, "HR-1", "First"),
		}}
		cfg := testConfig()
		cfg.FederalQuota = 10

		q := mustParse(query.Params{Source: "federal"})

		first := service.New(cfg,
			service.WithStore(store),
			service.WithClients(federal),
		)
		So(first.Start(ctx), ShouldBeNil)

		warm, err := first.Query(ctx, q, "")
		So(err, ShouldBeNil)
		So(warm.Cache, ShouldEqual, types.CacheMiss)
		first.Stop()

		Convey("When a fresh service comes up over the same store", func() {
			second := service.New(cfg,
				service.WithStore(store),
				service.WithClients(federal),
			)
			So(second.Start(ctx), ShouldBeNil)
			defer second.Stop()

			Convey("Then the cached entry survives the restart", func() {
				reply, err := second.Query(ctx, q, "")
				So(err, ShouldBeNil)
				So(reply.Cache, ShouldEqual, types.CacheHit)
				So(reply.ETag, ShouldEqual, warm.ETag)
				So(federal.callCount(), ShouldEqual, 1)
			})

			Convey("Then the quota ledger survives the restart", func() {
				statuses := second.Sources()
				So(statuses, ShouldHaveLength, 1)
				So(statuses[0].Quota.Used, ShouldEqual, 1)
				So(statuses[0].Quota.Remaining, ShouldEqual, 9)
			})
		})
	})
}
