package statehouse_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/sources"
	"github.com/civiclens/billhub/internal/sources/statehouse"
	. "github.com/smartystreets/goconvey/convey"
)

const listBody = `{
  "status": "OK",
  "bills": [
    {
      "bill_id": 1847292,
      "number": "SB 101",
      "title": "Watershed Protection Act",
      "description": "Protects watersheds.",
      "status": 3,
      "status_date": "2025-04-22",
      "introduced_date": "2025-01-15",
      "last_action": "Passed Senate",
      "last_action_date": "2025-04-22",
      "subjects": ["Water", "Environment"],
      "sponsor": {"people_id": 223, "name": "Sam Rivers", "party": "D", "role": "Sen"}
    }
  ]
}`

func TestNormalization(t *testing.T) {
	Convey("Given a provider answering an OK envelope", t, func() {
		ctx := context.Background()
		var gotReq *http.Request
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReq = r.Clone(context.Background())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(listBody))
		}))
		defer server.Close()

		client := statehouse.New("sk-test", "CA", statehouse.WithBaseURL(server.URL))

		Convey("When fetching recent bills", func() {
			bills, err := client.Recent(ctx, sources.Page{Limit: 10})
			So(err, ShouldBeNil)

			Convey("Then auth, scope and the operation travel as parameters", func() {
				q := gotReq.URL.Query()
				So(q.Get("key"), ShouldEqual, "sk-test")
				So(q.Get("state"), ShouldEqual, "CA")
				So(q.Get("op"), ShouldEqual, "masterlist")
				So(q.Get("limit"), ShouldEqual, "10")
			})

			Convey("Then bills are normalized and provenance-tagged", func() {
				So(bills, ShouldHaveLength, 1)

				bill := bills[0]
				So(bill.ID, ShouldEqual, "state:sb101")
				So(bill.NativeID, ShouldEqual, "sb101")
				So(bill.Source, ShouldEqual, model.SourceState)
				So(bill.Status, ShouldEqual, model.StatusPassedChamber)
				So(bill.Sponsor.ID, ShouldEqual, "223")
				So(bill.Sponsor.Chamber, ShouldEqual, "Senate")
				So(bill.IntroducedAt, ShouldEqual, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
				So(bill.LastActionAt, ShouldEqual, time.Date(2025, 4, 22, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When filtering by status", func() {
			_, err := client.ByStatus(ctx, model.StatusEnacted, sources.Page{})
			So(err, ShouldBeNil)

			Convey("Then the stage travels as its numeric code", func() {
				So(gotReq.URL.Query().Get("status"), ShouldEqual, "5")
			})
		})

		Convey("When searching by topic", func() {
			_, err := client.ByTopic(ctx, "water rights", sources.Page{})
			So(err, ShouldBeNil)

			q := gotReq.URL.Query()
			So(q.Get("op"), ShouldEqual, "search")
			So(q.Get("query"), ShouldEqual, "water rights")
		})

		Convey("When fetching by sponsors", func() {
			_, err := client.BySponsor(ctx, sources.RoleSponsor, []string{"223", "431"}, sources.Page{})
			So(err, ShouldBeNil)

			q := gotReq.URL.Query()
			So(q.Get("op"), ShouldEqual, "sponsored")
			So(q.Get("people_ids"), ShouldEqual, "223,431")
			So(q.Get("role"), ShouldEqual, "sponsor")
		})
	})
}

func TestEnvelopeAndFailures(t *testing.T) {
	Convey("Given providers answering badly", t, func() {
		ctx := context.Background()

		Convey("When the envelope reports an error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status": "ERROR", "alert": {"message": "invalid api key"}}`))
			}))
			defer server.Close()

			client := statehouse.New("bad", "CA", statehouse.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the alert surfaces as a countable upstream error", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Message, ShouldEqual, "invalid api key")
				So(upstream.Countable(), ShouldBeTrue)
			})
		})

		Convey("When a bill carries an unknown status code", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status": "OK", "bills": [{"bill_id": 1, "number": "SB 9", "title": "X", "status": 42}]}`))
			}))
			defer server.Close()

			client := statehouse.New("k", "CA", statehouse.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the response is rejected as a schema violation", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Status, ShouldEqual, http.StatusOK)
				So(upstream.Message, ShouldContainSubstring, "42")
				So(upstream.Countable(), ShouldBeTrue)
			})
		})

		Convey("When the provider answers a server error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "overloaded", http.StatusServiceUnavailable)
			}))
			defer server.Close()

			client := statehouse.New("k", "CA", statehouse.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the status rides the error", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Status, ShouldEqual, http.StatusServiceUnavailable)
			})
		})
	})
}
