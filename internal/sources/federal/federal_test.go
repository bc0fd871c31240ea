package federal_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/civiclens/billhub/internal/domain/model"
	"github.com/civiclens/billhub/internal/sources"
	"github.com/civiclens/billhub/internal/sources/federal"
	. "github.com/smartystreets/goconvey/convey"
)

const listBody = `{
  "bills": [
    {
      "number": "H.R. 2045",
      "congress": 119,
      "title": "Rural Broadband Expansion Act",
      "summary": "Expands broadband grants.",
      "stage": "passedHouse",
      "subjects": ["telecommunications", "rural development"],
      "introducedDate": "2025-02-11",
      "latestActionDate": "2025-05-04",
      "sponsor": {"bioguideId": "A000360", "fullName": "Ada Alvarez", "party": "D", "chamber": "House"}
    },
    {
      "number": "S. 310",
      "congress": 119,
      "title": "Clean Water Standards Act",
      "stage": "introduced",
      "introducedDate": "2025-03-01",
      "sponsor": {"bioguideId": "B000575", "fullName": "Ben Brook", "party": "R", "chamber": "Senate"}
    }
  ],
  "pagination": {"count": 2}
}`

func TestNormalization(t *testing.T) {
	Convey("Given a provider answering a bill list", t, func() {
		ctx := context.Background()
		var gotReq *http.Request
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotReq = r.Clone(context.Background())
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(listBody))
		}))
		defer server.Close()

		client := federal.New("test-key", federal.WithBaseURL(server.URL))

		Convey("When fetching recent bills", func() {
			bills, err := client.Recent(ctx, sources.Page{Limit: 25, Offset: 50})
			So(err, ShouldBeNil)

			Convey("Then pagination and auth travel on the request", func() {
				So(gotReq.Header.Get("X-Api-Key"), ShouldEqual, "test-key")
				So(gotReq.URL.Query().Get("limit"), ShouldEqual, "25")
				So(gotReq.URL.Query().Get("offset"), ShouldEqual, "50")
			})

			Convey("Then bills are normalized and provenance-tagged", func() {
				So(bills, ShouldHaveLength, 2)

				first := bills[0]
				So(first.ID, ShouldEqual, "federal:hr2045")
				So(first.NativeID, ShouldEqual, "hr2045")
				So(first.Source, ShouldEqual, model.SourceFederal)
				So(first.Status, ShouldEqual, model.StatusPassedChamber)
				So(first.Sponsor.Name, ShouldEqual, "Ada Alvarez")
				So(first.IntroducedAt, ShouldEqual, time.Date(2025, 2, 11, 0, 0, 0, 0, time.UTC))
				So(first.LastActionAt, ShouldEqual, time.Date(2025, 5, 4, 0, 0, 0, 0, time.UTC))
			})

			Convey("Then a missing latest action falls back to the introduced date", func() {
				second := bills[1]
				So(second.Status, ShouldEqual, model.StatusIntroduced)
				So(second.LastActionAt, ShouldEqual, second.IntroducedAt)
			})
		})

		Convey("When filtering by topic", func() {
			_, err := client.ByTopic(ctx, "water", sources.Page{})
			So(err, ShouldBeNil)
			So(gotReq.URL.Query().Get("subject"), ShouldEqual, "water")
		})

		Convey("When filtering by a stage spanning two provider stages", func() {
			_, err := client.ByStatus(ctx, model.StatusPassedChamber, sources.Page{})
			So(err, ShouldBeNil)
			So(gotReq.URL.Query().Get("stage"), ShouldEqual, "passedHouse,passedSenate")
		})

		Convey("When filtering by sponsors", func() {
			_, err := client.BySponsor(ctx, sources.RoleCosponsor, []string{"A000360", "B000575"}, sources.Page{})
			So(err, ShouldBeNil)
			So(gotReq.URL.Query().Get("sponsorIds"), ShouldEqual, "A000360,B000575")
			So(gotReq.URL.Query().Get("role"), ShouldEqual, "cosponsor")
		})
	})
}

func TestUpstreamFailures(t *testing.T) {
	Convey("Given providers answering badly", t, func() {
		ctx := context.Background()

		Convey("When the provider answers a server error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte(`{"error": {"message": "backend unavailable"}}`))
			}))
			defer server.Close()

			client := federal.New("k", federal.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the error carries the status and counts against the breaker", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Status, ShouldEqual, http.StatusBadGateway)
				So(upstream.Message, ShouldEqual, "backend unavailable")
				So(upstream.Countable(), ShouldBeTrue)
			})
		})

		Convey("When the provider rejects the query", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "unknown subject", http.StatusBadRequest)
			}))
			defer server.Close()

			client := federal.New("k", federal.WithBaseURL(server.URL))
			_, err := client.ByTopic(ctx, "???", sources.Page{})

			Convey("Then the fault is not countable", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Status, ShouldEqual, http.StatusBadRequest)
				So(upstream.Countable(), ShouldBeFalse)
			})
		})

		Convey("When the provider answers 200 with garbage", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html>maintenance</html>`))
			}))
			defer server.Close()

			client := federal.New("k", federal.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the schema violation is countable", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Status, ShouldEqual, http.StatusOK)
				So(upstream.Countable(), ShouldBeTrue)
			})
		})

		Convey("When a bill carries a stage this client does not know", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"bills": [{"number": "hr9", "title": "X", "stage": "teleported"}]}`))
			}))
			defer server.Close()

			client := federal.New("k", federal.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the whole response is rejected", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Message, ShouldContainSubstring, "teleported")
			})
		})

		Convey("When the provider is unreachable", func() {
			server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
			server.Close()

			client := federal.New("k", federal.WithBaseURL(server.URL))
			_, err := client.Recent(ctx, sources.Page{})

			Convey("Then the transport fault has no status and is countable", func() {
				var upstream *sources.UpstreamError
				So(errors.As(err, &upstream), ShouldBeTrue)
				So(upstream.Status, ShouldEqual, 0)
				So(upstream.Countable(), ShouldBeTrue)
			})
		})
	})
}
