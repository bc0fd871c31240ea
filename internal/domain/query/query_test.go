package query_test

import (
	"errors"
	"testing"

	"github.com/civiclens/billhub/internal/domain/model"
	query "github.com/civiclens/billhub/internal/domain/query"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParse(t *testing.T) {
	Convey("Given raw inbound parameters", t, func() {
		Convey("When parsing an empty parameter set", func() {
			q, err := query.Parse(query.Params{})

			Convey("Then defaults apply", func() {
				So(err, ShouldBeNil)
				So(q.Source, ShouldEqual, model.SourceID(""))
				So(q.Limit, ShouldEqual, query.DefaultLimit)
				So(q.Offset, ShouldEqual, 0)
				So(q.Mode(), ShouldEqual, query.ModeMixed)
			})
		})

		Convey("When parsing a fully specified query", func() {
			q, err := query.Parse(query.Params{
				Source: "federal",
				Topic:  "  Clean Water ",
				Status: "passed-chamber",
				Limit:  "50",
				Offset: "10",
			})

			Convey("Then every field normalizes", func() {
				So(err, ShouldBeNil)
				So(q.Source, ShouldEqual, model.SourceFederal)
				So(q.Topic, ShouldEqual, "clean water")
				So(q.Status, ShouldEqual, model.StatusPassedChamber)
				So(q.Limit, ShouldEqual, 50)
				So(q.Offset, ShouldEqual, 10)
				So(q.Mode(), ShouldEqual, query.ModeSingle)
			})
		})

		Convey("When parsing an unknown source", func() {
			_, err := query.Parse(query.Params{Source: "county"})

			Convey("Then it fails validation", func() {
				So(errors.Is(err, query.ErrInvalidSource), ShouldBeTrue)
				So(query.IsValidation(err), ShouldBeTrue)
			})
		})

		Convey("When parsing an unknown status", func() {
			_, err := query.Parse(query.Params{Status: "tabled"})

			Convey("Then it fails validation", func() {
				So(errors.Is(err, query.ErrInvalidStatus), ShouldBeTrue)
			})
		})

		Convey("When parsing a malformed zip code", func() {
			_, err := query.Parse(query.Params{ZipCode: "1234"})

			Convey("Then it fails validation", func() {
				So(errors.Is(err, query.ErrInvalidZip), ShouldBeTrue)
			})
		})

		Convey("When parsing both a zip code and a representative", func() {
			_, err := query.Parse(query.Params{
				ZipCode:          "94110",
				RepresentativeID: "rep-12",
			})

			Convey("Then the scopes conflict", func() {
				So(errors.Is(err, query.ErrConflictingScope), ShouldBeTrue)
			})
		})

		Convey("When parsing out-of-range limits", func() {
			for _, raw := range []string{"0", "-5", "101", "abc"} {
				_, err := query.Parse(query.Params{Limit: raw})
				So(errors.Is(err, query.ErrInvalidLimit), ShouldBeTrue)
			}
		})

		Convey("When parsing a negative offset", func() {
			_, err := query.Parse(query.Params{Offset: "-1"})

			Convey("Then it fails validation", func() {
				So(errors.Is(err, query.ErrInvalidOffset), ShouldBeTrue)
			})
		})
	})
}

func TestMode(t *testing.T) {
	Convey("Given normalized queries", t, func() {
		Convey("When no scope is set", func() {
			So(query.Query{Limit: 20}.Mode(), ShouldEqual, query.ModeMixed)
		})

		Convey("When a source is set", func() {
			q := query.Query{Source: model.SourceState, Limit: 20}
			So(q.Mode(), ShouldEqual, query.ModeSingle)
		})

		Convey("When a zip code is set", func() {
			q := query.Query{ZipCode: "94110", Limit: 20}
			So(q.Mode(), ShouldEqual, query.ModeConstituent)
		})

		Convey("When a representative and a source are both set", func() {
			q := query.Query{Source: model.SourceFederal, RepresentativeID: "rep-9", Limit: 20}

			Convey("Then constituent scoping wins", func() {
				So(q.Mode(), ShouldEqual, query.ModeConstituent)
			})
		})
	})
}

func TestFingerprint(t *testing.T) {
	Convey("Given structurally equivalent queries", t, func() {
		first, errFirst := query.Parse(query.Params{Topic: "Water", Status: "enacted", Limit: "20"})
		second, errSecond := query.Parse(query.Params{Status: "ENACTED", Topic: "  water", Offset: "0"})

		So(errFirst, ShouldBeNil)
		So(errSecond, ShouldBeNil)

		Convey("When fingerprinting both", func() {
			Convey("Then the fingerprints are identical", func() {
				So(first.Fingerprint(), ShouldEqual, second.Fingerprint())
			})
		})
	})

	Convey("Given queries that differ in one parameter", t, func() {
		base, _ := query.Parse(query.Params{Topic: "water"})
		shifted, _ := query.Parse(query.Params{Topic: "water", Offset: "20"})
		scoped, _ := query.Parse(query.Params{Topic: "water", Source: "state"})

		Convey("Then the fingerprints diverge", func() {
			So(base.Fingerprint(), ShouldNotEqual, shifted.Fingerprint())
			So(base.Fingerprint(), ShouldNotEqual, scoped.Fingerprint())
		})
	})

	Convey("Given any query", t, func() {
		q, _ := query.Parse(query.Params{ZipCode: "94110"})

		Convey("Then the fingerprint is stable across calls", func() {
			So(q.Fingerprint(), ShouldEqual, q.Fingerprint())
			So(len(q.Fingerprint()), ShouldEqual, 16)
		})
	})
}
