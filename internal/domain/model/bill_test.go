package model_test

import (
	"testing"
	"time"

	model "github.com/civiclens/billhub/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestTagID(t *testing.T) {
	convey.Convey("Given a source and a native id", t, func() {
		convey.Convey("When tagging a federal bill", func() {
			id := model.TagID(model.SourceFederal, "hr-1234")

			convey.Convey("Then the id carries the provenance prefix", func() {
				convey.So(id, convey.ShouldEqual, "federal:hr-1234")
			})
		})

		convey.Convey("When two providers assign the same native id", func() {
			federal := model.TagID(model.SourceFederal, "b-77")
			state := model.TagID(model.SourceState, "b-77")

			convey.Convey("Then the tagged ids remain distinct", func() {
				convey.So(federal, convey.ShouldNotEqual, state)
			})
		})
	})
}

func TestNormalizeNativeID(t *testing.T) {
	convey.Convey("Given provider bill numbers in assorted shapes", t, func() {
		convey.Convey("When normalizing", func() {
			variants := []string{"H.R. 2045", "hr-2045", "HR2045", "hr_2045"}
			for _, v := range variants {
				convey.So(model.NormalizeNativeID(v), convey.ShouldEqual, "hr2045")
			}
		})

		convey.Convey("When numbers genuinely differ", func() {
			convey.So(model.NormalizeNativeID("SB101"), convey.ShouldNotEqual, model.NormalizeNativeID("SB102"))
		})
	})
}

func TestParseSource(t *testing.T) {
	convey.Convey("Given inbound source parameters", t, func() {
		convey.Convey("When parsing known sources", func() {
			federal, okFederal := model.ParseSource("federal")
			state, okState := model.ParseSource("state")

			convey.Convey("Then both resolve", func() {
				convey.So(okFederal, convey.ShouldBeTrue)
				convey.So(federal, convey.ShouldEqual, model.SourceFederal)
				convey.So(okState, convey.ShouldBeTrue)
				convey.So(state, convey.ShouldEqual, model.SourceState)
			})
		})

		convey.Convey("When parsing with surrounding noise", func() {
			source, ok := model.ParseSource("  Federal ")

			convey.Convey("Then case and whitespace are ignored", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(source, convey.ShouldEqual, model.SourceFederal)
			})
		})

		convey.Convey("When parsing an unknown source", func() {
			_, ok := model.ParseSource("municipal")

			convey.Convey("Then it does not resolve", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestParseStatus(t *testing.T) {
	convey.Convey("Given inbound status parameters", t, func() {
		convey.Convey("When parsing every canonical stage", func() {
			stages := []string{
				"introduced", "committee", "passed_chamber",
				"passed_both", "enacted", "vetoed", "failed",
			}

			convey.Convey("Then each resolves to itself", func() {
				for _, stage := range stages {
					status, ok := model.ParseStatus(stage)
					convey.So(ok, convey.ShouldBeTrue)
					convey.So(string(status), convey.ShouldEqual, stage)
				}
			})
		})

		convey.Convey("When parsing a hyphenated stage", func() {
			status, ok := model.ParseStatus("passed-chamber")

			convey.Convey("Then hyphens normalize to underscores", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(status, convey.ShouldEqual, model.StatusPassedChamber)
			})
		})

		convey.Convey("When parsing mixed case", func() {
			status, ok := model.ParseStatus("Enacted")

			convey.Convey("Then case is ignored", func() {
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(status, convey.ShouldEqual, model.StatusEnacted)
			})
		})

		convey.Convey("When parsing an unknown stage", func() {
			_, ok := model.ParseStatus("tabled")

			convey.Convey("Then it does not resolve", func() {
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestBill(t *testing.T) {
	convey.Convey("Given a Bill struct", t, func() {
		convey.Convey("When constructing a bill the way an adapter would", func() {
			introduced := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)
			lastAction := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

			bill := model.Bill{
				ID:       model.TagID(model.SourceFederal, "hr-1234"),
				NativeID: "hr-1234",
				Source:   model.SourceFederal,
				Title:    "Clean Water Infrastructure Act",
				Summary:  "A bill to fund water infrastructure.",
				Sponsor: model.Sponsor{
					ID:      "rep-001",
					Name:    "A. Rivera",
					Party:   "D",
					Chamber: "house",
				},
				Status:       model.StatusCommittee,
				Subjects:     []string{"Environment", "Infrastructure"},
				IntroducedAt: introduced,
				LastActionAt: lastAction,
			}

			convey.Convey("Then it should have the correct values", func() {
				convey.So(bill.ID, convey.ShouldEqual, "federal:hr-1234")
				convey.So(bill.NativeID, convey.ShouldEqual, "hr-1234")
				convey.So(bill.Source, convey.ShouldEqual, model.SourceFederal)
				convey.So(bill.Status, convey.ShouldEqual, model.StatusCommittee)
				convey.So(bill.IntroducedAt, convey.ShouldEqual, introduced)
				convey.So(bill.LastActionAt, convey.ShouldEqual, lastAction)
			})
		})

		convey.Convey("When creating a bill with zero values", func() {
			bill := model.Bill{}

			convey.Convey("Then it should have default values", func() {
				convey.So(bill.ID, convey.ShouldEqual, "")
				convey.So(bill.Source, convey.ShouldEqual, model.SourceID(""))
				convey.So(bill.Subjects, convey.ShouldBeNil)
				convey.So(bill.IntroducedAt, convey.ShouldEqual, time.Time{})
			})
		})
	})
}

func TestMatchesTopic(t *testing.T) {
	convey.Convey("Given a bill with subjects", t, func() {
		bill := model.Bill{
			Subjects: []string{"Environment", "Water Quality", "Public Health"},
		}

		convey.Convey("When matching a contained substring", func() {
			convey.So(bill.MatchesTopic("water"), convey.ShouldBeTrue)
		})

		convey.Convey("When matching with different case", func() {
			convey.So(bill.MatchesTopic("HEALTH"), convey.ShouldBeTrue)
		})

		convey.Convey("When matching an absent topic", func() {
			convey.So(bill.MatchesTopic("agriculture"), convey.ShouldBeFalse)
		})

		convey.Convey("When matching an empty topic", func() {
			convey.So(bill.MatchesTopic(""), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a bill with no subjects", t, func() {
		bill := model.Bill{}

		convey.Convey("When matching any topic", func() {
			convey.So(bill.MatchesTopic("water"), convey.ShouldBeFalse)
		})

		convey.Convey("When matching an empty topic", func() {
			convey.So(bill.MatchesTopic(""), convey.ShouldBeTrue)
		})
	})
}
