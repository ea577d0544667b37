package lookup

import (
	"testing"

	"github.com/okian/courtform/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func rank(n int) *int { return &n }

func TestResolve(t *testing.T) {
	Convey("Given a roster with a single Smith", t, func() {
		roster := []model.Player{
			{Name: "Novak Djoković", Rank: rank(4), Points: 4000},
			{Name: "Adam Smith", Rank: rank(80), Points: 600},
		}
		ix := Build(roster)

		Convey("When resolving an exact name with different accents", func() {
			idx, ok := ix.Resolve("novak djokovic")
			So(ok, ShouldBeTrue)
			So(ix.Entry(idx).Name, ShouldEqual, "Novak Djoković")
		})

		Convey("When resolving an abbreviated name with a different initial", func() {
			idx, ok := ix.Resolve("J. Smith")

			Convey("Then the unique last name resolves it", func() {
				So(ok, ShouldBeTrue)
				So(ix.Entry(idx).Name, ShouldEqual, "Adam Smith")
			})
		})

		Convey("When a second Smith joins the roster", func() {
			ix = Build(append(roster, model.Player{Name: "Bob Smith", Rank: rank(90), Points: 550}))
			_, ok := ix.Resolve("J. Smith")

			Convey("Then the lookup is ambiguous and fails", func() {
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When resolving blank or unknown names", func() {
			_, ok := ix.Resolve("  ")
			So(ok, ShouldBeFalse)
			_, ok = ix.Resolve("Carlos Alcaraz")
			So(ok, ShouldBeFalse)
		})
	})

	Convey("Given two players sharing an initial and last name", t, func() {
		ix := Build([]model.Player{
			{Name: "Jack Draper", Rank: rank(20)},
			{Name: "John Draper"},
			{Name: "Jim Draper", Rank: rank(5)},
		})

		Convey("Then the best-ranked one wins the initial alias", func() {
			idx, ok := ix.Resolve("J. Draper")
			So(ok, ShouldBeTrue)
			So(ix.Entry(idx).Name, ShouldEqual, "Jim Draper")
		})
	})

	Convey("Given duplicate canonical names", t, func() {
		ix := Build([]model.Player{
			{Name: "Alex Example", Points: 100},
			{Name: "alex example", Rank: rank(7), Points: 900},
			{Name: "ALEX EXAMPLE", Rank: rank(9), Points: 800},
			{Name: ""},
		})

		Convey("Then one entry is kept, the better-ranked one", func() {
			So(ix.Len(), ShouldEqual, 1)
			idx, ok := ix.Find("alex example")
			So(ok, ShouldBeTrue)
			So(ix.Entry(idx).RankPoints, ShouldEqual, 900)
			So(ix.Entry(idx).Source, ShouldEqual, 1)
		})
	})
}

func TestLiveRating(t *testing.T) {
	Convey("Given an index", t, func() {
		ix := Build([]model.Player{{Name: "A", Points: 2000}})
		idx, _ := ix.Find("a")

		Convey("When seeding and updating the live rating", func() {
			ix.Seed(idx, 1000, 2000)
			ix.SetElo(idx, 1040.5)

			Convey("Then the entry reflects it", func() {
				So(ix.Entry(idx).Elo, ShouldEqual, 1040.5)
				So(ix.Entry(idx).RankPoints, ShouldEqual, 2000)
			})
		})
	})
}
