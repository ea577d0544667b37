package matches

import (
	"testing"

	"github.com/okian/courtform/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func collection(counts ...int) *model.RecentMatches {
	rm := &model.RecentMatches{}
	for _, n := range counts {
		rm.Tournaments = append(rm.Tournaments, model.Tournament{Matches: make([]model.RawMatch, n)})
	}
	return rm
}

func TestSelectSource(t *testing.T) {
	Convey("Given candidate collections", t, func() {
		Convey("When none are present", func() {
			So(SelectSource(nil), ShouldBeNil)
			So(SelectSource([]*model.RecentMatches{nil, nil}), ShouldBeNil)
		})

		Convey("When one has the most matches", func() {
			a, b, c := collection(1, 1), collection(3, 2), collection(4)
			So(SelectSource([]*model.RecentMatches{a, nil, b, c}), ShouldEqual, b)
		})

		Convey("When counts tie", func() {
			a, b := collection(2), collection(1, 1)
			So(SelectSource([]*model.RecentMatches{a, b}), ShouldEqual, a)
		})

		Convey("When the only present candidate is empty", func() {
			empty := &model.RecentMatches{}
			So(SelectSource([]*model.RecentMatches{nil, empty}), ShouldEqual, empty)
		})
	})
}

func TestInferResult(t *testing.T) {
	Convey("Given set scores", t, func() {
		So(InferResult("6-3 4-6 6-2", ""), ShouldEqual, model.ResultWin)
		So(InferResult("3-6 2-6", ""), ShouldEqual, model.ResultLoss)
		So(InferResult("6-4 4-6", ""), ShouldEqual, "")
		So(InferResult("", ""), ShouldEqual, "")
	})

	Convey("Given only a raw score", t, func() {
		Convey("When a tiebreak follows a 7-6 set", func() {
			sets := ParseSetsRaw("7 6(5) 3 6 6 4")
			So(sets, ShouldResemble, []Set{{7, 6}, {3, 6}, {6, 4}})
			So(InferResult("", "7 6(5) 3 6 6 4"), ShouldEqual, model.ResultWin)
		})

		Convey("When the raw score carries letters", func() {
			So(InferResult("", "4 6 2 6 RET"), ShouldEqual, model.ResultLoss)
		})
	})
}

func TestMarkers(t *testing.T) {
	Convey("Given score markers", t, func() {
		So(IsWalkover("W/O"), ShouldBeTrue)
		So(IsWalkover("w / o"), ShouldBeTrue)
		So(IsWalkover("6-4"), ShouldBeFalse)
		So(IsRetirement("6-1 3-0 ret.", ""), ShouldBeTrue)
		So(IsRetirement("6-1 3-0", "61 30 RET"), ShouldBeTrue)
		So(IsRetirement("6-1 6-0", "Garret"), ShouldBeFalse)
		So(FlipScore("6-3 4-6 7-6(5)"), ShouldEqual, "3-6 6-4 6-7(5)")
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given a player with a mixed match history, newest first", t, func() {
		recent := &model.RecentMatches{Tournaments: []model.Tournament{
			{
				Name: "Roland Garros", Category: "Grand_Slam", SurfaceKey: "CLAY",
				Matches: []model.RawMatch{
					{OpponentName: "C", Score: "3-6 2-6", RoundName: "QF"},
					{OpponentName: "bye"},
					{OpponentName: "B", ScoreRaw: "6 4 6 3", Round: "R16"},
				},
			},
			{
				Matches: []model.RawMatch{
					{OpponentName: "-", Score: "6-0 6-0"},
					{OpponentName: "D", Score: "W/O"},
					{OpponentName: "E", Score: "6-4 4-6", Result: "w"},
					{OpponentName: "F", Score: "6-4 4-6"},
				},
			},
		}}
		p := model.Player{Name: "A", Stats: model.Stats{RecentMatchesBest: recent}}

		events := Normalize(p, model.TourATP, nil)

		Convey("Then placeholders are dropped and order is oldest first", func() {
			So(len(events), ShouldEqual, 5)
			So(events[0].OpponentName, ShouldEqual, "F")
			So(events[4].OpponentName, ShouldEqual, "C")
		})

		Convey("Then defaults and inference are applied", func() {
			f, e, d, b, c := events[0], events[1], events[2], events[3], events[4]
			So(f.Result, ShouldEqual, "")
			So(f.TournamentName, ShouldEqual, DefaultTournament)
			So(f.Category, ShouldEqual, DefaultCategory)
			So(f.Surface, ShouldEqual, DefaultSurface)
			So(f.Round, ShouldEqual, DefaultRound)
			So(e.Result, ShouldEqual, model.ResultWin)
			So(d.Result, ShouldEqual, model.ResultWin)
			So(d.IsWalkover, ShouldBeTrue)
			So(b.Result, ShouldEqual, model.ResultWin)
			So(b.Score, ShouldEqual, "6 4 6 3")
			So(b.Round, ShouldEqual, "R16")
			So(c.Result, ShouldEqual, model.ResultLoss)
			So(c.Category, ShouldEqual, "grand_slam")
			So(c.Surface, ShouldEqual, "CLAY")
			So(c.Round, ShouldEqual, "QF")
		})

		Convey("When a category override names the tournament", func() {
			overridden := Normalize(p, model.TourATP, NewOverrides(map[string]string{"roland-garros": "x", "Roland Garros ": "Masters_1000"}))
			So(overridden[4].Category, ShouldEqual, "masters_1000")
			So(overridden[0].Category, ShouldEqual, DefaultCategory)
		})

		Convey("Then qualifying drops undecided and walkover events", func() {
			q := Qualifying(events, 10)
			So(len(q), ShouldEqual, 3)
			So(q[0].OpponentName, ShouldEqual, "E")
			So(Qualifying(events, 2)[0].OpponentName, ShouldEqual, "B")
			So(Qualifying(events, 0), ShouldBeEmpty)
		})
	})

	Convey("Given a WTA score oriented from the opponent's side", t, func() {
		p := model.Player{Name: "A", Stats: model.Stats{RecentMatches: &model.RecentMatches{Tournaments: []model.Tournament{{
			Matches: []model.RawMatch{{OpponentName: "B", Score: "3-6 2-6", Result: "W"}},
		}}}}}

		Convey("Then the score is flipped to agree with the explicit result", func() {
			ev := Normalize(p, model.TourWTA, nil)
			So(ev[0].Score, ShouldEqual, "6-3 6-2")
			So(ev[0].Result, ShouldEqual, model.ResultWin)
		})

		Convey("Then ATP scores are left alone", func() {
			ev := Normalize(p, model.TourATP, nil)
			So(ev[0].Score, ShouldEqual, "3-6 2-6")
		})
	})

	Convey("Given a player with no stats", t, func() {
		So(Normalize(model.Player{Name: "Z"}, model.TourATP, nil), ShouldBeEmpty)
	})
}
