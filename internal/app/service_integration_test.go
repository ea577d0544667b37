package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/courtform/internal/adapters/paramsource"
	"github.com/okian/courtform/internal/adapters/roster"
	service "github.com/okian/courtform/internal/app"
	"github.com/okian/courtform/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const rosterDoc = `{
  "ATP": [
    {"name": "A", "rank": 1, "points": "2,000",
     "stats": {"recent_matches": {"tournaments": [
       {"tournament": "Roland Garros", "category": "grand_slam", "matches": [
         {"opponent_name": "B", "score": "6-2 6-3 6-4", "result": "W", "round_name": "F"}
       ]}
     ]}}},
    {"name": "B", "rank": 50, "points": 500}
  ],
  "wta": []
}`

func writeFile(dir, name, body string) string {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		panic(err)
	}
	return path
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service reading files for roster and hyperparameters", t, func() {
		dir := t.TempDir()
		rosterPath := writeFile(dir, "roster.json", rosterDoc)
		paramsPath := writeFile(dir, "params.json", `{"k": {"numerator": 60}}`)

		svc := service.New(
			service.WithRosterProvider(roster.NewFileProvider(rosterPath)),
			service.WithHyperparamSource(paramsource.NewFile(paramsPath)),
			service.WithHyperparamTimeout(time.Second),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the hyperparameter load lands", func() {
			So(waitFor(func() bool { return svc.Hyperparams().K.Numerator == 60 }), ShouldBeTrue)

			Convey("Then ratings are recomputed with the new parameters", func() {
				// Default numerator yields +46.62; a larger numerator moves A further.
				moved := waitFor(func() bool {
					rec, err := svc.GetRating(ctx, "A", model.TourATP)
					return err == nil && rec.Elo > 1046.7
				})
				So(moved, ShouldBeTrue)
			})
		})

		Convey("When the loser is looked up by a different case", func() {
			rec, err := svc.GetRating(ctx, "b", model.TourATP)

			Convey("Then the roster name is returned with its seed", func() {
				So(err, ShouldBeNil)
				So(rec.Name, ShouldEqual, "B")
				So(rec.MatchCount, ShouldEqual, 0)
			})
		})

		Convey("When the empty WTA tour is read", func() {
			top, err := svc.TopN(ctx, model.TourWTA, 10)

			Convey("Then it is published but empty", func() {
				So(err, ShouldBeNil)
				So(top, ShouldBeEmpty)
			})
		})
	})
}

func TestServiceRefresh(t *testing.T) {
	Convey("Given a service refreshing its roster frequently", t, func() {
		dir := t.TempDir()
		rosterPath := writeFile(dir, "roster.json", `{"atp": [{"name": "A"}], "wta": []}`)

		svc := service.New(
			service.WithRosterProvider(roster.NewFileProvider(rosterPath)),
			service.WithRefreshInterval(20*time.Millisecond),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When the roster file changes", func() {
			writeFile(dir, "roster.json", rosterDoc)

			Convey("Then the next refresh picks it up", func() {
				So(waitFor(func() bool {
					rec, err := svc.GetRating(ctx, "A", model.TourATP)
					return err == nil && rec.MatchCount == 1
				}), ShouldBeTrue)
			})
		})
	})
}

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}
