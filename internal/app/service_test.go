package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/courtform/internal/adapters/repository"
	"github.com/okian/courtform/internal/adapters/roster"
	service "github.com/okian/courtform/internal/app"
	"github.com/okian/courtform/internal/domain/hyperparams"
	"github.com/okian/courtform/internal/domain/model"
	"github.com/okian/courtform/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

func intp(n int) *int { return &n }

func rosterWith(ms ...model.RawMatch) []model.Player {
	return []model.Player{
		{
			Name: "Aryna Sabalenka", Rank: intp(1), Points: 2000,
			Stats: model.Stats{RecentMatches: &model.RecentMatches{Tournaments: []model.Tournament{{
				Name: "Australian Open", Category: "grand_slam", Matches: ms,
			}}}},
		},
		{Name: "Iga Świątek", Rank: intp(2), Points: 1800},
		{Name: "Unranked Newcomer"},
	}
}

func final(opponent, score, result string) model.RawMatch {
	return model.RawMatch{OpponentName: opponent, Score: score, Result: result, RoundName: "F"}
}

// flakyRoster fails a tour on demand.
type flakyRoster struct {
	mu    sync.Mutex
	base  roster.Static
	fails map[model.Tour]bool
}

func (f *flakyRoster) Roster(ctx context.Context, tour model.Tour) ([]model.Player, error) {
	f.mu.Lock()
	fail := f.fails[tour]
	f.mu.Unlock()
	if fail {
		return nil, errors.New("upstream unavailable")
	}
	return f.base.Roster(ctx, tour)
}

func (f *flakyRoster) fail(tour model.Tour, on bool) {
	f.mu.Lock()
	f.fails[tour] = on
	f.mu.Unlock()
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it serves default hyperparameters before any load", func() {
			So(svc, ShouldNotBeNil)
			So(svc.Hyperparams(), ShouldResemble, hyperparams.Defaults())
		})

		Convey("Then it refuses to start without a roster", func() {
			So(errors.Is(svc.Start(context.Background()), service.ErrNoRoster), ShouldBeTrue)
		})

		Convey("Then triggers are refused before start", func() {
			So(errors.Is(svc.RequestRecompute(context.Background(), model.ReasonManual), service.ErrNotStarted), ShouldBeTrue)
		})
	})
}

func TestService_StartStop(t *testing.T) {
	Convey("Given a service over a static roster", t, func() {
		svc := service.New(
			service.WithTours(model.TourWTA),
			service.WithRosterProvider(roster.Static{
				model.TourWTA: rosterWith(final("Iga Swiatek", "6-3 6-4", "W")),
			}),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("Then ratings are published as soon as Start returns", func() {
			rec, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourWTA)
			So(err, ShouldBeNil)
			So(rec.MatchCount, ShouldEqual, 1)
			So(rec.Elo, ShouldBeGreaterThan, 1000)

			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["lastPass"], ShouldNotBeEmpty)
		})

		Convey("Then names resolve through normalization", func() {
			rec, err := svc.GetRating(ctx, "iga swiatek", model.TourWTA)
			So(err, ShouldBeNil)
			So(rec.Name, ShouldEqual, "Iga Świątek")
		})

		Convey("Then peer rank counts only players with matches", func() {
			rank, err := svc.GetPeerRank(ctx, "Aryna Sabalenka", model.TourWTA)
			So(err, ShouldBeNil)
			So(rank, ShouldEqual, 1)

			_, err = svc.GetPeerRank(ctx, "Iga Swiatek", model.TourWTA)
			So(errors.Is(err, repository.ErrNotRanked), ShouldBeTrue)

			_, err = svc.GetPeerRank(ctx, "Nobody", model.TourWTA)
			So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
		})

		Convey("Then a tour that is not served is rejected", func() {
			_, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourATP)
			So(errors.Is(err, service.ErrUnknownTour), ShouldBeTrue)
			_, err = svc.TopN(ctx, model.TourATP, 5)
			So(errors.Is(err, service.ErrUnknownTour), ShouldBeTrue)
		})

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it should be marked as stopped and keep serving reads", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				_, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourWTA)
				So(err, ShouldBeNil)
			})

			Convey("Then it can be started again", func() {
				So(svc.Start(ctx), ShouldBeNil)
				So(svc.GetStats()["started"], ShouldEqual, true)
			})
		})
	})
}

func TestService_ComputeRatings(t *testing.T) {
	Convey("Given a service that has not been started", t, func() {
		svc := service.New(service.WithRosterProvider(roster.Static{
			model.TourATP: rosterWith(final("Iga Swiatek", "6-2 6-3 6-4", "W")),
			model.TourWTA: rosterWith(),
		}))
		ctx := context.Background()

		Convey("When computing one tour directly", func() {
			records, err := svc.ComputeRatings(ctx, model.TourATP)

			Convey("Then every named player has a record", func() {
				So(err, ShouldBeNil)
				So(len(records), ShouldEqual, 3)
				So(records["Unranked Newcomer"].Elo, ShouldEqual, 1000)
			})

			Convey("Then the result is published for reads", func() {
				top, err := svc.TopN(ctx, model.TourATP, 10)
				So(err, ShouldBeNil)
				So(len(top), ShouldEqual, 1)
				So(top[0].Name, ShouldEqual, "Aryna Sabalenka")
				So(top[0].Rank, ShouldEqual, 1)
			})

			Convey("Then a second run is identical", func() {
				again, err := svc.ComputeRatings(ctx, model.TourATP)
				So(err, ShouldBeNil)
				So(again, ShouldResemble, records)
			})
		})

		Convey("When reading a tour that was never computed", func() {
			_, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourWTA)

			Convey("Then no snapshot is reported", func() {
				So(errors.Is(err, repository.ErrNoSnapshot), ShouldBeTrue)
			})
		})
	})
}

func TestService_RosterFailure(t *testing.T) {
	Convey("Given a started service whose ATP roster later fails", t, func() {
		src := &flakyRoster{
			base: roster.Static{
				model.TourATP: rosterWith(final("Iga Swiatek", "6-1 6-1", "W")),
				model.TourWTA: rosterWith(final("Iga Swiatek", "1-6 1-6", "L")),
			},
			fails: map[model.Tour]bool{},
		}
		svc := service.New(service.WithRosterProvider(src))
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		before, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourATP)
		So(err, ShouldBeNil)

		src.fail(model.TourATP, true)
		err = svc.Recompute(ctx, model.ReasonManual)

		Convey("Then the failure is reported", func() {
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "atp")
		})

		Convey("Then the previous ATP snapshot is retained", func() {
			after, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourATP)
			So(err, ShouldBeNil)
			So(after, ShouldResemble, before)
		})

		Convey("Then WTA is still refreshed", func() {
			rec, err := svc.GetRating(ctx, "Aryna Sabalenka", model.TourWTA)
			So(err, ShouldBeNil)
			So(rec.Elo, ShouldBeLessThan, 1000)
		})
	})
}

func TestService_RequestRecompute(t *testing.T) {
	Convey("Given a started service with a tiny queue", t, func() {
		svc := service.New(
			service.WithQueueSize(1),
			service.WithRosterProvider(roster.Static{
				model.TourATP: rosterWith(),
				model.TourWTA: rosterWith(),
			}),
		)
		ctx := context.Background()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		Convey("When many triggers arrive at once", func() {
			var busy int
			for i := 0; i < 50; i++ {
				if err := svc.RequestRecompute(ctx, model.ReasonManual); errors.Is(err, service.ErrBusy) {
					busy++
				}
			}

			Convey("Then the excess is rejected as busy", func() {
				So(busy, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When reloading without a hyperparameter source", func() {
			Convey("Then no load is started", func() {
				So(svc.ReloadHyperparams(ctx), ShouldBeFalse)
			})
		})
	})
}
