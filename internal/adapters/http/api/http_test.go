package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/okian/courtform/internal/adapters/http/api"
	"github.com/okian/courtform/internal/adapters/repository"
	service "github.com/okian/courtform/internal/app"
	"github.com/okian/courtform/internal/domain/dedupe"
	"github.com/okian/courtform/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// mockService implements api.Dependencies over a fixed leaderboard.
type mockService struct {
	dedupe.Deduper
	entries    []api.Entry
	records    map[string]model.RatingRecord
	recompute  error
	reloadOK   bool
	triggers   []string
	lastTopN   int
	noSnapshot bool
}

func (m *mockService) TopN(_ context.Context, _ model.Tour, n int) ([]api.Entry, error) {
	if m.noSnapshot {
		return nil, repository.ErrNoSnapshot
	}
	m.lastTopN = n
	return m.entries[:min(n, len(m.entries))], nil
}

func (m *mockService) GetRating(_ context.Context, name string, _ model.Tour) (model.RatingRecord, error) {
	rec, ok := m.records[strings.ToLower(name)]
	if !ok {
		return model.RatingRecord{}, repository.ErrNotFound
	}
	return rec, nil
}

func (m *mockService) GetPeerRank(_ context.Context, name string, _ model.Tour) (int, error) {
	for _, e := range m.entries {
		if e.Name == name {
			return e.Rank, nil
		}
	}
	return 0, repository.ErrNotRanked
}

func (m *mockService) RequestRecompute(_ context.Context, reason string) error {
	if m.recompute != nil {
		return m.recompute
	}
	m.triggers = append(m.triggers, reason)
	return nil
}

func (m *mockService) ReloadHyperparams(context.Context) bool { return m.reloadOK }

type mockStats struct{}

func (mockStats) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newMux(svc *mockService) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(svc, mockStats{}, 50).Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func fixture() *mockService {
	return &mockService{
		Deduper: dedupe.NewInMemoryDeduper(),
		entries: []api.Entry{
			{Rank: 1, Name: "Jannik Sinner", Elo: 1180.5, MatchCount: 10},
			{Rank: 2, Name: "Carlos Alcaraz", Elo: 1150.25, MatchCount: 9},
		},
		records: map[string]model.RatingRecord{
			"jannik sinner": {Name: "Jannik Sinner", Elo: 1180.5, MatchCount: 10},
			"qualifier":     {Name: "Qualifier", Elo: 1000},
		},
	}
}

func TestRatingsRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		svc := fixture()
		mux := newMux(svc)

		Convey("When requesting a leaderboard with a limit", func() {
			w := do(mux, http.MethodGet, "/ratings/ATP?limit=1")

			Convey("Then the top entries are returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got []api.Entry
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(len(got), ShouldEqual, 1)
				So(got[0].Name, ShouldEqual, "Jannik Sinner")
			})
		})

		Convey("When requesting a leaderboard without a limit", func() {
			w := do(mux, http.MethodGet, "/ratings/wta")

			Convey("Then the default limit is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(svc.lastTopN, ShouldEqual, 20)
			})
		})

		Convey("When the limit is invalid or too large", func() {
			for _, q := range []string{"0", "-3", "abc", "51"} {
				w := do(mux, http.MethodGet, "/ratings/atp?limit="+q)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			}
		})

		Convey("When the tour is unknown", func() {
			w := do(mux, http.MethodGet, "/ratings/itf")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(w.Body.String(), ShouldContainSubstring, "unknown_tour")
			})
		})

		Convey("When nothing is published yet", func() {
			svc.noSnapshot = true
			w := do(mux, http.MethodGet, "/ratings/atp")

			Convey("Then the service reports it is not ready", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			})
		})

		Convey("When requesting a ranked player", func() {
			w := do(mux, http.MethodGet, "/ratings/atp/jannik%20sinner")

			Convey("Then the record carries its peer rank", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var got map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &got), ShouldBeNil)
				So(got["name"], ShouldEqual, "Jannik Sinner")
				So(got["peerRank"], ShouldEqual, 1.0)
				So(got["tour"], ShouldEqual, "atp")
			})
		})

		Convey("When requesting a player without matches", func() {
			w := do(mux, http.MethodGet, "/ratings/atp/Qualifier")

			Convey("Then the peer rank is null", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"peerRank":null`)
			})
		})

		Convey("When requesting an unknown player", func() {
			w := do(mux, http.MethodGet, "/ratings/atp/Nobody")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When using the wrong method", func() {
			w := do(mux, http.MethodPost, "/ratings/atp")

			Convey("Then the route is not allowed", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestTriggerRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		svc := fixture()
		mux := newMux(svc)

		Convey("When requesting a recompute", func() {
			w := do(mux, http.MethodPost, "/recompute")

			Convey("Then it is accepted and queued as manual", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(svc.triggers, ShouldResemble, []string{model.ReasonManual})
			})
		})

		Convey("When the same idempotency key is sent twice", func() {
			post := func() *httptest.ResponseRecorder {
				req := httptest.NewRequest(http.MethodPost, "/recompute", http.NoBody)
				req.Header.Set(api.IdempotencyHeader, "nightly-2026-10-19")
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				return w
			}
			first, second := post(), post()

			Convey("Then only the first schedules a pass", func() {
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(second.Code, ShouldEqual, http.StatusOK)
				So(second.Body.String(), ShouldContainSubstring, `"duplicate":true`)
				So(len(svc.triggers), ShouldEqual, 1)
			})
		})

		Convey("When a keyed request hits backpressure", func() {
			svc.recompute = service.ErrBusy
			req := httptest.NewRequest(http.MethodPost, "/recompute", http.NoBody)
			req.Header.Set(api.IdempotencyHeader, "retry-me")
			mux.ServeHTTP(httptest.NewRecorder(), req)

			Convey("Then the key stays usable", func() {
				So(svc.Size(), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			svc.recompute = service.ErrBusy
			w := do(mux, http.MethodPost, "/recompute")

			Convey("Then backpressure is reported", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(w.Body.String(), ShouldContainSubstring, "backpressure")
			})
		})

		Convey("When the service is stopped", func() {
			svc.recompute = service.ErrNotStarted
			So(do(mux, http.MethodPost, "/recompute").Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the recompute fails unexpectedly", func() {
			svc.recompute = errors.New("boom")
			So(do(mux, http.MethodPost, "/recompute").Code, ShouldEqual, http.StatusInternalServerError)
		})

		Convey("When reloading hyperparameters", func() {
			svc.reloadOK = true
			w := do(mux, http.MethodPost, "/hyperparams/reload")

			Convey("Then the response says whether a load started", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When GETting a write route", func() {
			So(do(mux, http.MethodGet, "/recompute").Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestStatsAndHealth(t *testing.T) {
	Convey("Given an API server", t, func() {
		mux := newMux(fixture())

		Convey("When requesting stats", func() {
			w := do(mux, http.MethodGet, "/stats")

			Convey("Then the provider output is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"started":true`)
			})
		})

		Convey("When posting to stats", func() {
			So(do(mux, http.MethodPost, "/stats").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When requesting health", func() {
			do(mux, http.MethodGet, "/ratings/atp")
			w := do(mux, http.MethodGet, "/healthz")

			Convey("Then Prometheus metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "courtform_engine_http_requests_total")
			})
		})
	})
}

func TestMetricsMiddleware(t *testing.T) {
	Convey("Given a wrapped handler that fails", t, func() {
		h := api.MetricsMiddleware(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}, "test")

		w := httptest.NewRecorder()
		h(w, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

		Convey("Then the status passes through", func() {
			So(w.Code, ShouldEqual, http.StatusTooManyRequests)
		})
	})
}
