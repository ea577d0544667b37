package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/courtform/internal/adapters/paramsource"
	"github.com/okian/courtform/internal/config"
	"github.com/okian/courtform/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func TestMainComponents(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.So(logger.Init(), convey.ShouldBeNil)
		ctx := context.Background()
		cfg := config.New()

		convey.Convey("When no roster is configured", func() {
			_, _, err := newRosterProvider(ctx, cfg)

			convey.Convey("Then startup is refused", func() {
				convey.So(errors.Is(err, errNoRoster), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When choosing a hyperparameter source", func() {
			convey.So(newParamSource(cfg), convey.ShouldBeNil)

			cfg.HyperparamsFile = "params.yaml"
			_, isFile := newParamSource(cfg).(*paramsource.File)
			convey.So(isFile, convey.ShouldBeTrue)

			cfg.HyperparamsURL = "http://params.local/form.json"
			_, isHTTP := newParamSource(cfg).(*paramsource.HTTP)
			convey.So(isHTTP, convey.ShouldBeTrue)
		})

		convey.Convey("When wiring a service over a roster file", func() {
			path := filepath.Join(t.TempDir(), "roster.json")
			convey.So(os.WriteFile(path, []byte(`{"atp": [{"name": "A", "rank": 1}], "wta": []}`), 0o600), convey.ShouldBeNil)
			cfg.RosterFile = path

			provider, closeRoster, err := newRosterProvider(ctx, cfg)
			convey.So(err, convey.ShouldBeNil)
			defer closeRoster()

			svc := newService(cfg, provider, logger.Get())
			convey.So(svc.Start(ctx), convey.ShouldBeNil)
			defer svc.Stop()

			mux := newMux(ctx, svc, cfg)

			convey.Convey("Then every route answers", func() {
				for target, code := range map[string]int{
					"/ratings/atp":   http.StatusOK,
					"/ratings/atp/a": http.StatusOK,
					"/stats":         http.StatusOK,
					"/healthz":       http.StatusOK,
					"/openapi.yaml":  http.StatusOK,
					"/api-docs":      http.StatusOK,
				} {
					w := httptest.NewRecorder()
					mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, http.NoBody))
					convey.So(w.Code, convey.ShouldEqual, code)
				}

				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/recompute", http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusAccepted)
			})
		})
	})
}

func TestSystemMetrics(t *testing.T) {
	convey.Convey("Given the system metrics updater", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		convey.So(updateSystemMetrics, convey.ShouldNotPanic)
	})
}
