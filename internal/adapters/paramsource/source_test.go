package paramsource

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/courtform/internal/domain/hyperparams"
	. "github.com/smartystreets/goconvey/convey"
)

var (
	_ hyperparams.Source = (*File)(nil)
	_ hyperparams.Source = (*HTTP)(nil)
)

func TestFile(t *testing.T) {
	Convey("Given a hyperparameter file", t, func() {
		path := filepath.Join(t.TempDir(), "params.yaml")
		So(os.WriteFile(path, []byte("walkover_multiplier: 0.3\n"), 0o600), ShouldBeNil)

		doc, err := NewFile(path).Fetch(context.Background())

		Convey("Then its bytes feed the merge", func() {
			So(err, ShouldBeNil)
			merged, err := hyperparams.Merge(nil, doc)
			So(err, ShouldBeNil)
			So(merged.WalkoverMultiplier, ShouldEqual, 0.3)
		})
	})

	Convey("Given a cancelled context", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := NewFile("whatever").Fetch(ctx)
		So(errors.Is(err, context.Canceled), ShouldBeTrue)
	})
}

func TestHTTP(t *testing.T) {
	Convey("Given a hyperparameter endpoint", t, func() {
		status := http.StatusOK
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"k": {"numerator": 50}}`))
		}))
		defer srv.Close()

		Convey("When it answers 200", func() {
			doc, err := NewHTTP(srv.URL).Fetch(context.Background())
			So(err, ShouldBeNil)
			So(string(doc), ShouldContainSubstring, "numerator")
		})

		Convey("When it answers with an error status", func() {
			status = http.StatusServiceUnavailable
			_, err := NewHTTP(srv.URL, WithClient(srv.Client())).Fetch(context.Background())
			So(errors.Is(err, ErrStatus), ShouldBeTrue)
		})
	})
}
