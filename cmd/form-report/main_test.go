package main

import (
	"testing"

	"github.com/okian/courtform/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseTours(t *testing.T) {
	convey.Convey("Given tour flags", t, func() {
		got, err := parseTours("WTA, atp,")
		convey.So(err, convey.ShouldBeNil)
		convey.So(got, convey.ShouldResemble, []model.Tour{model.TourWTA, model.TourATP})

		_, err = parseTours("atp,itf")
		convey.So(err, convey.ShouldNotBeNil)
		convey.So(err.Error(), convey.ShouldEqual, "unknown tour: itf")
	})
}
