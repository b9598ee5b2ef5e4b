package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		Convey("When initialized with defaults", func() {
			So(Init(), ShouldBeNil)
			defer func() { So(Sync(), ShouldBeNil) }()

			Convey("Then Get returns a logger", func() {
				So(Get(), ShouldNotBeNil)
			})
		})

		Convey("When initialized with an unknown format", func() {
			err := Init(WithFormat("xml"))

			Convey("Then an error is returned", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestLoggerOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(Init(WithFormat("json"), WithWriter(&buf)), ShouldBeNil)
		ctx := context.Background()

		Convey("When logging with fields", func() {
			Get().Info(ctx, "game recorded",
				String("session_id", "abc"),
				Int("players", 4),
				Bool("completed", true),
				Duration("took", time.Second),
				Error(errors.New("boom")),
			)

			Convey("Then the fields and caller are present", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"msg":"game recorded"`)
				So(out, ShouldContainSubstring, `"session_id":"abc"`)
				So(out, ShouldContainSubstring, `"players":4`)
				So(out, ShouldContainSubstring, `"completed":true`)
				So(out, ShouldContainSubstring, `"source":"logger_test.go`)
			})
		})

		Convey("When logging through a named child with fields", func() {
			Named("workflow").With(String("owner", "u1")).Warn(ctx, "rejected")

			Convey("Then the name and bound fields are present", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, `"logger":"workflow"`)
				So(out, ShouldContainSubstring, `"owner":"u1"`)
			})
		})

		Convey("When the level is raised above debug", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			Get().Debug(ctx, "hidden")
			Get().Info(ctx, "hidden too")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels are accepted", func() {
			for _, lvl := range []string{"debug", "info", "", "warn", "warning", "error", " INFO "} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("Then unknown levels are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})
	})
}
