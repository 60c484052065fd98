package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	err := Init()
	if err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := InitWithOptions(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	Convey("Given a JSON logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		So(InitWithOptions(Options{Format: "json", Writer: &buf}), ShouldBeNil)
		defer func() { _ = Init() }()

		Convey("When logging with domain fields", func() {
			Named("pipeline").Info(context.Background(), "stage finished",
				Stage("votes"), Chamber("senate"), Records(100), Error(errors.New("boom")))

			Convey("Then the record carries every field", func() {
				var rec map[string]any
				So(json.Unmarshal(buf.Bytes(), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "stage finished")
				So(rec["logger"], ShouldEqual, "pipeline")
				So(rec["stage"], ShouldEqual, "votes")
				So(rec["chamber"], ShouldEqual, "senate")
				So(rec["records"], ShouldEqual, float64(100))
				So(rec["error"], ShouldEqual, "boom")
				So(rec["caller"], ShouldContainSubstring, "logger_test.go")
			})
		})

		Convey("When the level filters a message", func() {
			So(SetLevelString("warn"), ShouldBeNil)
			defer func() { _ = SetLevelString("info") }()
			Get().Info(context.Background(), "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When With adds fields", func() {
			Get().With(BioguideID("A000001")).Warn(context.Background(), "skipped")

			Convey("Then they appear on every record", func() {
				So(strings.Contains(buf.String(), `"bioguide_id":"A000001"`), ShouldBeTrue)
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(SetLevelString("debug"), ShouldBeNil)
		So(SetLevelString("WARNING"), ShouldBeNil)
		So(SetLevelString(""), ShouldBeNil)
		So(SetLevelString("loud"), ShouldNotBeNil)
	})
}
