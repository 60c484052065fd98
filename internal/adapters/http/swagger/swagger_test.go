package swagger

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRegister(t *testing.T) {
	Convey("Given a mux with the docs routes", t, func() {
		mux := http.NewServeMux()
		Register(context.Background(), mux)

		do := func(method, target string) *httptest.ResponseRecorder {
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(method, target, http.NoBody))
			return w
		}

		Convey("The OpenAPI document is served as YAML", func() {
			w := do(http.MethodGet, SpecPath)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "application/yaml; charset=utf-8")
			So(w.Body.Len(), ShouldEqual, len(OpenAPI))
		})

		Convey("The docs page renders it with ReDoc", func() {
			w := do(http.MethodGet, DocsPath)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Header().Get("Content-Type"), ShouldEqual, "text/html; charset=utf-8")
			So(w.Body.String(), ShouldContainSubstring, "civicrank API Docs")
			So(w.Body.String(), ShouldContainSubstring, "Redoc.init('/openapi.yaml'")
		})

		Convey("HEAD has no body and other methods are rejected", func() {
			w := do(http.MethodHead, SpecPath)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.Len(), ShouldEqual, 0)

			w = do(http.MethodPost, DocsPath)
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(w.Header().Get("Allow"), ShouldEqual, "GET, HEAD")
		})
	})

	Convey("Given a nil mux", t, func() {
		So(func() { Register(context.Background(), nil) }, ShouldPanic)
	})
}

func TestOpenAPIDocument(t *testing.T) {
	Convey("The document covers every site route", t, func() {
		for _, route := range []string{
			"/api/leaderboard:", "/api/legislators/{bioguideId}:", "/api/compare:",
			"/api/states/{code}:", "/api/streaks:", "/api/reload:",
			"/healthz:", "/stats:", "/metrics:",
		} {
			So(string(OpenAPI), ShouldContainSubstring, route)
		}
	})
}
