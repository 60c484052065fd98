package upstream_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/civicrank/internal/adapters/upstream"
	. "github.com/smartystreets/goconvey/convey"
)

func TestClient(t *testing.T) {
	ctx := context.Background()

	Convey("Given an upstream server", t, func() {
		var calls atomic.Int32
		limited := int32(2)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := calls.Add(1)
			switch r.URL.Path {
			case "/limited":
				if n <= limited {
					w.WriteHeader(http.StatusTooManyRequests)
					return
				}
				_, _ = w.Write([]byte(r.URL.Query().Get("api_key")))
			case "/missing":
				w.WriteHeader(http.StatusNotFound)
			case "/broken":
				w.WriteHeader(http.StatusInternalServerError)
			default:
				_, _ = w.Write([]byte("ok"))
			}
		}))
		Reset(srv.Close)

		cfg := upstream.Config{
			BaseURL:    srv.URL + "/",
			MaxRetries: 3,
			Backoff:    time.Millisecond,
			Query:      map[string]string{"api_key": "k"},
		}

		Convey("When the server rate limits a few times", func() {
			c := upstream.NewClient("test", cfg)
			body, err := c.Get(ctx, "/limited", nil)

			Convey("Then the request is retried until it succeeds", func() {
				So(err, ShouldBeNil)
				So(string(body), ShouldEqual, "k")
				So(calls.Load(), ShouldEqual, 3)
			})
		})

		Convey("When retries run out", func() {
			cfg.MaxRetries = 1
			c := upstream.NewClient("test", cfg)
			_, err := c.Get(ctx, "/limited", nil)

			Convey("Then ErrRateLimited is returned", func() {
				So(errors.Is(err, upstream.ErrRateLimited), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 2)
			})
		})

		Convey("When the resource is missing", func() {
			_, err := upstream.NewClient("test", cfg).Get(ctx, "/missing", nil)

			Convey("Then ErrNotFound is returned without retry", func() {
				So(errors.Is(err, upstream.ErrNotFound), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the server fails", func() {
			_, err := upstream.NewClient("test", cfg).Get(ctx, "/broken", nil)

			Convey("Then ErrUpstream is returned without retry", func() {
				So(errors.Is(err, upstream.ErrUpstream), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := upstream.NewClient("test", cfg).Get(cctx, "/", nil)

			Convey("Then no request is made", func() {
				So(errors.Is(err, context.Canceled), ShouldBeTrue)
				So(calls.Load(), ShouldEqual, 0)
			})
		})
	})
}

func TestPacer(t *testing.T) {
	Convey("Given a pacer with a delay", t, func() {
		p := upstream.NewPacer(20 * time.Millisecond)
		ctx := context.Background()

		Convey("Then consecutive waits are spaced by the delay", func() {
			start := time.Now()
			for i := 0; i < 3; i++ {
				So(p.Wait(ctx), ShouldBeNil)
			}
			So(time.Since(start), ShouldBeGreaterThanOrEqualTo, 40*time.Millisecond)
		})

		Convey("Then a cancelled context stops the wait", func() {
			So(p.Wait(ctx), ShouldBeNil)
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			So(p.Wait(cctx), ShouldEqual, context.Canceled)
		})
	})

	Convey("Given a disabled pacer", t, func() {
		p := upstream.NewPacer(0)
		start := time.Now()
		for i := 0; i < 5; i++ {
			So(p.Wait(context.Background()), ShouldBeNil)
		}
		So(time.Since(start), ShouldBeLessThan, 20*time.Millisecond)
	})
}
