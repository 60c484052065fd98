package congressgov_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/adapters/upstream/congressgov"
	. "github.com/smartystreets/goconvey/convey"
)

// serveBills pages bills the way the member endpoints do.
func serveBills(t *testing.T, key string, bills []congressgov.Bill) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api_key") != "secret" || r.URL.Query().Get("format") != "json" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		if limit > 2 {
			limit = 2 // force several pages
		}
		end := offset + limit
		if end > len(bills) {
			end = len(bills)
		}
		next := ""
		if end < len(bills) {
			next = fmt.Sprintf("%s?offset=%d", r.URL.Path, end)
		}
		var page []congressgov.Bill
		if offset < len(bills) {
			page = bills[offset:end]
		}
		body := map[string]any{
			"pagination": map[string]any{"count": len(bills), "next": next},
			key:          page,
		}
		if err := json.NewEncoder(w).Encode(body); err != nil {
			t.Error(err)
		}
	}
}

func bill(congress int, action string) congressgov.Bill {
	return congressgov.Bill{Congress: congress, LatestAction: congressgov.LatestAction{Text: action}}
}

func TestBecameLaw(t *testing.T) {
	Convey("BecameLaw reads the latest action", t, func() {
		So(bill(118, "Became Public Law No: 118-5.").BecameLaw(), ShouldBeTrue)
		So(bill(118, "became private law No: 118-1").BecameLaw(), ShouldBeTrue)
		So(bill(118, "Referred to the Committee on Finance.").BecameLaw(), ShouldBeFalse)
		So(bill(118, "").BecameLaw(), ShouldBeFalse)
	})

	Convey("BecameLaw reads law numbers when the action text does not say so", t, func() {
		var b congressgov.Bill
		raw := `{"congress": 118, "number": "815", "type": "HR",
			"latestAction": {"actionDate": "2024-04-24", "text": "Signed by President."},
			"laws": [{"type": "Public Law", "number": "118-50"}]}`
		So(json.Unmarshal([]byte(raw), &b), ShouldBeNil)
		So(b.Laws, ShouldHaveLength, 1)
		So(b.BecameLaw(), ShouldBeTrue)

		b.Laws = []congressgov.Law{{Type: "Public Law", Number: " "}}
		So(b.BecameLaw(), ShouldBeFalse)
	})
}

func TestLegislation(t *testing.T) {
	ctx := context.Background()
	cfg := upstream.Config{Backoff: time.Millisecond}

	Convey("Given a member with paged legislation", t, func() {
		sponsored := []congressgov.Bill{
			bill(118, "Became Public Law No: 118-31."),
			bill(118, "Referred to committee."),
			bill(117, "Became Public Law No: 117-2."),
			bill(118, "Passed Senate."),
			bill(118, "Became Private Law No: 118-1."),
		}
		cosponsored := []congressgov.Bill{bill(118, "Introduced."), bill(118, "Introduced.")}

		mux := http.NewServeMux()
		mux.HandleFunc("/member/A000001/sponsored-legislation", serveBills(t, "sponsoredLegislation", sponsored))
		mux.HandleFunc("/member/A000001/cosponsored-legislation", serveBills(t, "cosponsoredLegislation", cosponsored))
		srv := httptest.NewServer(mux)
		Reset(srv.Close)
		cfg.BaseURL = srv.URL

		Convey("When every congress counts", func() {
			c := congressgov.New(cfg, "secret")
			s, err := c.SponsoredLegislation(ctx, "A000001")

			Convey("Then all pages are read", func() {
				So(err, ShouldBeNil)
				So(s, ShouldResemble, congressgov.Summary{Count: 5, BecameLaw: 3, Reported: 5})
			})

			Convey("Then cosponsored bills are counted separately", func() {
				cs, err := c.CosponsoredLegislation(ctx, "A000001")
				So(err, ShouldBeNil)
				So(cs.Count, ShouldEqual, 2)
				So(cs.BecameLaw, ShouldEqual, 0)
			})
		})

		Convey("When restricted to one congress", func() {
			c := congressgov.New(cfg, "secret", congressgov.WithCongress(118))
			s, err := c.SponsoredLegislation(ctx, "A000001")

			Convey("Then other congresses are filtered out", func() {
				So(err, ShouldBeNil)
				So(s.Count, ShouldEqual, 4)
				So(s.BecameLaw, ShouldEqual, 2)
				So(s.Reported, ShouldEqual, 5)
			})
		})

		Convey("When the member is unknown", func() {
			_, err := congressgov.New(cfg, "secret").SponsoredLegislation(ctx, "Z999999")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, upstream.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When the id is empty", func() {
			_, err := congressgov.New(cfg, "secret").SponsoredLegislation(ctx, "")
			So(errors.Is(err, upstream.ErrNotFound), ShouldBeTrue)
		})
	})

	Convey("Given a server returning garbage", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("<html>"))
		}))
		Reset(srv.Close)
		cfg.BaseURL = srv.URL

		_, err := congressgov.New(cfg, "").SponsoredLegislation(ctx, "A000001")
		So(errors.Is(err, upstream.ErrDecode), ShouldBeTrue)
	})
}
