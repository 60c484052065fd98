package clerk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/domain/model"
)

// maxHouseRoll bounds probing; no House session has come close.
const maxHouseRoll = 2048

var rollFileRe = regexp.MustCompile(`(?i)roll0*(\d+)\.xml`)

type houseVote struct {
	Meta struct {
		Session string `xml:"session"`
		Date    string `xml:"action-date"`
	} `xml:"vote-metadata"`
	Records []struct {
		Legislator struct {
			NameID string `xml:"name-id,attr"`
			Name   string `xml:",chardata"`
		} `xml:"legislator"`
		Vote string `xml:"vote"`
	} `xml:"vote-data>recorded-vote"`
}

// HouseVote reads roll call number of the given year. Ballot member ids are bioguide ids.
func (c *Client) HouseVote(ctx context.Context, year, number int) (RollCall, error) {
	body, err := c.house.Get(ctx, houseRollPath(year, number), nil)
	if err != nil {
		return RollCall{}, fmt.Errorf("house roll %d/%d: %w", year, number, err)
	}
	var v houseVote
	if err := decodeXML(body, &v); err != nil {
		return RollCall{}, fmt.Errorf("%w: house roll %d/%d: %v", upstream.ErrDecode, year, number, err)
	}
	rc := RollCall{
		Chamber: model.House,
		Period:  year,
		Session: parseSession(v.Meta.Session),
		Number:  number,
		Date:    strings.TrimSpace(v.Meta.Date),
		Ballots: make([]Ballot, 0, len(v.Records)),
	}
	for _, r := range v.Records {
		rc.Ballots = append(rc.Ballots, Ballot{
			MemberID: strings.TrimSpace(r.Legislator.NameID),
			Name:     strings.TrimSpace(r.Legislator.Name),
			Cast:     ParseCast(r.Vote),
		})
	}
	return rc, nil
}

// HouseLatestRoll returns the highest roll-call number of a year. It scrapes
// the year's index page and falls back to probing roll files when the page
// is unavailable or has no roll links.
func (c *Client) HouseLatestRoll(ctx context.Context, year int) (int, error) {
	n, err := c.scrapeLatestRoll(ctx, year)
	if err == nil && n > 0 {
		return n, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}
	return c.probeLatestRoll(ctx, year)
}

func (c *Client) scrapeLatestRoll(ctx context.Context, year int) (int, error) {
	body, err := c.house.Get(ctx, fmt.Sprintf("/evs/%d/index.asp", year), nil)
	if err != nil {
		return 0, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("%w: house index %d: %v", upstream.ErrDecode, year, err)
	}

	best := 0
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if n := rollFromHref(href); n > best {
			best = n
		}
	})
	return best, nil
}

func rollFromHref(href string) int {
	if m := rollFileRe.FindStringSubmatch(href); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n
	}
	u, err := url.Parse(href)
	if err != nil {
		return 0
	}
	q := u.Query()
	for _, key := range []string{"rollnumber", "rollNumber", "roll"} {
		if v := q.Get(key); v != "" {
			n, _ := strconv.Atoi(v)
			return n
		}
	}
	return 0
}

// probeLatestRoll doubles until a roll file is missing, then binary searches.
func (c *Client) probeLatestRoll(ctx context.Context, year int) (int, error) {
	exists := func(n int) (bool, error) {
		_, err := c.house.Get(ctx, houseRollPath(year, n), nil)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, upstream.ErrNotFound):
			return false, nil
		}
		return false, err
	}

	ok, err := exists(1)
	if err != nil || !ok {
		return 0, err
	}
	lo, hi := 1, 2
	for hi <= maxHouseRoll {
		ok, err := exists(hi)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		lo, hi = hi, hi*2
	}
	if hi > maxHouseRoll {
		hi = maxHouseRoll + 1
	}
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		ok, err := exists(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

func houseRollPath(year, number int) string {
	return fmt.Sprintf("/evs/%d/roll%03d.xml", year, number)
}

// parseSession reads "1st" / "2nd" style session labels.
func parseSession(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}
