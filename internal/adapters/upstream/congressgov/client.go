// Package congressgov reads sponsored and cosponsored legislation counts from
// the Congress.gov v3 API.
package congressgov

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/civicrank/internal/adapters/upstream"
)

// Source is the metrics label of this client.
const Source = "congressgov"

const (
	pageSize = 250
	maxPages = 200
)

// Bill is the subset of a legislation item this package reads.
type Bill struct {
	Congress     int          `json:"congress"`
	Number       string       `json:"number"`
	Type         string       `json:"type"`
	Title        string       `json:"title"`
	LatestAction LatestAction `json:"latestAction"`
	Laws         []Law        `json:"laws,omitempty"`
}

// Law is a public or private law number assigned to an enacted bill.
type Law struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

// LatestAction is the most recent action on a bill.
type LatestAction struct {
	ActionDate string `json:"actionDate"`
	Text       string `json:"text"`
}

// BecameLaw reports whether the bill carries a law number or its latest
// action enacted it.
func (b Bill) BecameLaw() bool {
	for _, l := range b.Laws {
		if strings.TrimSpace(l.Number) != "" {
			return true
		}
	}
	t := strings.ToLower(b.LatestAction.Text)
	return strings.Contains(t, "became public law") || strings.Contains(t, "became private law")
}

type page struct {
	Pagination struct {
		Count int    `json:"count"`
		Next  string `json:"next"`
	} `json:"pagination"`
	Sponsored   []Bill `json:"sponsoredLegislation"`
	Cosponsored []Bill `json:"cosponsoredLegislation"`
}

// Summary counts a member's legislation.
type Summary struct {
	Count     int `json:"count"`
	BecameLaw int `json:"becameLaw"`
	// Reported is the upstream total before any congress filter.
	Reported int `json:"reported"`
}

// Option configures the Client.
type Option func(*Client)

// WithCongress restricts counts to bills of one congress; 0 counts all.
func WithCongress(congress int) Option {
	return func(c *Client) {
		if congress >= 0 {
			c.congress = congress
		}
	}
}

// Client reads member legislation.
type Client struct {
	api      *upstream.Client
	congress int
}

// New creates a client. The API key travels as the api_key query parameter.
func New(cfg upstream.Config, apiKey string, opts ...Option) *Client {
	q := map[string]string{"format": "json"}
	for k, v := range cfg.Query {
		q[k] = v
	}
	if apiKey != "" {
		q["api_key"] = apiKey
	}
	cfg.Query = q

	c := &Client{api: upstream.NewClient(Source, cfg)}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SponsoredLegislation counts bills the member sponsored.
func (c *Client) SponsoredLegislation(ctx context.Context, bioguideID string) (Summary, error) {
	return c.count(ctx, bioguideID, "sponsored-legislation", func(p *page) []Bill { return p.Sponsored })
}

// CosponsoredLegislation counts bills the member cosponsored.
func (c *Client) CosponsoredLegislation(ctx context.Context, bioguideID string) (Summary, error) {
	return c.count(ctx, bioguideID, "cosponsored-legislation", func(p *page) []Bill { return p.Cosponsored })
}

func (c *Client) count(ctx context.Context, bioguideID, kind string, items func(*page) []Bill) (Summary, error) {
	if bioguideID == "" {
		return Summary{}, fmt.Errorf("%w: empty bioguideId", upstream.ErrNotFound)
	}
	path := "/member/" + bioguideID + "/" + kind

	var sum Summary
	offset := 0
	for i := 0; i < maxPages; i++ {
		body, err := c.api.Get(ctx, path, map[string]string{
			"limit":  strconv.Itoa(pageSize),
			"offset": strconv.Itoa(offset),
		})
		if err != nil {
			return Summary{}, fmt.Errorf("%s %s: %w", kind, bioguideID, err)
		}

		var p page
		if err := json.Unmarshal(body, &p); err != nil {
			return Summary{}, fmt.Errorf("%w: %s %s: %v", upstream.ErrDecode, kind, bioguideID, err)
		}
		bills := items(&p)
		sum.Reported = p.Pagination.Count

		for _, b := range bills {
			if c.congress > 0 && b.Congress != c.congress {
				continue
			}
			sum.Count++
			if b.BecameLaw() {
				sum.BecameLaw++
			}
		}

		offset += len(bills)
		if len(bills) == 0 || offset >= p.Pagination.Count || p.Pagination.Next == "" {
			break
		}
	}
	return sum, nil
}
