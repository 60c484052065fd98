package clerk

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/domain/model"
)

type voteMenu struct {
	Votes []struct {
		Number string `xml:"vote_number"`
		Date   string `xml:"vote_date"`
	} `xml:"votes>vote"`
}

type senateVote struct {
	Date    string `xml:"vote_date"`
	Members []struct {
		Full     string `xml:"member_full"`
		LISID    string `xml:"lis_member_id"`
		VoteCast string `xml:"vote_cast"`
	} `xml:"members>member"`
}

// SenateVoteMenu lists the roll-call numbers of a session in ascending order.
func (c *Client) SenateVoteMenu(ctx context.Context, congress, session int) ([]int, error) {
	path := fmt.Sprintf("/legislative/LIS/roll_call_lists/vote_menu_%d_%d.xml", congress, session)
	body, err := c.senate.Get(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("senate vote menu: %w", err)
	}
	var menu voteMenu
	if err := decodeXML(body, &menu); err != nil {
		return nil, fmt.Errorf("%w: senate vote menu: %v", upstream.ErrDecode, err)
	}
	seen := make(map[int]bool, len(menu.Votes))
	out := make([]int, 0, len(menu.Votes))
	for _, v := range menu.Votes {
		n, err := strconv.Atoi(strings.TrimLeft(strings.TrimSpace(v.Number), "0"))
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	sort.Ints(out)
	return out, nil
}

// SenateVote reads one roll call. Ballot member ids are LIS ids.
func (c *Client) SenateVote(ctx context.Context, congress, session, number int) (RollCall, error) {
	path := fmt.Sprintf("/legislative/LIS/roll_call_votes/vote%d%d/vote_%d_%d_%05d.xml",
		congress, session, congress, session, number)
	body, err := c.senate.Get(ctx, path, nil)
	if err != nil {
		return RollCall{}, fmt.Errorf("senate vote %d: %w", number, err)
	}
	var v senateVote
	if err := decodeXML(body, &v); err != nil {
		return RollCall{}, fmt.Errorf("%w: senate vote %d: %v", upstream.ErrDecode, number, err)
	}
	rc := RollCall{
		Chamber: model.Senate,
		Period:  congress,
		Session: session,
		Number:  number,
		Date:    strings.TrimSpace(v.Date),
		Ballots: make([]Ballot, 0, len(v.Members)),
	}
	for _, m := range v.Members {
		rc.Ballots = append(rc.Ballots, Ballot{
			MemberID: strings.TrimSpace(m.LISID),
			Name:     strings.TrimSpace(m.Full),
			Cast:     ParseCast(m.VoteCast),
		})
	}
	return rc, nil
}

// decodeXML tolerates the non-UTF-8 charsets some feeds declare.
func decodeXML(body []byte, v any) error {
	dec := xml.NewDecoder(bytes.NewReader(body))
	dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	return dec.Decode(v)
}
