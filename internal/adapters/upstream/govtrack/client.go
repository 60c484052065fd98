// Package govtrack reads current congressional roles from the GovTrack v2 API.
package govtrack

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/domain/model"
)

// Source is the metrics label of this client.
const Source = "govtrack"

// Role types accepted by CurrentRoles.
const (
	RoleSenator        = "senator"
	RoleRepresentative = "representative"
)

const pageSize = 600

// Role is one current term with the profile fields the rankings carry.
type Role struct {
	BioguideID      string `json:"bioguideId"`
	GovTrackID      int    `json:"govtrackId"`
	Name            string `json:"name"`
	Party           string `json:"party"`
	State           string `json:"state"`
	District        *int   `json:"district,omitempty"`
	Website         string `json:"website"`
	Phone           string `json:"phone"`
	LeadershipTitle string `json:"leadershipTitle"`
	RoleType        string `json:"roleType"`
}

type rolesPage struct {
	Meta struct {
		TotalCount int `json:"total_count"`
	} `json:"meta"`
	Objects []struct {
		Person struct {
			ID         int    `json:"id"`
			BioguideID string `json:"bioguideid"`
			Name       string `json:"name"`
			Firstname  string `json:"firstname"`
			Lastname   string `json:"lastname"`
		} `json:"person"`
		Party           string  `json:"party"`
		State           string  `json:"state"`
		District        *int    `json:"district"`
		Website         string  `json:"website"`
		Phone           string  `json:"phone"`
		LeadershipTitle *string `json:"leadership_title"`
		RoleType        string  `json:"role_type"`
	} `json:"objects"`
}

// Client reads GovTrack roles.
type Client struct {
	api *upstream.Client
}

// New creates a client.
func New(cfg upstream.Config) *Client {
	return &Client{api: upstream.NewClient(Source, cfg)}
}

// RoleTypeFor maps a chamber to its GovTrack role type.
func RoleTypeFor(c model.Chamber) string {
	if c == model.Senate {
		return RoleSenator
	}
	return RoleRepresentative
}

// CurrentRoles lists every current role of the given type.
func (c *Client) CurrentRoles(ctx context.Context, roleType string) ([]Role, error) {
	var out []Role
	for offset := 0; ; {
		body, err := c.api.Get(ctx, "/role", map[string]string{
			"current":   "true",
			"role_type": roleType,
			"limit":     strconv.Itoa(pageSize),
			"offset":    strconv.Itoa(offset),
		})
		if err != nil {
			return nil, fmt.Errorf("roles %s: %w", roleType, err)
		}
		var p rolesPage
		if err := json.Unmarshal(body, &p); err != nil {
			return nil, fmt.Errorf("%w: roles %s: %v", upstream.ErrDecode, roleType, err)
		}
		for _, o := range p.Objects {
			r := Role{
				BioguideID: o.Person.BioguideID,
				GovTrackID: o.Person.ID,
				Name:       o.Person.Name,
				Party:      o.Party,
				State:      o.State,
				District:   o.District,
				Website:    o.Website,
				Phone:      o.Phone,
				RoleType:   o.RoleType,
			}
			if o.Person.Firstname != "" || o.Person.Lastname != "" {
				r.Name = o.Person.Firstname + " " + o.Person.Lastname
			}
			if o.LeadershipTitle != nil {
				r.LeadershipTitle = *o.LeadershipTitle
			}
			out = append(out, r)
		}
		offset += len(p.Objects)
		if len(p.Objects) == 0 || offset >= p.Meta.TotalCount {
			break
		}
	}
	return out, nil
}
