package pipeline

import (
	"context"

	"github.com/okian/civicrank/internal/adapters/upstream/clerk"
	"github.com/okian/civicrank/internal/adapters/upstream/congressgov"
	"github.com/okian/civicrank/internal/adapters/upstream/govtrack"
	"github.com/okian/civicrank/internal/adapters/upstream/legislators"
)

// RosterSource provides current legislators and committee rosters.
type RosterSource interface {
	Current(ctx context.Context) ([]legislators.Person, error)
	Committees(ctx context.Context) ([]legislators.Committee, error)
	CommitteeMembership(ctx context.Context) (map[string][]legislators.Member, error)
}

// RoleSource provides current roles with contact details.
type RoleSource interface {
	CurrentRoles(ctx context.Context, roleType string) ([]govtrack.Role, error)
}

// LegislationSource provides per-member bill counts.
type LegislationSource interface {
	SponsoredLegislation(ctx context.Context, bioguideID string) (congressgov.Summary, error)
	CosponsoredLegislation(ctx context.Context, bioguideID string) (congressgov.Summary, error)
}

// VoteSource provides roll calls of both chambers.
type VoteSource interface {
	SenateVoteMenu(ctx context.Context, congress, session int) ([]int, error)
	SenateVote(ctx context.Context, congress, session, number int) (clerk.RollCall, error)
	HouseLatestRoll(ctx context.Context, year int) (int, error)
	HouseVote(ctx context.Context, year, number int) (clerk.RollCall, error)
}
