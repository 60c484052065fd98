// Package repository persists rankings as flat JSON files, serves them as an
// in-memory leaderboard and keeps a sqlite history of pipeline runs.
package repository

import (
	"context"

	"github.com/okian/civicrank/internal/domain/model"
)

// Ranking provides read access to a chamber leaderboard.
type Ranking interface {
	// Rank returns the leaderboard row for a legislator.
	// Returns ErrNotFound if the bioguideId is unknown.
	Rank(ctx context.Context, bioguideID string) (model.Entry, error)

	// TopN returns the top-N entries ordered by power score desc.
	TopN(ctx context.Context, n int) ([]model.Entry, error)

	// Count returns the number of legislators on the leaderboard.
	Count(ctx context.Context) int
}

// LegislatorStore loads and saves arrays of legislator records by file name.
type LegislatorStore interface {
	LoadLegislators(ctx context.Context, name string) ([]model.Legislator, error)
	SaveLegislators(ctx context.Context, name string, records []model.Legislator) error
}
