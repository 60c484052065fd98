package pipeline

import (
	"github.com/okian/civicrank/internal/adapters/misconduct"
	"github.com/okian/civicrank/internal/domain/model"
	"github.com/okian/civicrank/internal/report"
)

// LegislationRow is one line of <prefix>-legislation.json.
type LegislationRow struct {
	BioguideID string `json:"bioguideId"`
	model.Legislation
}

// VoteRow is one line of <prefix>-votes.json.
type VoteRow struct {
	BioguideID string `json:"bioguideId"`
	model.Votes
}

// CommitteeRow is one line of <prefix>-committees.json.
type CommitteeRow struct {
	BioguideID string            `json:"bioguideId"`
	Committees []model.Committee `json:"committees"`
}

// MisconductRow is one record of <prefix>-misconduct.json.
type MisconductRow struct {
	BioguideID     string   `json:"bioguideId"`
	MisconductTags []string `json:"misconductTags"`
}

// MisconductFile is the content of <prefix>-misconduct.json.
type MisconductFile struct {
	Records   []MisconductRow    `json:"records"`
	Fuzzy     []misconduct.Match `json:"fuzzy"`
	Unmatched []report.Unmatched `json:"unmatched"`
}
