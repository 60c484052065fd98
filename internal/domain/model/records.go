package model

// Event is a hand-maintained public event (town hall, hearing) tied to a state.
type Event struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	State      string `json:"state"`
	Date       string `json:"date"`
	Location   string `json:"location,omitempty"`
	URL        string `json:"url,omitempty"`
	BioguideID string `json:"bioguideId,omitempty"`
}

// Poll is a published approval or race poll for a state.
type Poll struct {
	ID         string  `json:"id"`
	State      string  `json:"state"`
	Subject    string  `json:"subject"`
	Pollster   string  `json:"pollster,omitempty"`
	Approve    float64 `json:"approve,omitempty"`
	Disapprove float64 `json:"disapprove,omitempty"`
	SampleSize Count   `json:"sampleSize,omitempty"`
	Date       string  `json:"date,omitempty"`
	URL        string  `json:"url,omitempty"`
}

// CalendarEntry is an election or session calendar date.
type CalendarEntry struct {
	Date        string `json:"date"`
	State       string `json:"state,omitempty"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
}

// Entry is a leaderboard row.
type Entry struct {
	Rank       int     `json:"rank"`
	BioguideID string  `json:"bioguideId"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Party      string  `json:"party"`
	Chamber    Chamber `json:"chamber"`
	PowerScore float64 `json:"powerScore"`
	Streak     Count   `json:"streak"`
}

// EntryOf builds a leaderboard row for a record at a given rank.
func EntryOf(rank int, l *Legislator) Entry {
	return Entry{
		Rank:       rank,
		BioguideID: l.BioguideID,
		Name:       l.DisplayName(),
		State:      l.State,
		Party:      l.Party,
		Chamber:    l.Chamber,
		PowerScore: l.PowerScore,
		Streak:     l.Streak,
	}
}

// StreakRow is one line of a <prefix>-streaks.json file.
type StreakRow struct {
	BioguideID string  `json:"bioguideId"`
	Name       string  `json:"name"`
	State      string  `json:"state"`
	Party      string  `json:"party"`
	Streaks    Streaks `json:"streaks"`
	Streak     Count   `json:"streak"`
	PowerScore float64 `json:"powerScore"`
}
