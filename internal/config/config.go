// Package config defines process configuration structures and loading hooks.
//
// Conventions:
// - Provide New() initializer to build a Config with defaults.
// - Load layers a YAML file and CIVICRANK_* environment variables on top.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"time"
)

// Config contains process configuration shared by the pipeline and the site server.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the site HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DataDir holds pipeline inputs and the JSON files served by the site.
	DataDir string `koanf:"data_dir"`

	// ReportsDir receives diagnostic markdown/JSON reports.
	ReportsDir string `koanf:"reports_dir"`

	// HistoryDB is the sqlite file recording per-run snapshots. Empty disables it.
	HistoryDB string `koanf:"history_db"`

	// MetricsTextfile is where batch commands dump Prometheus metrics. Empty disables it.
	MetricsTextfile string `koanf:"metrics_textfile"`

	// Congress and Session select the legislative period to aggregate.
	Congress int `koanf:"congress"`
	Session  int `koanf:"session"`

	// Upstream endpoints.
	CongressAPIKey     string `koanf:"congress_api_key"`
	CongressBaseURL    string `koanf:"congress_base_url"`
	GovTrackBaseURL    string `koanf:"govtrack_base_url"`
	LegislatorsBaseURL string `koanf:"legislators_base_url"`
	HouseClerkBaseURL  string `koanf:"house_clerk_base_url"`
	SenateBaseURL      string `koanf:"senate_base_url"`

	// RequestDelayMS is the fixed pause between sequential upstream requests.
	RequestDelayMS int `koanf:"request_delay_ms"`

	// HTTPTimeoutMS bounds a single upstream request.
	HTTPTimeoutMS int `koanf:"http_timeout_ms"`

	// MaxRetries and RetryBackoffMS bound the retry loop for rate-limited responses.
	MaxRetries     int `koanf:"max_retries"`
	RetryBackoffMS int `koanf:"retry_backoff_ms"`

	// FetchWorkers sets the fetch batch width. 1 keeps requests strictly sequential.
	FetchWorkers int `koanf:"fetch_workers"`

	// MaxRollCalls caps roll calls fetched per chamber. 0 means no cap.
	MaxRollCalls int `koanf:"max_roll_calls"`

	// MaxLeaderboardLimit caps GET /api/leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// PowerWeights maps power score components to weights.
	PowerWeights map[string]float64 `koanf:"power_weights"`

	// CommitteeRoleWeights maps committee roles to weights.
	CommitteeRoleWeights map[string]float64 `koanf:"committee_role_weights"`

	// MisconductPenalty is subtracted from the power score per misconduct tag.
	MisconductPenalty float64 `koanf:"misconduct_penalty"`

	// NameMatchThreshold is the minimum Jaro-Winkler similarity for fuzzy name matches.
	NameMatchThreshold float64 `koanf:"name_match_threshold"`

	// WatchData reloads site data when files in DataDir change.
	WatchData bool `koanf:"watch_data"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DataDir:             "public/data",
		ReportsDir:          "reports",
		HistoryDB:           "",
		Congress:            119,
		Session:             1,
		CongressBaseURL:     "https://api.congress.gov/v3",
		GovTrackBaseURL:     "https://www.govtrack.us/api/v2",
		LegislatorsBaseURL:  "https://unitedstates.github.io/congress-legislators",
		HouseClerkBaseURL:   "https://clerk.house.gov",
		SenateBaseURL:       "https://www.senate.gov",
		RequestDelayMS:      250,
		HTTPTimeoutMS:       30_000,
		MaxRetries:          3,
		RetryBackoffMS:      2_000,
		FetchWorkers:        1,
		MaxRollCalls:        0,
		MaxLeaderboardLimit: 535,
		PowerWeights: map[string]float64{
			"sponsored":     1.0,
			"cosponsored":   0.25,
			"became_law":    5.0,
			"participation": 0.5,
		},
		CommitteeRoleWeights: map[string]float64{
			"chair":          5,
			"ranking member": 4,
			"vice chair":     3,
			"member":         1,
		},
		MisconductPenalty:  10,
		NameMatchThreshold: 0.92,
		WatchData:          true,
	}
}

// RequestDelay returns RequestDelayMS as a duration.
func (c *Config) RequestDelay() time.Duration {
	return time.Duration(c.RequestDelayMS) * time.Millisecond
}

// HTTPTimeout returns HTTPTimeoutMS as a duration.
func (c *Config) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutMS) * time.Millisecond
}

// RetryBackoff returns RetryBackoffMS as a duration.
func (c *Config) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMS) * time.Millisecond
}
