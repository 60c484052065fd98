package service

import (
	"time"

	"github.com/okian/civicrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataDir sets the directory the rankings and site datasets are read from.
func WithDataDir(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.dataDir = dir
		}
	}
}

// WithMaxLimit caps the number of leaderboard entries returned by TopN.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithWatch enables reloading when JSON files in the data directory change.
func WithWatch(enabled bool) Option {
	return func(s *Service) {
		s.watch = enabled
	}
}

// WithDebounce sets how long the watcher waits for writes to settle.
func WithDebounce(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.debounce = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
