package repository

import (
	"io/fs"

	"github.com/okian/civicrank/pkg/logger"
)

// FileOption applies a configuration option to the FileStore.
type FileOption func(*FileStore)

// WithFileMode sets the permission bits of written files.
func WithFileMode(mode fs.FileMode) FileOption {
	return func(s *FileStore) {
		if mode != 0 {
			s.fileMode = mode
		}
	}
}

// WithLogger sets the logger used for skipped records.
func WithLogger(l logger.Logger) FileOption {
	return func(s *FileStore) {
		if l != nil {
			s.log = l
		}
	}
}

// HistoryOption applies a configuration option to the HistoryStore.
type HistoryOption func(*historyConfig)

type historyConfig struct {
	busyTimeoutMS int
	mkdirAll      bool
}

// WithBusyTimeout sets PRAGMA busy_timeout in milliseconds.
func WithBusyTimeout(ms int) HistoryOption {
	return func(c *historyConfig) {
		if ms >= 0 {
			c.busyTimeoutMS = ms
		}
	}
}

// WithMkdirAll creates the parent directory of the database file.
func WithMkdirAll() HistoryOption {
	return func(c *historyConfig) { c.mkdirAll = true }
}
