package worker

import (
	"github.com/okian/civicrank/pkg/logger"
)

// Option applies a configuration option to the InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithErrorHandler is called with the key and error of every failed job.
// It may be called from several workers at once.
func WithErrorHandler(fn func(key string, err error)) Option {
	return func(w *InMemoryWorker) {
		w.onError = fn
	}
}
