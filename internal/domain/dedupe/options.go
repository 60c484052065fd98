package dedupe

// Option applies a configuration option to the InMemoryDeduper.
type Option func(*inMemoryDeduper)

// WithMaxSize bounds the number of identifiers kept; the oldest is evicted
// first. maxSize <= 0 means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithNormalizer replaces the key normalizer. A nil fn keeps identifiers verbatim.
func WithNormalizer(fn func(string) string) Option {
	return func(d *inMemoryDeduper) {
		if fn == nil {
			fn = func(s string) string { return s }
		}
		d.normalize = fn
	}
}
