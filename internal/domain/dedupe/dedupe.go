// Package dedupe tracks identifiers already seen during one pipeline stage:
// bioguideIds while merging rankings and roll calls while tallying votes.
package dedupe

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
)

// Deduper records seen identifiers.
type Deduper interface {
	// SeenAndRecord reports whether id was already seen and records it if not.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets id, e.g. when the work it guarded failed and may be retried.
	Unrecord(ctx context.Context, id string)

	// Size is the number of identifiers currently held.
	Size() int64

	// Duplicates is the number of SeenAndRecord calls that returned true.
	Duplicates() int64
}

// inMemoryDeduper keeps identifiers in a map; in bounded mode an insertion
// list evicts the oldest identifier once maxSize is reached.
type inMemoryDeduper struct {
	mu         sync.Mutex
	seen       map[string]*list.Element
	order      *list.List
	maxSize    int
	normalize  func(string) string
	size       atomic.Int64
	duplicates atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		normalize: NormalizeID,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// SeenAndRecord implements Deduper.
func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	key := d.normalize(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		d.duplicates.Add(1)
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushBack(key)
	d.size.Add(1)
	return false
}

// Unrecord implements Deduper.
func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	key := d.normalize(id)

	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.seen[key]; ok {
		d.order.Remove(el)
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

// evictOldest must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	front := d.order.Front()
	if front == nil {
		return
	}
	d.order.Remove(front)
	delete(d.seen, front.Value.(string))
	d.size.Add(-1)
}

// Size implements Deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}

// Duplicates implements Deduper.
func (d *inMemoryDeduper) Duplicates() int64 {
	return d.duplicates.Load()
}

// NormalizeID trims and upper-cases an identifier; bioguideIds are upper case
// but hand-edited files are not always.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// RollCallKey identifies a roll call. period is the congress for the Senate
// and the calendar year for the House.
func RollCallKey(chamber string, period, session, number int) string {
	return fmt.Sprintf("%s:%d:%d:%d", chamber, period, session, number)
}
