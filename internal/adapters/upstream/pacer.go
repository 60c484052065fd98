package upstream

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum gap between consecutive calls to Wait.
type Pacer struct {
	mu    sync.Mutex
	delay time.Duration
	next  time.Time
	now   func() time.Time
}

// NewPacer creates a pacer; delay <= 0 disables pacing.
func NewPacer(delay time.Duration) *Pacer {
	return &Pacer{delay: delay, now: time.Now}
}

// Wait blocks until the next slot or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p == nil || p.delay <= 0 {
		return nil
	}

	p.mu.Lock()
	now := p.now()
	slot := p.next
	if slot.Before(now) {
		slot = now
	}
	p.next = slot.Add(p.delay)
	p.mu.Unlock()

	wait := slot.Sub(now)
	if wait <= 0 {
		return nil
	}
	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
