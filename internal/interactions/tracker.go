// Package interactions logs reader activity and escalates sustained browsing
// into recommendation rebuilds.
package interactions

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const (
	DefaultViewThreshold = 5
	DefaultViewWindow    = time.Hour
)

type entry struct {
	count       int
	windowStart time.Time
}

// Tracker counts "view" interactions per user inside a rolling window. The
// fifth view within an hour fires one multiple-views-{userId} trigger and
// resets the count. State is process memory only; losing it on restart just
// delays a best-effort trigger.
type Tracker struct {
	threshold int
	window    time.Duration
	trigger   func(reason string)
	now       func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewTracker(trigger func(reason string)) *Tracker {
	return &Tracker{
		threshold: DefaultViewThreshold,
		window:    DefaultViewWindow,
		trigger:   trigger,
		now:       time.Now,
		entries:   make(map[string]*entry),
	}
}

func (t *Tracker) RecordView(userID string) {
	now := t.now()
	fire := false

	t.mu.Lock()
	e, ok := t.entries[userID]
	if !ok {
		e = &entry{windowStart: now}
		t.entries[userID] = e
	}
	if now.Sub(e.windowStart) > t.window {
		e.count = 0
		e.windowStart = now
	}
	e.count++
	if e.count >= t.threshold {
		e.count = 0
		e.windowStart = now
		fire = true
	}
	t.mu.Unlock()

	if fire {
		t.trigger(fmt.Sprintf("multiple-views-%s", userID))
	}
}

// StartJanitor evicts entries untouched for more than twice the window. Runs
// on a ticker instead of inline on every view so a single call never pays for
// the whole table.
func (t *Tracker) StartJanitor(ctx context.Context) {
	go func() {
		tick := time.NewTicker(t.window)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				t.sweep()
			}
		}
	}()
}

func (t *Tracker) sweep() {
	now := t.now()
	t.mu.Lock()
	for key, e := range t.entries {
		if now.Sub(e.windowStart) > 2*t.window {
			delete(t.entries, key)
		}
	}
	t.mu.Unlock()
}
