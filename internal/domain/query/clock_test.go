package query

import (
	"sync"
	"time"

	"datagrid/internal/domain/filter"
)

// manualClock fires timers only when advanced.
type manualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock *manualClock
	at    time.Time
	fn    func()
	done  bool
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.done
	t.done = true
	return active
}

// Advance moves time forward, running due timers in order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		var next *manualTimer
		for _, t := range c.timers {
			if !t.done && !t.at.After(target) && (next == nil || t.at.Before(next.at)) {
				next = t
			}
		}
		if next == nil {
			break
		}
		next.done = true
		c.now = next.at
		c.mu.Unlock()
		next.fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// testCatalog maps filterable columns to variants; every listed column is sortable.
type testCatalog map[string]filter.Variant

func (c testCatalog) Variant(columnID string) (filter.Variant, bool) {
	v, ok := c[columnID]
	return v, ok
}

func (c testCatalog) Sortable(columnID string) bool {
	_, ok := c[columnID]
	return ok || columnID == "createdAt"
}

var catalog = testCatalog{
	"name":      filter.VariantText,
	"price":     filter.VariantNumber,
	"tags":      filter.VariantMultiSelect,
	"status":    filter.VariantSelect,
	"active":    filter.VariantBoolean,
	"launchAt":  filter.VariantDate,
	"category":  filter.VariantSelect,
	"createdAt": filter.VariantDateRange,
}
