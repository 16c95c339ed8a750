package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncer_RunsLastCallAfterQuietPeriod(t *testing.T) {
	clock := newManualClock()
	d := NewDebouncer(clock, 300*time.Millisecond)

	var got []string
	for _, s := range []string{"a", "b", "c"} {
		d.Trigger(func() { got = append(got, s) })
		clock.Advance(200 * time.Millisecond)
	}
	assert.Empty(t, got)
	assert.True(t, d.Pending())

	clock.Advance(100 * time.Millisecond)
	assert.Equal(t, []string{"c"}, got)
	assert.False(t, d.Pending())
}

func TestDebouncer_FlushAndCancel(t *testing.T) {
	clock := newManualClock()
	d := NewDebouncer(clock, time.Second)

	calls := 0
	d.Trigger(func() { calls++ })
	d.Flush()
	assert.Equal(t, 1, calls)

	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, calls, "flushed call does not run again")

	d.Trigger(func() { calls++ })
	d.Cancel()
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, calls)
}

func TestDebouncer_ZeroDelayRunsInline(t *testing.T) {
	d := NewDebouncer(newManualClock(), 0)
	calls := 0
	d.Trigger(func() { calls++ })
	assert.Equal(t, 1, calls)
}

func TestThrottler_LeadingAndTrailing(t *testing.T) {
	clock := newManualClock()
	th := NewThrottler(clock, time.Second)

	var got []int
	for i := 1; i <= 5; i++ {
		th.Trigger(func() { got = append(got, i) })
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, []int{1}, got, "leading call only")

	clock.Advance(600 * time.Millisecond)
	assert.Equal(t, []int{1, 5}, got, "one trailing call with the latest fn")

	clock.Advance(5 * time.Second)
	th.Trigger(func() { got = append(got, 6) })
	assert.Equal(t, []int{1, 5, 6}, got, "quiet interval allows a new leading call")
}

func TestThrottler_Flush(t *testing.T) {
	clock := newManualClock()
	th := NewThrottler(clock, time.Second)

	calls := 0
	th.Trigger(func() { calls++ })
	th.Trigger(func() { calls++ })
	assert.True(t, th.Pending())

	th.Flush()
	assert.Equal(t, 2, calls)
	assert.False(t, th.Pending())
}
