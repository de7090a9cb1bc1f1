package editor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDebouncerRunsOnlyLastTrigger(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, time.Second, nil)

	var got []int
	for i := 1; i <= 5; i++ {
		v := i
		d.Trigger(KindUpdateItem, func() { got = append(got, v) })
		clock.Advance(300 * time.Millisecond)
	}
	assert.Empty(t, got, "window restarts on every trigger")

	clock.Advance(time.Second)
	assert.Equal(t, []int{5}, got)
	assert.False(t, d.Pending(KindUpdateItem))
}

func TestDebouncerKeysAreIndependent(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, time.Second, nil)

	var got []Kind
	d.Trigger(KindUpdateItem, func() { got = append(got, KindUpdateItem) })
	d.Trigger(KindUpdateSection, func() { got = append(got, KindUpdateSection) })
	clock.Advance(time.Second)

	assert.ElementsMatch(t, []Kind{KindUpdateItem, KindUpdateSection}, got)
}

func TestDebouncerFlushRunsImmediatelyOnce(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, time.Second, nil)

	calls := 0
	d.Trigger(KindUpdateItem, func() { calls++ })

	assert.True(t, d.Flush(KindUpdateItem))
	assert.False(t, d.Flush(KindUpdateItem))
	clock.Advance(2 * time.Second)
	assert.Equal(t, 1, calls)
}

func TestDebouncerCancelDropsPending(t *testing.T) {
	clock := newFakeClock()
	d := NewDebouncer(clock, time.Second, nil)

	calls := 0
	d.Trigger(KindUpdateItem, func() { calls++ })
	d.Cancel()
	clock.Advance(2 * time.Second)

	assert.Zero(t, calls)
}

func TestDebouncerExecWrapsTimerCallbacks(t *testing.T) {
	clock := newFakeClock()
	wrapped := 0
	d := NewDebouncer(clock, time.Second, func(f func()) {
		wrapped++
		f()
	})

	calls := 0
	d.Trigger(KindUpdateItem, func() { calls++ })
	clock.Advance(time.Second)

	assert.Equal(t, 1, wrapped)
	assert.Equal(t, 1, calls)
}
