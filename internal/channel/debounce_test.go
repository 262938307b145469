package channel

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerFiresOnceAfterQuiet(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(40*time.Millisecond, func() { fired.Add(1) })

	d.Reschedule()
	waitFor(t, func() bool { return fired.Load() == 1 })

	time.Sleep(120 * time.Millisecond)
	require.Equal(t, int32(1), fired.Load())
	require.False(t, d.Pending())
}

func TestDebouncerRescheduleReplacesPending(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(60*time.Millisecond, func() { fired.Add(1) })

	d.Reschedule()
	time.Sleep(30 * time.Millisecond)
	d.Reschedule()
	time.Sleep(40 * time.Millisecond)

	// The first schedule was replaced before it could fire.
	require.Equal(t, int32(0), fired.Load())
	waitFor(t, func() bool { return fired.Load() == 1 })
}

func TestDebouncerCancel(t *testing.T) {
	var fired atomic.Int32
	d := NewDebouncer(30*time.Millisecond, func() { fired.Add(1) })

	d.Reschedule()
	d.Cancel()
	require.False(t, d.Pending())

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, int32(0), fired.Load())
}

func TestDebouncerCancelWithoutSchedule(t *testing.T) {
	d := NewDebouncer(time.Second, func() {})
	d.Cancel()
	require.False(t, d.Pending())
}
