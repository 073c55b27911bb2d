package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestManualAdvanceFiresDueTimers(t *testing.T) {
	t.Parallel()

	clock := NewManual(time.Unix(0, 0))
	var fired []string
	clock.AfterFunc(200*time.Millisecond, func() { fired = append(fired, "b") })
	clock.AfterFunc(100*time.Millisecond, func() { fired = append(fired, "a") })

	clock.Advance(150 * time.Millisecond)
	require.Equal(t, []string{"a"}, fired)

	clock.Advance(100 * time.Millisecond)
	require.Equal(t, []string{"a", "b"}, fired)
}

func TestManualStopPreventsFire(t *testing.T) {
	t.Parallel()

	clock := NewManual(time.Unix(0, 0))
	fired := false
	timer := clock.AfterFunc(100*time.Millisecond, func() { fired = true })

	require.True(t, timer.Stop())
	require.False(t, timer.Stop())

	clock.Advance(time.Second)
	require.False(t, fired)
}

func TestManualCallbackMaySchedule(t *testing.T) {
	t.Parallel()

	clock := NewManual(time.Unix(0, 0))
	var fired []string
	clock.AfterFunc(100*time.Millisecond, func() {
		fired = append(fired, "outer")
		clock.AfterFunc(50*time.Millisecond, func() { fired = append(fired, "inner") })
	})

	clock.Advance(200 * time.Millisecond)
	require.Equal(t, []string{"outer", "inner"}, fired)
}

func TestManualNowAdvances(t *testing.T) {
	t.Parallel()

	start := time.Unix(100, 0)
	clock := NewManual(start)
	clock.Advance(30 * time.Second)
	require.Equal(t, start.Add(30*time.Second), clock.Now())
}
