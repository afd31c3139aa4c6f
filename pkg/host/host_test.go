package host

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeferredOrdering(t *testing.T) {
	d := NewDeferred()
	var got []string
	d.Schedule(200*time.Millisecond, func() { got = append(got, "b") })
	d.Schedule(100*time.Millisecond, func() { got = append(got, "a") })
	d.Schedule(200*time.Millisecond, func() { got = append(got, "c") })

	assert.Equal(t, 3, d.Pending())
	assert.Equal(t, 1, d.Advance(150*time.Millisecond))
	assert.Equal(t, []string{"a"}, got)
	assert.Equal(t, 150*time.Millisecond, d.Now())

	assert.Equal(t, 2, d.Advance(50*time.Millisecond))
	assert.Equal(t, []string{"a", "b", "c"}, got)
	assert.Zero(t, d.Pending())
}

func TestDeferredRescheduleWithinWindow(t *testing.T) {
	d := NewDeferred()
	var at []time.Duration
	d.Schedule(100*time.Millisecond, func() {
		at = append(at, d.Now())
		d.Schedule(100*time.Millisecond, func() { at = append(at, d.Now()) })
	})

	assert.Equal(t, 2, d.Advance(time.Second))
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, at)
}

func TestDeferredDrain(t *testing.T) {
	d := NewDeferred()
	n := 0
	for i := 1; i <= 3; i++ {
		d.Schedule(time.Duration(i)*200*time.Millisecond, func() { n++ })
	}
	assert.Equal(t, 3, d.Drain())
	assert.Equal(t, 3, n)
	assert.Equal(t, 600*time.Millisecond, d.Now())
}

func TestDeferredDrainBounded(t *testing.T) {
	d := NewDeferred()
	var loop func()
	loop = func() { d.Schedule(time.Millisecond, loop) }
	d.Schedule(0, loop)
	assert.Equal(t, maxDrainSteps, d.Drain())
}

func TestDeferredRedraws(t *testing.T) {
	d := NewDeferred()
	d.SetDirtyCanvas(true, true)
	d.SetDirtyCanvas(false, false)
	d.SetDirtyCanvas(false, true)
	assert.Equal(t, 2, d.Redraws())
}

func TestLoopRunsScheduledCallbacks(t *testing.T) {
	var dirty atomic.Int32
	l := NewLoop(nil, func(bool, bool) { dirty.Add(1) })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stopped := make(chan error, 1)
	go func() { stopped <- l.Run(ctx) }()

	fired := make(chan struct{})
	l.Schedule(10*time.Millisecond, func() {
		l.SetDirtyCanvas(true, true)
		close(fired)
	})

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduled callback did not run")
	}
	assert.Equal(t, int32(1), dirty.Load())

	ran := false
	require.NoError(t, l.Do(ctx, func() { ran = true }))
	assert.True(t, ran)

	cancel()
	assert.ErrorIs(t, <-stopped, context.Canceled)
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestLoopRecoversPanics(t *testing.T) {
	l := NewLoop(nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = l.Run(ctx) }()

	l.Post(func() { panic("boom") })
	ok := false
	require.NoError(t, l.Do(ctx, func() { ok = true }))
	assert.True(t, ok)
}
