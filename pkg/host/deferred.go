package host

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// maxDrainSteps bounds Drain so a callback that keeps rescheduling itself
// cannot spin forever.
const maxDrainSteps = 10_000

type task struct {
	at  time.Duration
	seq int
	fn  func()
}

// Deferred is a host with a virtual clock. Scheduled callbacks only run
// when the clock is advanced with Advance or Drain, in due-time order and,
// for equal due times, in scheduling order.
//
// Deferred is safe for concurrent scheduling, but callbacks run on the
// goroutine that advances the clock.
type Deferred struct {
	mu      sync.Mutex
	now     time.Duration
	seq     int
	queue   []task
	redraws int
}

// NewDeferred returns a Deferred host with its clock at zero.
func NewDeferred() *Deferred { return &Deferred{} }

// Schedule queues fn to run once the clock reaches now+delay.
func (d *Deferred) Schedule(delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seq++
	t := task{at: d.now + max(delay, 0), seq: d.seq, fn: fn}
	i, _ := slices.BinarySearchFunc(d.queue, t, compareTasks)
	d.queue = slices.Insert(d.queue, i, t)
}

func compareTasks(a, b task) int {
	if c := cmp.Compare(a.at, b.at); c != 0 {
		return c
	}
	return cmp.Compare(a.seq, b.seq)
}

// SetDirtyCanvas records a redraw request.
func (d *Deferred) SetDirtyCanvas(fg, bg bool) {
	if !fg && !bg {
		return
	}
	d.mu.Lock()
	d.redraws++
	d.mu.Unlock()
}

// Redraws returns the number of redraw requests seen so far.
func (d *Deferred) Redraws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.redraws
}

// Now returns the virtual time elapsed since the host was created.
func (d *Deferred) Now() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.now
}

// Pending returns the number of callbacks waiting to run.
func (d *Deferred) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Advance moves the clock forward by dt, running every callback that becomes
// due, including ones scheduled by earlier callbacks within the window. It
// returns the number of callbacks run.
func (d *Deferred) Advance(dt time.Duration) int {
	d.mu.Lock()
	until := d.now + dt
	d.mu.Unlock()

	ran := 0
	for {
		t, ok := d.popDue(until)
		if !ok {
			break
		}
		t.fn()
		ran++
	}

	d.mu.Lock()
	d.now = max(d.now, until)
	d.mu.Unlock()
	return ran
}

// Drain runs queued callbacks until none remain, moving the clock to each
// callback's due time. It returns the number of callbacks run.
func (d *Deferred) Drain() int {
	ran := 0
	for ; ran < maxDrainSteps; ran++ {
		t, ok := d.popDue(-1)
		if !ok {
			break
		}
		t.fn()
	}
	return ran
}

// popDue removes the earliest task due at or before until and advances the
// clock to it. A negative until accepts any task.
func (d *Deferred) popDue(until time.Duration) (task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.queue) == 0 {
		return task{}, false
	}
	t := d.queue[0]
	if until >= 0 && t.at > until {
		return task{}, false
	}
	d.queue = d.queue[1:]
	d.now = max(d.now, t.at)
	return t, true
}
