package host

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

// ErrStopped is returned by [Loop.Do] once the loop has stopped.
var ErrStopped = errors.New("host loop stopped")

// Loop is a real-time host. Every callback, whether posted directly or fired
// by a timer, runs on the single goroutine executing Run, so graph code
// never sees concurrent mutation.
type Loop struct {
	tasks   chan func()
	done    chan struct{}
	onDirty func(fg, bg bool)
	logger  *log.Logger

	mu     sync.Mutex
	timers map[*time.Timer]struct{}
	once   sync.Once
}

// NewLoop creates a loop. onDirty, when non-nil, is called on the loop
// goroutine for every redraw request.
func NewLoop(logger *log.Logger, onDirty func(fg, bg bool)) *Loop {
	if logger == nil {
		logger = log.Default()
	}
	return &Loop{
		tasks:   make(chan func(), 64),
		done:    make(chan struct{}),
		onDirty: onDirty,
		logger:  logger,
		timers:  make(map[*time.Timer]struct{}),
	}
}

// Run executes posted callbacks until ctx is cancelled, then stops every
// pending timer. It returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			l.run(fn)
		}
	}
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("host callback panicked", "panic", r)
		}
	}()
	fn()
}

func (l *Loop) stop() {
	l.once.Do(func() {
		close(l.done)
		l.mu.Lock()
		for t := range l.timers {
			t.Stop()
		}
		clear(l.timers)
		l.mu.Unlock()
	})
}

// Post queues fn to run on the loop goroutine. It drops fn once the loop
// has stopped.
func (l *Loop) Post(fn func()) {
	select {
	case l.tasks <- fn:
	case <-l.done:
	}
}

// Do runs fn on the loop goroutine and waits for it to finish. It must not
// be called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case l.tasks <- func() { defer close(finished); fn() }:
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Schedule posts fn to the loop after delay.
func (l *Loop) Schedule(delay time.Duration, fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.done:
		return
	default:
	}
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		l.mu.Lock()
		delete(l.timers, t)
		l.mu.Unlock()
		l.Post(fn)
	})
	l.timers[t] = struct{}{}
}

// SetDirtyCanvas forwards a redraw request to the onDirty callback.
func (l *Loop) SetDirtyCanvas(fg, bg bool) {
	if l.onDirty != nil && (fg || bg) {
		l.onDirty(fg, bg)
	}
}
