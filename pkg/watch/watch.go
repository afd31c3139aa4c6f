// Package watch reports debounced changes to a single file.
//
// Editors rarely write a file in place: they write a temp file and rename
// it over the target, which drops an inotify watch on the file itself. The
// watcher therefore watches the parent directory and filters events by
// name, so a renamed-over workflow keeps being reported.
package watch

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period after the last event before a change
// is reported.
const DefaultDebounce = 150 * time.Millisecond

// Options configures a [File] watch.
type Options struct {
	Debounce time.Duration
	Logger   *log.Logger
}

// File calls onChange once per burst of writes, creates or renames of path
// until ctx is cancelled. onChange runs on the watcher goroutine; a slow
// callback delays the next report but never drops it.
func File(ctx context.Context, path string, opts Options, onChange func()) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !relevant(ev.Op) {
				continue
			}
			logger.Debug("file event", "path", ev.Name, "op", ev.Op.String())
			if timer == nil {
				timer = time.NewTimer(opts.Debounce)
				timerC = timer.C
			} else {
				timer.Reset(opts.Debounce)
			}
		case <-timerC:
			timer, timerC = nil, nil
			onChange()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", "err", err)
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}
