package cli

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/friendlypipe/pkg/config"
	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/host"
	"github.com/matzehuels/friendlypipe/pkg/observability"
	"github.com/matzehuels/friendlypipe/pkg/pipe"
	"github.com/matzehuels/friendlypipe/pkg/workflow"
)

// session is a loaded workflow whose deferred resyncs have settled.
type session struct {
	wf  *workflow.Workflow
	ext *pipe.Extension
}

func (s *session) root() *graph.Graph { return s.wf.Root }

// loader builds sessions. Every session gets its own registry, extension
// and virtual-clock host, so sessions never share graph state.
type loader struct {
	cfg    *config.Config
	logger *log.Logger
}

func newLoader(cfg *config.Config, logger *log.Logger) *loader {
	if cfg == nil {
		cfg = config.Default()
	}
	return &loader{cfg: cfg, logger: logger}
}

func (c *CLI) loader() *loader { return newLoader(c.Config, c.Logger) }

func (l *loader) pipeOptions(h pipe.Host) pipe.Options {
	return pipe.Options{
		Logger:               l.logger,
		Host:                 h,
		MaxDepth:             l.cfg.MaxDepth,
		MaxSlots:             l.cfg.MaxSlots,
		ContainerSearchDepth: l.cfg.ContainerSearchDepth,
		Retry: pipe.RetryPolicy{
			Attempts: l.cfg.Resync.Attempts,
			Delay:    l.cfg.Resync.Delay.Duration,
		},
	}
}

type decodeFunc func(workflow.Options) (*workflow.Workflow, error)

// load decodes a workflow on a virtual-clock host and settles every
// deferred resync before returning.
func (l *loader) load(source string, decode decodeFunc) (*session, error) {
	h := host.NewDeferred()
	s, err := l.bind(h, source, decode)
	if err != nil {
		return nil, err
	}
	n := h.Drain()
	l.logger.Debug("settled deferred resyncs", "source", source, "callbacks", n, "virtual", h.Now())
	return s, nil
}

// bind decodes a workflow and binds the bundle nodes to h.
func (l *loader) bind(h pipe.Host, source string, decode decodeFunc) (*session, error) {
	ext := pipe.New(l.pipeOptions(h))
	reg := graph.NewRegistry()
	if err := ext.Install(reg); err != nil {
		return nil, apperr.Wrap(apperr.ErrCodeInternal, err, "register bundle nodes")
	}

	wf, err := decode(workflow.Options{Registry: reg, Logger: l.logger})
	if err != nil {
		return nil, apperr.FromLoad(err, source)
	}
	ext.Bind(wf.Root)
	return &session{wf: wf, ext: ext}, nil
}

// openLive loads a workflow file onto a running loop. Resyncs fire in real
// time on the loop, so the graph must only be read through loop.Do.
func (l *loader) openLive(ctx context.Context, loop *host.Loop, path string) (*session, error) {
	var (
		s   *session
		err error
	)
	derr := loop.Do(ctx, func() {
		s, err = l.bind(loop, path, func(opts workflow.Options) (*workflow.Workflow, error) {
			return workflow.ImportJSON(ctx, path, opts)
		})
	})
	if derr != nil {
		return nil, derr
	}
	return s, err
}

// settleTime is how long the resyncs scheduled by a fresh load keep firing.
func (l *loader) settleTime() time.Duration {
	r := l.cfg.Resync
	return time.Duration(r.Attempts+1) * r.Delay.Duration
}

// open loads a workflow file.
func (l *loader) open(ctx context.Context, path string) (*session, error) {
	return l.load(path, func(opts workflow.Options) (*workflow.Workflow, error) {
		return workflow.ImportJSON(ctx, path, opts)
	})
}

// decode loads a workflow already read into memory.
func (l *loader) decode(ctx context.Context, data []byte, source string) (*session, error) {
	return l.load(source, func(opts workflow.Options) (*workflow.Workflow, error) {
		start := time.Now()
		wf, err := workflow.Decode(data, opts)
		count := 0
		if wf != nil {
			wf.Root.Walk(func(*graph.Node) bool { count++; return true })
		}
		observability.Workflow().OnLoad(ctx, source, count, time.Since(start), err)
		return wf, err
	})
}
