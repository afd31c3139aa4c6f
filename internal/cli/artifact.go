package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/friendlypipe/pkg/cache"
	apperr "github.com/matzehuels/friendlypipe/pkg/errors"
	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/observability"
	"github.com/matzehuels/friendlypipe/pkg/render/nodelink"
)

// Output formats of the render command and POST /v1/render.
const (
	formatDOT = "dot"
	formatSVG = "svg"
	formatPDF = "pdf"
	formatPNG = "png"
)

var renderFormats = []string{formatDOT, formatSVG, formatPDF, formatPNG}

var contentTypes = map[string]string{
	formatDOT: "text/vnd.graphviz; charset=utf-8",
	formatSVG: "image/svg+xml",
	formatPDF: "application/pdf",
	formatPNG: "image/png",
}

type artifactOpts struct {
	Format   string
	Detailed bool
	Scale    float64
}

// renderer turns workflow documents into diagrams, caching the result by
// document hash and options.
type renderer struct {
	loader *loader
	cache  cache.Cache
	keyer  cache.Keyer
	ttl    time.Duration
	logger *log.Logger
}

// render returns the artifact for data and whether it came from the cache.
func (r *renderer) render(ctx context.Context, data []byte, source string, opts artifactOpts) ([]byte, bool, error) {
	if err := apperr.ValidateFormat(opts.Format, renderFormats...); err != nil {
		return nil, false, err
	}
	key := r.keyer.ArtifactKey(cache.Hash(data), cache.ArtifactKeyOpts{Format: opts.Format, Detailed: opts.Detailed})
	if out, ok, err := r.cache.Get(ctx, key); err != nil {
		r.logger.Warn("cache read failed", "err", err)
	} else if ok {
		r.logger.Debug("artifact cache hit", "source", source, "format", opts.Format)
		return out, true, nil
	}

	s, err := r.loader.decode(ctx, data, source)
	if err != nil {
		return nil, false, err
	}

	start := time.Now()
	dot := nodelink.ToDOT(s.root(), nodelink.Options{Detailed: opts.Detailed, Annotate: annotateBundle})
	out, err := encodeArtifact(ctx, dot, opts)
	observability.Workflow().OnRender(ctx, opts.Format, time.Since(start), err)
	if err != nil {
		return nil, false, apperr.Wrap(apperr.ErrCodeInternal, err, "render %s", opts.Format)
	}

	if err := r.cache.Set(ctx, key, out, r.ttl); err != nil {
		r.logger.Warn("cache write failed", "err", err)
	}
	return out, false, nil
}

func encodeArtifact(ctx context.Context, dot string, opts artifactOpts) ([]byte, error) {
	switch opts.Format {
	case formatDOT:
		return []byte(dot), nil
	case formatSVG:
		return nodelink.RenderSVG(ctx, dot)
	case formatPDF:
		return nodelink.RenderPDF(ctx, dot)
	case formatPNG:
		return nodelink.RenderPNG(ctx, dot, opts.Scale)
	}
	return nil, fmt.Errorf("unknown format %q", opts.Format)
}

// annotateBundle adds the sync state and slot count below the title of
// bundle nodes.
func annotateBundle(n *graph.Node) []string {
	r, ok := reportNode(n)
	if !ok {
		return nil
	}
	line := fmt.Sprintf("%d slot(s)", len(r.Slots))
	if r.State != "" {
		line = r.State + " · " + line
	}
	return []string{line}
}
