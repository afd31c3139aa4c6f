package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/friendlypipe/pkg/graph"
	"github.com/matzehuels/friendlypipe/pkg/render"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed lists every slot in node labels and the slot pair on each
	// edge. When false, nodes show their title only.
	Detailed bool

	// Annotate returns extra label lines for a node, e.g. a bundle node's
	// resolution state. It may be nil.
	Annotate func(n *graph.Node) []string
}

// ToDOT converts an editor graph to Graphviz DOT format. Every container
// node becomes a cluster holding its nested graph; the cluster's input and
// output boundaries are drawn as small port nodes so that links crossing
// the boundary stay visible on both sides.
//
// Node identifiers in the DOT output are node paths ([graph.Node.Path]), so
// nodes of different nesting levels never collide.
func ToDOT(g *graph.Graph, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  edge [fontsize=10];\n")
	buf.WriteString("  ranksep=0.6;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	w := &dotWriter{buf: &buf, opts: opts}
	w.graph(g, "  ")

	buf.WriteString("}\n")
	return buf.String()
}

type dotWriter struct {
	buf  *bytes.Buffer
	opts Options
}

func (w *dotWriter) graph(g *graph.Graph, indent string) {
	for _, n := range g.Nodes() {
		if sub := n.Subgraph(); sub != nil {
			w.cluster(n, sub, indent)
			continue
		}
		label := fmtLabel(n, w.opts)
		fmt.Fprintf(w.buf, "%s%q [%s];\n", indent, n.Path(), strings.Join(fmtAttrs(n, label), ", "))
	}
	for _, l := range g.Links().All() {
		from, ok := w.originID(g, l)
		if !ok {
			continue
		}
		to, ok := w.targetID(g, l)
		if !ok {
			continue
		}
		attrs := []string{}
		if w.opts.Detailed {
			attrs = append(attrs, fmt.Sprintf("label=%q", fmt.Sprintf("%d→%d %s", l.OriginSlot, l.TargetSlot, l.Type)))
		}
		if l.Type == bundleType {
			attrs = append(attrs, "penwidth=2", "color=\"#3b6ea5\"")
		}
		if len(attrs) == 0 {
			fmt.Fprintf(w.buf, "%s%q -> %q;\n", indent, from, to)
			continue
		}
		fmt.Fprintf(w.buf, "%s%q -> %q [%s];\n", indent, from, to, strings.Join(attrs, ", "))
	}
}

// bundleType is the slot type of bundle links, drawn thicker.
const bundleType = "FRIENDLY_PIPE"

func (w *dotWriter) cluster(c *graph.Node, sub *graph.Graph, indent string) {
	fmt.Fprintf(w.buf, "%ssubgraph %q {\n", indent, "cluster_"+c.Path())
	inner := indent + "  "
	fmt.Fprintf(w.buf, "%slabel=%q;\n", inner, title(c))
	fmt.Fprintf(w.buf, "%sstyle=\"rounded,dashed\";\n", inner)
	fmt.Fprintf(w.buf, "%scolor=grey50;\n", inner)

	for i := range max(len(c.Inputs), len(sub.Inputs)) {
		fmt.Fprintf(w.buf, "%s%q [label=%q, shape=cds, fillcolor=\"#eeeeee\", fontsize=10];\n",
			inner, portID(c, "in", i), boundaryName(sub.Inputs, i, c.Input(i)))
	}
	for i := range max(len(c.Outputs), len(sub.Outputs)) {
		out := c.Output(i)
		name := ""
		if i < len(sub.Outputs) {
			name = sub.Outputs[i].Name
		} else if out != nil {
			name = out.DisplayName()
		}
		if name == "" {
			name = "out " + strconv.Itoa(i)
		}
		fmt.Fprintf(w.buf, "%s%q [label=%q, shape=cds, fillcolor=\"#eeeeee\", fontsize=10];\n",
			inner, portID(c, "out", i), name)
	}
	w.graph(sub, inner)
	fmt.Fprintf(w.buf, "%s}\n", indent)
}

func boundaryName(slots []graph.BoundarySlot, i int, in *graph.Input) string {
	if i < len(slots) && slots[i].Name != "" {
		return slots[i].Name
	}
	if in != nil && in.DisplayName() != "" {
		return in.DisplayName()
	}
	return "in " + strconv.Itoa(i)
}

func portID(c *graph.Node, dir string, i int) string {
	return fmt.Sprintf("%s:%s%d", c.Path(), dir, i)
}

// originID returns the DOT id a link starts from: a plain node, the output
// port of a container, or the input port of the enclosing container.
func (w *dotWriter) originID(g *graph.Graph, l *graph.Link) (string, bool) {
	if l.FromBoundary() {
		c := g.Owner()
		if c == nil {
			return "", false
		}
		return portID(c, "in", l.OriginSlot), true
	}
	n, ok := g.Node(l.OriginID)
	if !ok {
		return "", false
	}
	if n.Subgraph() != nil {
		return portID(n, "out", l.OriginSlot), true
	}
	return n.Path(), true
}

func (w *dotWriter) targetID(g *graph.Graph, l *graph.Link) (string, bool) {
	if l.ToBoundary() {
		c := g.Owner()
		if c == nil {
			return "", false
		}
		return portID(c, "out", l.TargetSlot), true
	}
	n, ok := g.Node(l.TargetID)
	if !ok {
		return "", false
	}
	if n.Subgraph() != nil {
		return portID(n, "in", l.TargetSlot), true
	}
	return n.Path(), true
}

func title(n *graph.Node) string {
	if n.Title != "" {
		return n.Title
	}
	return n.Type
}

func fmtLabel(n *graph.Node, opts Options) string {
	lines := []string{title(n)}
	if opts.Detailed {
		for i, in := range n.Inputs {
			lines = append(lines, fmt.Sprintf("in %d %s: %s", i, in.DisplayName(), in.Type))
		}
		for i, out := range n.Outputs {
			lines = append(lines, fmt.Sprintf("out %d %s: %s", i, out.DisplayName(), out.Type))
		}
		for _, k := range slices.Sorted(maps.Keys(n.Properties)) {
			lines = append(lines, fmt.Sprintf("%s: %v", k, n.Properties[k]))
		}
	}
	if opts.Annotate != nil {
		lines = append(lines, opts.Annotate(n)...)
	}
	return strings.Join(lines, "\n")
}

var kindFill = map[graph.Kind]string{
	graph.KindProducer: "\"#d6e6f5\"",
	graph.KindConsumer: "\"#d9f0d3\"",
	graph.KindEditor:   "\"#fbeecb\"",
}

func fmtAttrs(n *graph.Node, label string) []string {
	attrs := []string{fmt.Sprintf("label=%q", label)}
	switch {
	case n.Kind == graph.KindPassThrough:
		attrs = append(attrs, "shape=ellipse", "style=\"filled,dashed\"", "fillcolor=lightgrey", "fontsize=10")
	case n.Kind == graph.KindBoundaryIn, n.Kind == graph.KindBoundaryOut:
		attrs = append(attrs, "shape=cds", "fillcolor=\"#eeeeee\"")
	case n.Kind.IsBundle():
		attrs = append(attrs, "fillcolor="+kindFill[n.Kind], "penwidth=2")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces the root svg tag with one whose viewBox starts
// at the origin and whose width and height match it.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion at the given scale.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
