// Package nodelink renders editor graphs as node-link diagrams.
//
// # Overview
//
// [ToDOT] turns a [graph.Graph] into Graphviz DOT source: nodes are boxes,
// links are arrows, bundle links are drawn thicker, and every subgraph
// instance becomes a dashed cluster with port nodes for its boundary slots.
// Bundle nodes are tinted by role (producer, consumer, editor) and
// pass-through nodes are drawn as small dashed ellipses.
//
//	dot := nodelink.ToDOT(wf.Root, nodelink.Options{Detailed: true})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//
// For PDF or PNG output:
//
//	pdf, err := nodelink.RenderPDF(ctx, dot)
//	png, err := nodelink.RenderPNG(ctx, dot, 2.0)
//
// # Options
//
//   - Detailed: list every slot (index, label, type) and node property, and
//     label edges with their slot pair and type
//   - Annotate: callback adding caller-specific lines to node labels
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink
