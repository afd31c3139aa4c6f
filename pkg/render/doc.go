// Package render converts rendered workflow diagrams between formats.
//
// The [ToPDF] and [ToPNG] functions convert any SVG using the external
// rsvg-convert tool (from librsvg). When the tool is missing they return an
// error wrapping [ErrNoConverter].
//
//	dot := nodelink.ToDOT(wf.Root, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(ctx, dot)
//	pdf, err := render.ToPDF(ctx, svg)
//
// Diagrams themselves are produced by the [nodelink] subpackage.
//
// [nodelink]: github.com/matzehuels/friendlypipe/pkg/render/nodelink
package render
