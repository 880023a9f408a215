// Package render converts rendered project views between output formats.
//
// The [dot] subpackage draws a project's connection graph as SVG through
// Graphviz. [ToPDF] and [ToPNG] turn any SVG into PDF or PNG with the
// external rsvg-convert tool (from librsvg).
//
//	svg, err := dot.RenderSVG(ctx, dot.ToDOT(p, dot.Options{}))
//	png, err := render.ToPNG(ctx, svg, 2.0)
//
// [dot]: github.com/blockforge/blockforge/pkg/render/dot
package render
