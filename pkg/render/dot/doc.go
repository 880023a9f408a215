// Package dot renders a project's connection graph with Graphviz.
//
// Instances become nodes grouped into one cluster per layer, nested the way
// the layer forest is. Connections become undirected edges: bold when
// locked, dashed red when invalid (with [Options.ShowInvalid]).
//
//	src := dot.ToDOT(project, dot.Options{Detailed: true, ShowInvalid: true})
//	svg, err := dot.RenderSVG(ctx, src)
//
// PDF and PNG go through rsvg-convert, see [render.ToPDF].
package dot
