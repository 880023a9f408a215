package dot

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/blockforge/blockforge/pkg/layer"
	"github.com/blockforge/blockforge/pkg/render"
	"github.com/blockforge/blockforge/pkg/scene"
)

// Options configures connection-graph rendering.
type Options struct {
	// Detailed adds the block name, position and layer to instance labels
	// and the snap-point pair to connection labels.
	Detailed bool

	// ShowInvalid draws connections that violate a snap constraint as
	// dashed red edges. When false they are left out.
	ShowInvalid bool
}

// ToDOT converts a project to an undirected Graphviz graph. Every layer is a
// cluster nested like the layer forest; instances are nodes and connections
// are edges. Locked connections are drawn bold. Hidden instances are
// greyed out.
func ToDOT(p *scene.Project, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("graph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  compound=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	layers := make(map[string]*layer.Layer)
	var roots []string
	for _, l := range p.Layers() {
		layers[l.ID] = l
		if l.Parent == "" {
			roots = append(roots, l.ID)
		}
	}
	w := &writer{buf: &buf, p: p, layers: layers, opts: opts}
	for _, id := range roots {
		w.cluster(id, 1)
	}

	buf.WriteString("\n")
	for _, c := range p.AllConnections() {
		if !c.Valid && !opts.ShowInvalid {
			continue
		}
		fmt.Fprintf(&buf, "  %q -- %q [%s];\n", c.Source.InstanceID, c.Target.InstanceID, strings.Join(edgeAttrs(c, opts.Detailed), ", "))
	}

	buf.WriteString("}\n")
	return buf.String()
}

type writer struct {
	buf    *bytes.Buffer
	p      *scene.Project
	layers map[string]*layer.Layer
	opts   Options
}

func (w *writer) cluster(id string, depth int) {
	l := w.layers[id]
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w.buf, "%ssubgraph %q {\n", indent, "cluster_"+id)
	fmt.Fprintf(w.buf, "%s  label=%q;\n", indent, l.Name)
	style := "rounded"
	if !l.Visible {
		style += ",dotted"
	}
	if l.Locked {
		style += ",bold"
	}
	fmt.Fprintf(w.buf, "%s  style=%q;\n", indent, style)
	if l.Color != "" {
		fmt.Fprintf(w.buf, "%s  color=%q;\n", indent, l.Color)
	}
	for _, iid := range l.InstanceIDs {
		inst, err := w.p.Instance(iid)
		if err != nil {
			continue
		}
		fmt.Fprintf(w.buf, "%s  %q [%s];\n", indent, inst.ID, strings.Join(w.nodeAttrs(inst), ", "))
	}
	for _, cid := range l.Children {
		w.cluster(cid, depth+1)
	}
	fmt.Fprintf(w.buf, "%s}\n", indent)
}

func (w *writer) nodeAttrs(inst *scene.Instance) []string {
	attrs := []string{fmt.Sprintf("label=%q", w.nodeLabel(inst))}
	if visible, _ := w.p.EffectiveVisible(inst.ID); !visible {
		attrs = append(attrs, "fillcolor=lightgrey", "fontcolor=grey40", "style=\"rounded,filled,dashed\"")
	}
	if inst.State.HasErrors && w.opts.ShowInvalid {
		attrs = append(attrs, "color=red")
	}
	return attrs
}

func (w *writer) nodeLabel(inst *scene.Instance) string {
	if !w.opts.Detailed {
		return inst.BlockID
	}
	parts := []string{inst.BlockID}
	if b, err := w.p.Library().Version(inst.BlockID, inst.BlockVersion); err == nil && b.Name != "" {
		parts[0] = b.Name
	}
	pos := inst.Transform.Position()
	parts = append(parts,
		fmt.Sprintf("id: %s", inst.ID),
		fmt.Sprintf("pos: %g, %g, %g", pos.X, pos.Y, pos.Z),
	)
	for _, e := range inst.State.Errors {
		parts = append(parts, "! "+e)
	}
	return strings.Join(parts, "\n")
}

func edgeAttrs(c *scene.Connection, detailed bool) []string {
	var attrs []string
	if detailed {
		attrs = append(attrs, fmt.Sprintf("label=%q", c.Source.SnapPointID+" / "+c.Target.SnapPointID))
	}
	switch {
	case !c.Valid:
		attrs = append(attrs, "style=dashed", "color=red", fmt.Sprintf("tooltip=%q", c.Error))
	case c.Locked:
		attrs = append(attrs, "style=bold", "penwidth=2")
	}
	if len(attrs) == 0 {
		attrs = append(attrs, "color=black")
	}
	return attrs
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
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

// normalizeViewBox rewrites the root tag so the SVG scales from its origin.
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

// RenderPDF renders a DOT graph as PDF via [render.ToPDF].
func RenderPDF(ctx context.Context, dot string) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(ctx, svg)
}

// RenderPNG renders a DOT graph as PNG via [render.ToPNG].
func RenderPNG(ctx context.Context, dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(ctx, dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(ctx, svg, scale)
}
