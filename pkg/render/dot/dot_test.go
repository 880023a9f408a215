package dot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/blockforge/blockforge/pkg/block"
	"github.com/blockforge/blockforge/pkg/config"
	"github.com/blockforge/blockforge/pkg/scene"
	"github.com/blockforge/blockforge/pkg/snap"
	"github.com/blockforge/blockforge/pkg/transform"
)

func newProject(t *testing.T, extra ...*block.Block) *scene.Project {
	t.Helper()
	lib := block.NewCatalogLibrary()
	for _, b := range extra {
		if err := lib.Publish(b); err != nil {
			t.Fatalf("Publish(%s): %v", b.ID, err)
		}
	}
	n := 0
	p, err := scene.New(config.Default(), lib,
		scene.WithLogger(log.New(io.Discard)),
		scene.WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id%02d", n)
		}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func place(t *testing.T, p *scene.Project, blockID string, x float32, layerID string) *scene.Instance {
	t.Helper()
	inst, err := p.PlaceInstance(context.Background(), blockID, transform.At(x, 0, 0), layerID)
	if err != nil {
		t.Fatalf("PlaceInstance(%s): %v", blockID, err)
	}
	return inst
}

func TestToDOT_Basic(t *testing.T) {
	p := newProject(t)
	a := place(t, p, "brick-2x2", 0, "")
	b := place(t, p, "brick-2x2", 16, "")

	dot := ToDOT(p, Options{})

	for _, want := range []string{
		"graph G {",
		`subgraph "cluster_id01"`,
		`label="Default"`,
		fmt.Sprintf("%q [label=\"brick-2x2\"]", a.ID),
		fmt.Sprintf("%q -- %q [color=black]", a.ID, b.ID),
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("ToDOT() missing %q in:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "->") {
		t.Error("ToDOT() should produce undirected edges")
	}
}

func TestToDOT_NestedLayers(t *testing.T) {
	p := newProject(t)
	ctx := context.Background()
	outer, err := p.CreateLayer(ctx, "Walls", "")
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	inner, err := p.CreateLayer(ctx, "North", outer.ID)
	if err != nil {
		t.Fatalf("CreateLayer: %v", err)
	}
	inst := place(t, p, "brick-2x2", 0, inner.ID)

	dot := ToDOT(p, Options{})

	outerAt := strings.Index(dot, `subgraph "cluster_`+outer.ID+`"`)
	innerAt := strings.Index(dot, `subgraph "cluster_`+inner.ID+`"`)
	nodeAt := strings.Index(dot, fmt.Sprintf("%q [", inst.ID))
	if outerAt < 0 || innerAt < outerAt || nodeAt < innerAt {
		t.Errorf("cluster nesting wrong (outer %d, inner %d, node %d):\n%s", outerAt, innerAt, nodeAt, dot)
	}
}

func TestToDOT_InvalidConnection(t *testing.T) {
	w := wall()
	p := newProject(t, w)
	place(t, p, w.ID, 0, "")
	place(t, p, "brick-2x2", 16, "")

	if dot := ToDOT(p, Options{}); strings.Contains(dot, " -- ") {
		t.Errorf("ToDOT() without ShowInvalid drew an invalid edge:\n%s", dot)
	}
	dot := ToDOT(p, Options{ShowInvalid: true})
	if !strings.Contains(dot, "style=dashed, color=red") {
		t.Errorf("ToDOT() invalid edge not dashed red:\n%s", dot)
	}
	if !strings.Contains(dot, "color=red]") {
		t.Errorf("ToDOT() instance with errors not outlined red:\n%s", dot)
	}
}

func TestToDOT_HiddenInstance(t *testing.T) {
	p := newProject(t)
	inst := place(t, p, "brick-2x2", 0, "")
	if err := p.SetInstanceVisible(context.Background(), inst.ID, false); err != nil {
		t.Fatalf("SetInstanceVisible: %v", err)
	}
	if dot := ToDOT(p, Options{}); !strings.Contains(dot, "lightgrey") {
		t.Errorf("hidden instance not greyed out:\n%s", dot)
	}
}

func TestNodeLabel_Detailed(t *testing.T) {
	p := newProject(t)
	inst := place(t, p, "brick-2x2", 16, "")
	w := &writer{p: p, opts: Options{Detailed: true}}

	label := w.nodeLabel(inst)
	b, _ := p.Library().Get("brick-2x2")
	if !strings.HasPrefix(label, b.Name+"\n") {
		t.Errorf("nodeLabel() should start with block name %q: %q", b.Name, label)
	}
	for _, want := range []string{"id: " + inst.ID, "pos: 16, 0, 0"} {
		if !strings.Contains(label, want) {
			t.Errorf("nodeLabel() missing %q: %q", want, label)
		}
	}
}

func TestEdgeAttrs(t *testing.T) {
	src := snap.Endpoint{InstanceID: "a", SnapPointID: "+x"}
	tgt := snap.Endpoint{InstanceID: "b", SnapPointID: "-x"}
	tests := []struct {
		name     string
		conn     scene.Connection
		detailed bool
		want     []string
	}{
		{"plain", scene.Connection{Valid: true}, false, []string{"color=black"}},
		{"locked", scene.Connection{Valid: true, Locked: true}, false, []string{"style=bold", "penwidth=2"}},
		{"invalid", scene.Connection{Error: "category"}, false, []string{"style=dashed", "color=red", `tooltip="category"`}},
		{"detailed", scene.Connection{Valid: true}, true, []string{`label="+x / -x"`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tt.conn
			c.Source, c.Target = src, tgt
			got := strings.Join(edgeAttrs(&c, tt.detailed), ", ")
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("edgeAttrs() = %s, missing %s", got, w)
				}
			}
		})
	}
}

func TestRenderSVG(t *testing.T) {
	p := newProject(t)
	place(t, p, "brick-2x2", 0, "")
	place(t, p, "brick-2x2", 16, "")

	svg, err := RenderSVG(context.Background(), ToDOT(p, Options{Detailed: true}))
	if err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	if !strings.Contains(string(svg), "<svg") {
		t.Errorf("RenderSVG() output is not SVG: %.200s", svg)
	}
}

func TestNormalizeViewBox(t *testing.T) {
	in := []byte(`<svg width="10pt" height="20pt" viewBox="0.00 0.00 100.40 40.00" xmlns="http://www.w3.org/2000/svg"><g/></svg>`)
	got := string(normalizeViewBox(in))
	want := `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100.40 40.00" width="100" height="40"><g/></svg>`
	if got != want {
		t.Errorf("normalizeViewBox() = %s, want %s", got, want)
	}
	if plain := []byte("<svg><g/></svg>"); string(normalizeViewBox(plain)) != string(plain) {
		t.Error("normalizeViewBox() changed an SVG without viewBox")
	}
}

// wall is a 2x2 brick whose +x face only accepts other walls.
func wall() *block.Block {
	b, _ := block.NewCatalogLibrary().Get("brick-2x2")
	w := b.Clone()
	w.ID = "wall-2x2"
	w.Metadata.Category = "wall"
	w.SnapPoints[0].Constraints = &block.Constraints{AllowedCategories: []string{"wall"}}
	return w
}
