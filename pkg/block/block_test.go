package block

import (
	"testing"

	"cogentcore.org/core/math32"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

func testBlock(id string) *Block {
	return &Block{
		ID:         id,
		Version:    1,
		Name:       "Test " + id,
		Geometry:   Geometry{Type: GeometryBox, Width: 16, Height: 9.6, Depth: 16, Unit: UnitMillimeter},
		SnapPoints: FaceSnapPoints(16, 9.6, 16),
		Metadata:   Metadata{Category: "brick"},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(b *Block)
		wantErr bool
	}{
		{"valid", func(b *Block) {}, false},
		{"empty id", func(b *Block) { b.ID = "" }, true},
		{"zero width", func(b *Block) { b.Geometry.Width = 0 }, true},
		{"negative depth", func(b *Block) { b.Geometry.Depth = -1 }, true},
		{"unknown unit", func(b *Block) { b.Geometry.Unit = "furlong" }, true},
		{"duplicate snap id", func(b *Block) { b.SnapPoints[1].ID = b.SnapPoints[0].ID }, true},
		{"empty snap id", func(b *Block) { b.SnapPoints[0].ID = "" }, true},
		{"zero normal", func(b *Block) { b.SnapPoints[0].Normal = math32.Vector3{} }, true},
		{"negative max connections", func(b *Block) {
			n := -1
			b.SnapPoints[0].Constraints = &Constraints{MaxConnections: &n}
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBlock("b")
			tt.mutate(b)
			err := b.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !bferrors.Is(err, bferrors.ErrCodeInvalidInput) {
				t.Errorf("code = %v, want %v", bferrors.GetCode(err), bferrors.ErrCodeInvalidInput)
			}
		})
	}
}

func TestLocalBounds(t *testing.T) {
	b := testBlock("b")
	b.Geometry.Origin = math32.Vec3(0, 4.8, 0)

	got := b.LocalBounds()
	want := math32.B3(-8, 0, -8, 8, 9.6, 8)
	if got != want {
		t.Errorf("LocalBounds() = %v, want %v", got, want)
	}
}

func TestLibraryPublishIsolation(t *testing.T) {
	lib := NewLibrary()
	b := testBlock("b")
	if err := lib.Publish(b); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	// mutating the caller's value must not reach the published template
	b.SnapPoints[0].Position = math32.Vec3(99, 99, 99)
	b.Metadata.Category = "changed"

	got, err := lib.Get("b")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.SnapPoints[0].Position.X == 99 {
		t.Error("published snap point changed through caller alias")
	}
	if got.Metadata.Category != "brick" {
		t.Errorf("Category = %q, want brick", got.Metadata.Category)
	}
}

func TestLibraryVersions(t *testing.T) {
	lib := NewLibrary()
	v1 := testBlock("b")
	if err := lib.Publish(v1); err != nil {
		t.Fatalf("Publish v1: %v", err)
	}
	if err := lib.Publish(v1); err == nil {
		t.Error("republishing the same version succeeded, want error")
	}

	v2 := testBlock("b")
	v2.Version = 2
	v2.Geometry.Width = 32
	if err := lib.Publish(v2); err != nil {
		t.Fatalf("Publish v2: %v", err)
	}

	latest, _ := lib.Get("b")
	if latest.Version != 2 {
		t.Errorf("Get().Version = %d, want 2", latest.Version)
	}
	old, err := lib.Version("b", 1)
	if err != nil {
		t.Fatalf("Version(1): %v", err)
	}
	if old.Geometry.Width != 16 {
		t.Errorf("v1 width = %v, want 16", old.Geometry.Width)
	}
	if n := len(lib.All()); n != 2 {
		t.Errorf("len(All()) = %d, want 2", n)
	}
	if _, err := lib.Get("missing"); !bferrors.Is(err, bferrors.ErrCodeNotFound) {
		t.Errorf("Get(missing) error = %v, want NOT_FOUND", err)
	}
}

func TestConstraintsAccepts(t *testing.T) {
	partner := testBlock("brick-2x2")
	partner.Metadata.Category = "plate"

	tests := []struct {
		name         string
		c            *Constraints
		wantType     bool
		wantCategory bool
	}{
		{"nil", nil, true, true},
		{"empty", &Constraints{}, true, true},
		{"type by id", &Constraints{AllowedBlockTypes: []string{"brick-2x2"}}, true, true},
		{"type by geometry", &Constraints{AllowedBlockTypes: []string{"box"}}, true, true},
		{"type excluded", &Constraints{AllowedBlockTypes: []string{"cylinder"}}, false, true},
		{"category excluded", &Constraints{AllowedCategories: []string{"brick"}}, true, false},
		{"category allowed", &Constraints{AllowedCategories: []string{"brick", "plate"}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			typeOK, catOK := tt.c.Accepts(partner)
			if typeOK != tt.wantType || catOK != tt.wantCategory {
				t.Errorf("Accepts() = (%v, %v), want (%v, %v)", typeOK, catOK, tt.wantType, tt.wantCategory)
			}
		})
	}
}

func TestMaxConnectionsOr(t *testing.T) {
	sp := SnapPoint{ID: "a"}
	if got := sp.MaxConnectionsOr(1); got != 1 {
		t.Errorf("MaxConnectionsOr(1) = %d, want 1", got)
	}
	n := 3
	sp.Constraints = &Constraints{MaxConnections: &n}
	if got := sp.MaxConnectionsOr(1); got != 3 {
		t.Errorf("MaxConnectionsOr(1) = %d, want 3", got)
	}
}

func TestCatalog(t *testing.T) {
	lib := NewCatalogLibrary()
	if lib.Len() != len(catalog) {
		t.Errorf("Len() = %d, want %d", lib.Len(), len(catalog))
	}
	b, err := lib.Get("brick-2x2")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Geometry.Width != 16 || b.Geometry.Depth != 16 {
		t.Errorf("brick-2x2 = %vx%v, want 16x16", b.Geometry.Width, b.Geometry.Depth)
	}
	if len(b.SnapPoints) != 6 {
		t.Errorf("snap points = %d, want 6", len(b.SnapPoints))
	}
}

func TestCornerSnapPoints(t *testing.T) {
	pts := CornerSnapPoints(8, 9.6, 8)
	if len(pts) != 8 {
		t.Fatalf("len = %d, want 8", len(pts))
	}
	b := testBlock("corners")
	b.SnapPoints = pts
	if err := b.Validate(); err != nil {
		t.Errorf("Validate() with corner snaps: %v", err)
	}
}

func TestConvert(t *testing.T) {
	tests := []struct {
		v        float32
		from, to Unit
		want     float32
		wantErr  bool
	}{
		{16, UnitMillimeter, UnitMillimeter, 16, false},
		{1, UnitMeter, UnitMillimeter, 1000, false},
		{25.4, UnitMillimeter, UnitInch, 1, false},
		{1, UnitFoot, UnitInch, 12, false},
		{1, "yd", UnitMeter, 0, true},
	}

	for _, tt := range tests {
		got, err := Convert(tt.v, tt.from, tt.to)
		if (err != nil) != tt.wantErr {
			t.Errorf("Convert(%v, %s, %s) error = %v, wantErr %v", tt.v, tt.from, tt.to, err, tt.wantErr)
			continue
		}
		if math32.Abs(got-tt.want) > 1e-4 {
			t.Errorf("Convert(%v, %s, %s) = %v, want %v", tt.v, tt.from, tt.to, got, tt.want)
		}
	}
}
