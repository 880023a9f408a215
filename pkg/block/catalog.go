package block

// Stud pitch and brick heights of the standard brick catalog, in millimeters.
const (
	studPitch   = 8
	brickHeight = 9.6
	plateHeight = 3.2
)

type catalogEntry struct {
	id, name, category, subcategory string
	w, d                            int // studs
	h                               float32
	tags                            []string
}

var catalog = []catalogEntry{
	{"brick-1x1", "Brick 1x1", "brick", "standard", 1, 1, brickHeight, []string{"standard", "1x1", "small"}},
	{"brick-1x2", "Brick 1x2", "brick", "standard", 1, 2, brickHeight, []string{"standard", "1x2"}},
	{"brick-2x2", "Brick 2x2", "brick", "standard", 2, 2, brickHeight, []string{"standard", "2x2"}},
	{"brick-2x4", "Brick 2x4", "brick", "standard", 2, 4, brickHeight, []string{"standard", "2x4"}},
	{"brick-4x4", "Brick 4x4", "brick", "standard", 4, 4, brickHeight, []string{"standard", "4x4", "large"}},
	{"brick-1x6", "Brick 1x6", "brick", "long", 1, 6, brickHeight, []string{"long", "1x6"}},
	{"brick-2x6", "Brick 2x6", "brick", "long", 2, 6, brickHeight, []string{"long", "2x6"}},
	{"brick-1x1x2", "Brick 1x1x2", "brick", "tall", 1, 1, 2 * brickHeight, []string{"tall", "1x1"}},
	{"plate-1x1", "Plate 1x1", "plate", "standard", 1, 1, plateHeight, []string{"plate", "1x1"}},
	{"plate-2x4", "Plate 2x4", "plate", "standard", 2, 4, plateHeight, []string{"plate", "2x4"}},
}

// Catalog returns the built-in brick templates. Every block has six face
// snap points (see [FaceSnapPoints]) and is declared in millimeters.
func Catalog() []*Block {
	out := make([]*Block, 0, len(catalog))
	for _, e := range catalog {
		w := float32(e.w * studPitch)
		d := float32(e.d * studPitch)
		out = append(out, &Block{
			ID:      e.id,
			Version: 1,
			Name:    e.name,
			Geometry: Geometry{
				Type:   GeometryBox,
				Width:  w,
				Height: e.h,
				Depth:  d,
				Unit:   UnitMillimeter,
			},
			SnapPoints: FaceSnapPoints(w, e.h, d),
			Metadata:   Metadata{Category: e.category, Subcategory: e.subcategory, Tags: e.tags},
			Physics:    &Physics{Mass: 0.0025 * float32(e.w*e.d), Friction: 0.8, Restitution: 0.1, CollisionShape: "box"},
		})
	}
	return out
}

// NewCatalogLibrary returns a library with the built-in catalog published.
func NewCatalogLibrary() *Library {
	l := NewLibrary()
	for _, b := range Catalog() {
		if err := l.Publish(b); err != nil {
			panic("block: invalid built-in catalog: " + err.Error())
		}
	}
	return l
}
