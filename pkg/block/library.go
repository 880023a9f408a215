package block

import (
	"maps"
	"slices"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
)

// Library is the arena of published blocks. Instances hold block ids, never
// pointers, and resolve them here.
//
// Library is not safe for concurrent use without external synchronization.
type Library struct {
	latest   map[string]*Block
	versions map[string]map[int]*Block
}

// NewLibrary creates an empty library.
func NewLibrary() *Library {
	return &Library{
		latest:   make(map[string]*Block),
		versions: make(map[string]map[int]*Block),
	}
}

// Publish validates b and stores a private copy. Publishing an id again
// requires a higher version; the newest version becomes the one returned by
// Get. Existing versions are never overwritten.
func (l *Library) Publish(b *Block) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if cur, ok := l.latest[b.ID]; ok && b.Version <= cur.Version {
		return bferrors.New(bferrors.ErrCodeInvalidInput,
			"block %q version %d already published (latest %d)", b.ID, b.Version, cur.Version)
	}
	c := b.Clone()
	if l.versions[c.ID] == nil {
		l.versions[c.ID] = make(map[int]*Block)
	}
	l.versions[c.ID][c.Version] = c
	l.latest[c.ID] = c
	return nil
}

// Get returns the latest version of a block. Callers must not modify it.
func (l *Library) Get(id string) (*Block, error) {
	b, ok := l.latest[id]
	if !ok {
		return nil, bferrors.NotFound("block", id)
	}
	return b, nil
}

// Version returns a specific published version of a block.
func (l *Library) Version(id string, version int) (*Block, error) {
	b, ok := l.versions[id][version]
	if !ok {
		return nil, bferrors.New(bferrors.ErrCodeNotFound, "block %q version %d not found", id, version)
	}
	return b, nil
}

// Has reports whether a block id is published.
func (l *Library) Has(id string) bool {
	_, ok := l.latest[id]
	return ok
}

// List returns the latest version of every block, sorted by id.
func (l *Library) List() []*Block {
	out := make([]*Block, 0, len(l.latest))
	for _, id := range slices.Sorted(maps.Keys(l.latest)) {
		out = append(out, l.latest[id])
	}
	return out
}

// Len returns the number of distinct block ids.
func (l *Library) Len() int { return len(l.latest) }

// All returns every published version, sorted by id then version.
func (l *Library) All() []*Block {
	var out []*Block
	for _, id := range slices.Sorted(maps.Keys(l.versions)) {
		for _, v := range slices.Sorted(maps.Keys(l.versions[id])) {
			out = append(out, l.versions[id][v])
		}
	}
	return out
}
