package scene

import (
	"slices"

	"github.com/google/uuid"

	bferrors "github.com/blockforge/blockforge/pkg/errors"
	"github.com/blockforge/blockforge/pkg/snap"
	"github.com/blockforge/blockforge/pkg/transform"
)

// Instance is a placed occurrence of a block.
type Instance struct {
	ID           string               `json:"id"`
	BlockID      string               `json:"blockId"`
	BlockVersion int                  `json:"blockVersion"`
	Transform    *transform.Transform `json:"transform"`
	LayerID      string               `json:"layerId"`
	State        InstanceState        `json:"state"`
	Connections  []string             `json:"connections"` // sorted connection ids
}

// InstanceState is the per-instance editing state. HasErrors and Errors
// mirror the instance's invalid connections and are maintained by the
// project.
type InstanceState struct {
	Selected  bool     `json:"selected"`
	Locked    bool     `json:"locked"`
	Visible   bool     `json:"visible"`
	HasErrors bool     `json:"hasErrors"`
	Errors    []string `json:"errors,omitempty"`
}

// Clone returns a deep copy.
func (i *Instance) Clone() *Instance {
	c := *i
	c.Transform = i.Transform.Clone()
	c.State.Errors = slices.Clone(i.State.Errors)
	c.Connections = slices.Clone(i.Connections)
	return &c
}

func (i *Instance) addConnection(id string) {
	if n, found := slices.BinarySearch(i.Connections, id); !found {
		i.Connections = slices.Insert(i.Connections, n, id)
	}
}

func (i *Instance) removeConnection(id string) {
	if n, found := slices.BinarySearch(i.Connections, id); found {
		i.Connections = slices.Delete(i.Connections, n, n+1)
	}
}

// Connection links two snap points. Source is the lower endpoint in
// (instance id, snap-point id) order, so a connection derived from either
// side is the same record.
type Connection struct {
	ID     string        `json:"id"`
	Source snap.Endpoint `json:"source"`
	Target snap.Endpoint `json:"target"`
	Locked bool          `json:"locked"`
	Valid  bool          `json:"valid"`
	Error  string        `json:"error,omitempty"`
}

// Clone returns a copy.
func (c *Connection) Clone() *Connection {
	cp := *c
	return &cp
}

// Involves reports whether the connection touches the instance.
func (c *Connection) Involves(instanceID string) bool {
	return c.Source.InstanceID == instanceID || c.Target.InstanceID == instanceID
}

// Other returns the endpoint on the far side from instanceID.
func (c *Connection) Other(instanceID string) snap.Endpoint {
	if c.Source.InstanceID == instanceID {
		return c.Target
	}
	return c.Source
}

// Near returns the endpoint on instanceID's side.
func (c *Connection) Near(instanceID string) snap.Endpoint {
	if c.Source.InstanceID == instanceID {
		return c.Source
	}
	return c.Target
}

var connectionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://blockforge.dev/ns/connection"))

// ConnectionID derives the id of the connection between two endpoints. The
// id depends only on the unordered pair, so re-deriving a connection after
// undo or redo yields the same id.
func ConnectionID(a, b snap.Endpoint) string {
	if b.Compare(a) < 0 {
		a, b = b, a
	}
	return uuid.NewSHA1(connectionNamespace, []byte(a.String()+"|"+b.String())).String()
}

func newConnection(p snap.Proposal) *Connection {
	src, tgt := p.Source, p.Target
	if tgt.Compare(src) < 0 {
		src, tgt = tgt, src
	}
	c := &Connection{
		ID:     ConnectionID(src, tgt),
		Source: src,
		Target: tgt,
		Valid:  p.Valid,
	}
	if p.Err != nil {
		c.Error = bferrors.UserMessage(p.Err)
	}
	return c
}
