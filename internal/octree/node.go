package octree

// NodeID addresses a node in a tree's arena. The root is always 0.
type NodeID int32

const RootID NodeID = 0

// Node is one cubic region of the tree. Children are 8 contiguous arena
// slots starting at first; first == 0 means the node is a leaf (the root
// can never be a child).
type Node struct {
	Anchor   Coord
	Level    int
	Active   bool
	Material Material

	first NodeID
}

func (n *Node) HasChildren() bool { return n.first != 0 }

// IsUniformWith reports whether two regions could be drawn without a face
// between them.
func (n *Node) IsUniformWith(o *Node) bool {
	return n.Material.Color == o.Material.Color &&
		n.Material.Fluid == o.Material.Fluid &&
		n.Material.Noise == o.Material.Noise
}

func (t *Tree) node(id NodeID) *Node { return &t.nodes[id] }

func (t *Tree) resolution(level int) int { return Resolution(t.levels, level) }

func (t *Tree) contains(n *Node, c Coord) bool {
	r := t.resolution(n.Level)
	return c.X >= n.Anchor.X && c.X < n.Anchor.X+r &&
		c.Y >= n.Anchor.Y && c.Y < n.Anchor.Y+r &&
		c.Z >= n.Anchor.Z && c.Z < n.Anchor.Z+r
}

// find resolves (c, level) starting at id. Only the octant containing c is
// visited at each level, so a lookup costs at most levels steps.
func (t *Tree) find(id NodeID, c Coord, level int) (NodeID, bool) {
	for {
		n := t.node(id)
		if n.Level == level {
			return id, n.Anchor == c
		}
		if !n.HasChildren() || !t.contains(n, c) {
			return 0, false
		}
		half := t.resolution(n.Level + 1)
		oct := 0
		if c.X >= n.Anchor.X+half {
			oct |= 1
		}
		if c.Y >= n.Anchor.Y+half {
			oct |= 2
		}
		if c.Z >= n.Anchor.Z+half {
			oct |= 4
		}
		id = n.first + NodeID(oct)
	}
}

// subdivide creates the 8 children of id. Calling it again is a no-op.
func (t *Tree) subdivide(id NodeID) {
	if t.node(id).HasChildren() {
		return
	}
	parent := *t.node(id)
	half := t.resolution(parent.Level + 1)
	first := NodeID(len(t.nodes))
	for i := 0; i < 8; i++ {
		off := octantOffset(i)
		t.nodes = append(t.nodes, Node{
			Anchor: Coord{
				X: parent.Anchor.X + off.X*half,
				Y: parent.Anchor.Y + off.Y*half,
				Z: parent.Anchor.Z + off.Z*half,
			},
			Level:    parent.Level + 1,
			Material: parent.Material,
		})
	}
	t.node(id).first = first
}

func (t *Tree) decimate(id NodeID, remaining int) {
	if remaining <= 1 {
		return
	}
	t.subdivide(id)
	first := t.node(id).first
	for i := NodeID(0); i < 8; i++ {
		t.decimate(first+i, remaining-1)
	}
}

func (t *Tree) clear(id NodeID) {
	n := t.node(id)
	n.Active = false
	if !n.HasChildren() {
		return
	}
	for i := NodeID(0); i < 8; i++ {
		t.clear(n.first + i)
	}
}

func (t *Tree) activeNodes(id NodeID, out []NodeRecord) []NodeRecord {
	n := t.node(id)
	if n.Active {
		out = append(out, recordOf(n))
	}
	if !n.HasChildren() {
		return out
	}
	for i := NodeID(0); i < 8; i++ {
		out = t.activeNodes(n.first+i, out)
	}
	return out
}

// apply overwrites the node addressed by rec. It reports whether rec
// resolved to a node.
func (t *Tree) apply(rec NodeRecord) bool {
	if rec.Level < 1 || rec.Level > t.levels {
		return false
	}
	id, ok := t.find(RootID, rec.Anchor, rec.Level)
	if !ok {
		return false
	}
	n := t.node(id)
	n.Active = rec.Active
	n.Material = rec.Material
	return true
}

// Face is one of the six axis-aligned faces of a block.
type Face int

const (
	FaceBottom Face = iota // -Y
	FaceTop                // +Y
	FaceLeft               // -X
	FaceRight              // +X
	FaceFront              // +Z
	FaceBack               // -Z
)

var faceDirs = [6]Coord{
	FaceBottom: {0, -1, 0},
	FaceTop:    {0, 1, 0},
	FaceLeft:   {-1, 0, 0},
	FaceRight:  {1, 0, 0},
	FaceFront:  {0, 0, 1},
	FaceBack:   {0, 0, -1},
}

func (f Face) String() string {
	switch f {
	case FaceBottom:
		return "bottom"
	case FaceTop:
		return "top"
	case FaceLeft:
		return "left"
	case FaceRight:
		return "right"
	case FaceFront:
		return "front"
	case FaceBack:
		return "back"
	}
	return "unknown"
}

// Occluded reports whether face f of node id is hidden by a same-level,
// active, uniform neighbor. Lookups always start at the root.
func (t *Tree) Occluded(id NodeID, f Face) bool {
	n := t.node(id)
	r := t.resolution(n.Level)
	d := faceDirs[f]
	at := Coord{X: n.Anchor.X + d.X*r, Y: n.Anchor.Y + d.Y*r, Z: n.Anchor.Z + d.Z*r}
	nb, ok := t.find(RootID, at, n.Level)
	if !ok {
		return false
	}
	other := t.node(nb)
	return other.Active && other.IsUniformWith(n)
}

func (t *Tree) BottomOccluded(id NodeID) bool { return t.Occluded(id, FaceBottom) }
func (t *Tree) TopOccluded(id NodeID) bool    { return t.Occluded(id, FaceTop) }
func (t *Tree) LeftOccluded(id NodeID) bool   { return t.Occluded(id, FaceLeft) }
func (t *Tree) RightOccluded(id NodeID) bool  { return t.Occluded(id, FaceRight) }
func (t *Tree) FrontOccluded(id NodeID) bool  { return t.Occluded(id, FaceFront) }
func (t *Tree) BackOccluded(id NodeID) bool   { return t.Occluded(id, FaceBack) }
