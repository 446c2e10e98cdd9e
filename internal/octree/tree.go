package octree

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	snapv1 "voxeledit.ai/internal/persistence/snapshot"
)

var ErrDepthMismatch = errors.New("scene depth mismatch")

// NodeRecord is a flattened copy of one node's state.
type NodeRecord struct {
	Anchor   Coord    `json:"anchor"`
	Level    int      `json:"level"`
	Active   bool     `json:"active"`
	Material Material `json:"material"`
}

func recordOf(n *Node) NodeRecord {
	return NodeRecord{Anchor: n.Anchor, Level: n.Level, Active: n.Active, Material: n.Material}
}

// Tree is a fully materialized octree over a cube of edge 2^(levels-1)
// centred on the origin. It is not safe for concurrent use.
type Tree struct {
	name   string
	levels int
	nodes  []Node
	log    *zap.Logger
}

type Option func(*Tree)

func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) {
		if l != nil {
			t.log = l
		}
	}
}

func WithName(name string) Option {
	return func(t *Tree) { t.name = name }
}

// New builds a tree of the given depth. A depth outside
// [MinLevels, MaxLevels] is a programming error and panics.
func New(levels int, opts ...Option) *Tree {
	if levels < MinLevels || levels > MaxLevels {
		panic(fmt.Sprintf("octree: depth %d outside %d..%d", levels, MinLevels, MaxLevels))
	}
	t := &Tree{levels: levels, log: zap.NewNop()}
	for _, o := range opts {
		o(t)
	}
	t.Build()
	return t
}

// Build discards all nodes and grows a fresh tree down to leaf level.
func (t *Tree) Build() {
	r := Range(t.levels)
	t.nodes = make([]Node, 0, nodeCapacity(t.levels))
	t.nodes = append(t.nodes, Node{
		Anchor:   Coord{-r, -r, -r},
		Level:    1,
		Material: Material{Color: [4]float32{1, 1, 1, 1}},
	})
	t.decimate(RootID, t.levels)
}

func (t *Tree) Name() string        { return t.name }
func (t *Tree) SetName(name string) { t.name = name }
func (t *Tree) Levels() int         { return t.levels }
func (t *Tree) Range() int          { return Range(t.levels) }
func (t *Tree) NodeCount() int      { return len(t.nodes) }

// Find resolves the node anchored at c on the given level.
func (t *Tree) Find(c Coord, level int) (NodeID, bool) {
	return t.find(RootID, c, level)
}

// Node returns a copy of the node's state.
func (t *Tree) Node(id NodeID) Node { return *t.node(id) }

// Voxel returns the leaf at c.
func (t *Tree) Voxel(c Coord) (Node, bool) {
	id, ok := t.find(RootID, c, t.levels)
	if !ok {
		return Node{}, false
	}
	return *t.node(id), true
}

// ToggleVoxels sets the active flag and material of every leaf addressed by
// coords. Coordinates outside the volume are skipped. It returns the number
// of leaves written.
func (t *Tree) ToggleVoxels(coords []Coord, value bool, m Material) int {
	n := 0
	for _, c := range coords {
		id, ok := t.find(RootID, c, t.levels)
		if !ok {
			continue
		}
		leaf := t.node(id)
		leaf.Active = value
		leaf.Material = m
		n++
	}
	return n
}

// AllVoxelsActive reports false only if some addressed leaf exists and is
// inactive. Unresolvable coordinates are logged and ignored.
func (t *Tree) AllVoxelsActive(coords []Coord) bool {
	for _, c := range coords {
		id, ok := t.find(RootID, c, t.levels)
		if !ok {
			t.log.Debug("voxel query miss", zap.Int("x", c.X), zap.Int("y", c.Y), zap.Int("z", c.Z))
			continue
		}
		if !t.node(id).Active {
			return false
		}
	}
	return true
}

func (t *Tree) Clear() { t.clear(RootID) }

func (t *Tree) ActiveNodes() []NodeRecord { return t.activeNodes(RootID, nil) }

func (t *Tree) Drawables() []Drawable { return t.drawables(RootID, nil) }

// Optimize is the level-of-detail hook: collapsing uniform child groups
// near or far from the camera would happen here. It currently does nothing.
func (t *Tree) Optimize(camera Vec3) {}

// Apply overwrites the node addressed by rec and reports whether it exists.
func (t *Tree) Apply(rec NodeRecord) bool { return t.apply(rec) }

func (t *Tree) Snapshot() snapv1.SceneV1 {
	recs := t.ActiveNodes()
	nodes := make([]snapv1.NodeV1, 0, len(recs))
	for _, r := range recs {
		nodes = append(nodes, snapv1.NodeV1{
			Anchor: r.Anchor.Array(),
			Level:  r.Level,
			Active: r.Active,
			Color:  r.Material.Color,
			Fluid:  r.Material.Fluid,
			Noise:  r.Material.Noise,
		})
	}
	return snapv1.SceneV1{
		Header: snapv1.Header{
			Version: snapv1.Version,
			Name:    t.name,
			Levels:  t.levels,
		},
		Nodes: nodes,
	}
}

// Restore overlays a persisted scene onto this tree: everything is cleared,
// then every record is applied to the node it addresses. Records that do not
// resolve are skipped. It returns the number of records applied.
func (t *Tree) Restore(scene snapv1.SceneV1, camera Vec3) (int, error) {
	if scene.Header.Levels != 0 && scene.Header.Levels != t.levels {
		return 0, fmt.Errorf("%w: got %d want %d", ErrDepthMismatch, scene.Header.Levels, t.levels)
	}
	t.Clear()
	t.name = scene.Header.Name
	applied := 0
	for _, n := range scene.Nodes {
		rec := NodeRecord{
			Anchor: CoordOf(n.Anchor),
			Level:  n.Level,
			Active: n.Active,
			Material: Material{
				Color: n.Color,
				Fluid: n.Fluid,
				Noise: n.Noise,
			},
		}
		if t.apply(rec) {
			applied++
		}
	}
	if skipped := len(scene.Nodes) - applied; skipped > 0 {
		t.log.Warn("restore skipped unresolvable records", zap.String("scene", t.name), zap.Int("skipped", skipped))
	}
	t.Optimize(camera)
	return applied, nil
}
