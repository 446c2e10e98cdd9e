package octree

import "fmt"

const (
	DefaultLevels = 8
	MinLevels     = 2
	MaxLevels     = 8
)

// Coord is a voxel coordinate. For a leaf it is the voxel itself; for any
// other node it is the minimum corner of the covered cube.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
	Z int `json:"z"`
}

func (c Coord) Add(o Coord) Coord { return Coord{c.X + o.X, c.Y + o.Y, c.Z + o.Z} }

func (c Coord) Array() [3]int { return [3]int{c.X, c.Y, c.Z} }

func CoordOf(a [3]int) Coord { return Coord{X: a[0], Y: a[1], Z: a[2]} }

// Vec3 is a world-space position (camera).
type Vec3 struct {
	X, Y, Z float32
}

// Material is the renderer-facing state carried by every node.
type Material struct {
	Color [4]float32 `json:"color"`
	Fluid uint8      `json:"fluid"`
	Noise uint8      `json:"noise"`
}

// Resolution is the edge length of a node at level in a tree of the given
// depth. Level 1 is the root.
func Resolution(levels, level int) int {
	if level < 1 || level > levels {
		panic(fmt.Sprintf("octree: level %d outside 1..%d", level, levels))
	}
	return 1 << (levels - level)
}

// Range bounds the addressable volume: -Range <= c < Range on every axis.
func Range(levels int) int {
	return (1 << (levels - 1)) / 2
}

func InRange(levels int, c Coord) bool {
	r := Range(levels)
	return c.X >= -r && c.X < r &&
		c.Y >= -r && c.Y < r &&
		c.Z >= -r && c.Z < r
}

// octantOffset maps a child index to its per-axis offset multiplier.
func octantOffset(i int) Coord {
	return Coord{X: i & 1, Y: (i >> 1) & 1, Z: (i >> 2) & 1}
}

func nodeCapacity(levels int) int {
	// 1 + 8 + 64 + ... + 8^(levels-1)
	return ((1 << (3 * levels)) - 1) / 7
}
