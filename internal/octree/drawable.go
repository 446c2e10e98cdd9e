package octree

// Faces holds per-face occlusion flags. A true flag means the face is
// hidden and can be skipped by the mesh builder.
type Faces struct {
	Bottom bool `json:"bottom"`
	Top    bool `json:"top"`
	Left   bool `json:"left"`
	Right  bool `json:"right"`
	Front  bool `json:"front"`
	Back   bool `json:"back"`
}

func (f Faces) All() bool {
	return f.Bottom && f.Top && f.Left && f.Right && f.Front && f.Back
}

// Drawable describes one visible block.
type Drawable struct {
	Anchor   Coord      `json:"anchor"`
	Position [3]float32 `json:"position"` // block centre
	Scale    int        `json:"scale"`
	Color    [4]float32 `json:"color"`
	Fluid    uint8      `json:"fluid"`
	Noise    uint8      `json:"noise"`
	Faces    Faces      `json:"faces"`
}

func (t *Tree) drawable(id NodeID) Drawable {
	n := t.node(id)
	scale := t.resolution(n.Level)
	h := float32(scale) / 2
	return Drawable{
		Anchor: n.Anchor,
		Position: [3]float32{
			float32(n.Anchor.X) + h,
			float32(n.Anchor.Y) + h,
			float32(n.Anchor.Z) + h,
		},
		Scale: scale,
		Color: n.Material.Color,
		Fluid: n.Material.Fluid,
		Noise: n.Material.Noise,
		Faces: Faces{
			Bottom: t.BottomOccluded(id),
			Top:    t.TopOccluded(id),
			Left:   t.LeftOccluded(id),
			Right:  t.RightOccluded(id),
			Front:  t.FrontOccluded(id),
			Back:   t.BackOccluded(id),
		},
	}
}

// drawables emits an active node as a single block without visiting its
// children; inactive nodes are searched for active descendants.
func (t *Tree) drawables(id NodeID, out []Drawable) []Drawable {
	n := t.node(id)
	if n.Active {
		return append(out, t.drawable(id))
	}
	if !n.HasChildren() {
		return out
	}
	first := n.first
	for i := NodeID(0); i < 8; i++ {
		out = t.drawables(first+i, out)
	}
	return out
}
