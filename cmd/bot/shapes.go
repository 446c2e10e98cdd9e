package main

import (
	"fmt"
	"strconv"
	"strings"
)

// buildShape returns the voxel coordinates of a shape centred on the origin,
// clipped to the volume [-rng, rng).
func buildShape(shape string, radius, rng int) ([][3]int, error) {
	if radius <= 0 {
		return nil, fmt.Errorf("radius must be > 0")
	}
	var keep func(x, y, z int) bool
	switch shape {
	case "sphere":
		r2 := radius * radius
		keep = func(x, y, z int) bool { return x*x+y*y+z*z < r2 }
	case "box":
		keep = func(x, y, z int) bool { return true }
	case "floor":
		keep = func(x, y, z int) bool { return y == -radius }
	default:
		return nil, fmt.Errorf("unknown shape %q", shape)
	}

	lo, hi := -radius, radius
	if lo < -rng {
		lo = -rng
	}
	if hi > rng {
		hi = rng
	}
	var out [][3]int
	for x := lo; x < hi; x++ {
		for y := lo; y < hi; y++ {
			for z := lo; z < hi; z++ {
				if keep(x, y, z) {
					out = append(out, [3]int{x, y, z})
				}
			}
		}
	}
	return out, nil
}

func chunk(coords [][3]int, n int) [][][3]int {
	if n <= 0 {
		n = len(coords)
	}
	var out [][][3]int
	for len(coords) > 0 {
		k := n
		if k > len(coords) {
			k = len(coords)
		}
		out = append(out, coords[:k])
		coords = coords[k:]
	}
	return out
}

func parseColor(s string) ([4]float32, error) {
	var c [4]float32
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return c, fmt.Errorf("want 4 components, got %d", len(parts))
	}
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
		if err != nil {
			return c, err
		}
		if f < 0 || f > 1 {
			return c, fmt.Errorf("component %d out of range: %v", i, f)
		}
		c[i] = float32(f)
	}
	return c, nil
}
