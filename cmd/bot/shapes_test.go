package main

import "testing"

func TestBuildShape(t *testing.T) {
	box, err := buildShape("box", 2, 64)
	if err != nil {
		t.Fatalf("box: %v", err)
	}
	if len(box) != 64 {
		t.Fatalf("box voxels=%d want 64", len(box))
	}

	// Clipped to the volume.
	clipped, _ := buildShape("box", 10, 2)
	if len(clipped) != 64 {
		t.Fatalf("clipped voxels=%d want 64", len(clipped))
	}
	for _, c := range clipped {
		for _, v := range c {
			if v < -2 || v >= 2 {
				t.Fatalf("coord %v outside volume", c)
			}
		}
	}

	sphere, _ := buildShape("sphere", 4, 64)
	if len(sphere) == 0 || len(sphere) >= 512 {
		t.Fatalf("sphere voxels=%d", len(sphere))
	}
	for _, c := range sphere {
		if c[0]*c[0]+c[1]*c[1]+c[2]*c[2] >= 16 {
			t.Fatalf("coord %v outside sphere", c)
		}
	}

	floor, _ := buildShape("floor", 3, 64)
	if len(floor) != 36 {
		t.Fatalf("floor voxels=%d want 36", len(floor))
	}

	if _, err := buildShape("torus", 3, 64); err == nil {
		t.Fatalf("expected error for unknown shape")
	}
	if _, err := buildShape("box", 0, 64); err == nil {
		t.Fatalf("expected error for zero radius")
	}
}

func TestChunk(t *testing.T) {
	coords := make([][3]int, 10)
	parts := chunk(coords, 4)
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[2]) != 2 {
		t.Fatalf("parts=%d", len(parts))
	}
	if got := chunk(coords, 0); len(got) != 1 {
		t.Fatalf("n=0 should yield one chunk, got %d", len(got))
	}
	if got := chunk(nil, 4); len(got) != 0 {
		t.Fatalf("empty input yielded %d chunks", len(got))
	}
}

func TestParseColor(t *testing.T) {
	c, err := parseColor("1, 0.5,0,1")
	if err != nil {
		t.Fatalf("parseColor: %v", err)
	}
	if c != [4]float32{1, 0.5, 0, 1} {
		t.Fatalf("color=%v", c)
	}
	for _, bad := range []string{"1,1,1", "a,b,c,d", "2,0,0,1"} {
		if _, err := parseColor(bad); err == nil {
			t.Fatalf("parseColor(%q) expected error", bad)
		}
	}
}
