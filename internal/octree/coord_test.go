package octree

import "testing"

func TestResolution(t *testing.T) {
	cases := []struct {
		levels, level, want int
	}{
		{8, 1, 128},
		{8, 8, 1},
		{8, 5, 8},
		{2, 1, 2},
		{2, 2, 1},
	}
	for _, tc := range cases {
		if got := Resolution(tc.levels, tc.level); got != tc.want {
			t.Fatalf("Resolution(%d,%d)=%d want %d", tc.levels, tc.level, got, tc.want)
		}
	}
}

func TestResolutionPanicsOutsideDepth(t *testing.T) {
	for _, level := range []int{0, 9} {
		func() {
			defer func() {
				if recover() == nil {
					t.Fatalf("expected panic for level %d", level)
				}
			}()
			Resolution(8, level)
		}()
	}
}

func TestRange(t *testing.T) {
	if got := Range(8); got != 64 {
		t.Fatalf("Range(8)=%d want 64", got)
	}
	if got := Range(2); got != 1 {
		t.Fatalf("Range(2)=%d want 1", got)
	}
	if !InRange(8, Coord{63, -64, 0}) {
		t.Fatalf("expected (63,-64,0) in range")
	}
	if InRange(8, Coord{64, 0, 0}) || InRange(8, Coord{0, -65, 0}) {
		t.Fatalf("expected out of range")
	}
}

func TestNodeCapacity(t *testing.T) {
	if got := nodeCapacity(2); got != 9 {
		t.Fatalf("nodeCapacity(2)=%d want 9", got)
	}
	if got := nodeCapacity(3); got != 73 {
		t.Fatalf("nodeCapacity(3)=%d want 73", got)
	}
}
