package treeroom

import (
	"testing"

	"pgregory.net/rapid"
)

// TestMoveConstraints_Apply_ScenarioBoundaryPush mirrors the boundary-push
// scenario: a player driven straight into the world edge at above-limit
// speed ends up clamped to the boundary with zero velocity on that axis.
func TestMoveConstraints_Apply_ScenarioBoundaryPush(t *testing.T) {
	c := MoveConstraints{MaxSpeed: 5, MinX: -10, MaxX: 10, MinZ: -10, MaxZ: 10}

	x, z, vx, vz, flags := c.Apply(15, 0, 20, 0)

	if x != 10 {
		t.Fatalf("x = %v, want 10", x)
	}
	if vx != 0 {
		t.Fatalf("vx = %v, want 0 (zeroed by position clamp)", vx)
	}
	if !flags.XClamped {
		t.Fatalf("flags.XClamped = false, want true")
	}
	if !flags.SpeedClamped {
		t.Fatalf("flags.SpeedClamped = false, want true (20 exceeds MaxSpeed 5)")
	}
	if z != 0 || vz != 0 {
		t.Fatalf("z/vz should be untouched: got z=%v vz=%v", z, vz)
	}
}

func TestMoveConstraints_Apply_Property_OutputsAlwaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := MoveConstraints{
			MaxSpeed: rapid.Float64Range(0, 20).Draw(rt, "max-speed"),
			MinX:     -rapid.Float64Range(0, 50).Draw(rt, "world-x"),
			MaxX:     rapid.Float64Range(0, 50).Draw(rt, "world-x2"),
			MinZ:     -rapid.Float64Range(0, 50).Draw(rt, "world-z"),
			MaxZ:     rapid.Float64Range(0, 50).Draw(rt, "world-z2"),
		}
		x := rapid.Float64Range(-1000, 1000).Draw(rt, "x")
		z := rapid.Float64Range(-1000, 1000).Draw(rt, "z")
		vx := rapid.Float64Range(-1000, 1000).Draw(rt, "vx")
		vz := rapid.Float64Range(-1000, 1000).Draw(rt, "vz")

		x2, z2, vx2, vz2, flags := c.Apply(x, z, vx, vz)

		if x2 < c.MinX || x2 > c.MaxX {
			rt.Fatalf("x2 = %v outside [%v, %v]", x2, c.MinX, c.MaxX)
		}
		if z2 < c.MinZ || z2 > c.MaxZ {
			rt.Fatalf("z2 = %v outside [%v, %v]", z2, c.MinZ, c.MaxZ)
		}
		if vx2 < -c.MaxSpeed-1e-9 || vx2 > c.MaxSpeed+1e-9 {
			rt.Fatalf("vx2 = %v outside +/-%v", vx2, c.MaxSpeed)
		}
		if vz2 < -c.MaxSpeed-1e-9 || vz2 > c.MaxSpeed+1e-9 {
			rt.Fatalf("vz2 = %v outside +/-%v", vz2, c.MaxSpeed)
		}
		if flags.XClamped && vx2 != 0 {
			rt.Fatalf("XClamped fired but vx2 = %v, want 0", vx2)
		}
		if flags.ZClamped && vz2 != 0 {
			rt.Fatalf("ZClamped fired but vz2 = %v, want 0", vz2)
		}
	})
}

func TestMoveConstraints_Apply_Idempotent(t *testing.T) {
	c := MoveConstraints{MaxSpeed: 3.5, MinX: -14, MaxX: 14, MinZ: -14, MaxZ: 14}

	x1, z1, vx1, vz1, _ := c.Apply(20, -20, 10, -10)
	x2, z2, vx2, vz2, _ := c.Apply(x1, z1, vx1, vz1)

	if x1 != x2 || z1 != z2 || vx1 != vx2 || vz1 != vz2 {
		t.Fatalf("Apply not idempotent: first=(%v,%v,%v,%v) second=(%v,%v,%v,%v)", x1, z1, vx1, vz1, x2, z2, vx2, vz2)
	}
}
