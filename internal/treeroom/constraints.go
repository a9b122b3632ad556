package treeroom

// MoveConstraints bundles the world/physical bounds a player's kinematic
// state must respect. MaxAccel is carried here for the tick integrator's
// convenience even though Apply never consults it directly.
type MoveConstraints struct {
	MaxSpeed  float64
	MaxAccel  float64
	MinX      float64
	MaxX      float64
	MinZ      float64
	MaxZ      float64
}

// ConstraintFlags records which clamps fired during an Apply call, for
// merging into a player's cheat-flag telemetry.
type ConstraintFlags struct {
	SpeedClamped bool
	XClamped     bool
	ZClamped     bool
}

// Any reports whether at least one clamp fired.
func (f ConstraintFlags) Any() bool {
	return f.SpeedClamped || f.XClamped || f.ZClamped
}

// Apply clamps velocity to MaxSpeed and position to the world rectangle,
// zeroing the velocity component on any axis where the position clamp
// fired. It is a pure function: same inputs always produce the same
// outputs and flags.
func (c MoveConstraints) Apply(x, z, vx, vz float64) (x2, z2, vx2, vz2 float64, flags ConstraintFlags) {
	maxV := c.MaxSpeed
	if maxV < 0 {
		maxV = 0
	}
	vx2 = Clamp(vx, -maxV, maxV)
	vz2 = Clamp(vz, -maxV, maxV)
	if vx2 != vx || vz2 != vz {
		flags.SpeedClamped = true
	}

	x2 = Clamp(x, c.MinX, c.MaxX)
	z2 = Clamp(z, c.MinZ, c.MaxZ)
	if x2 != x {
		flags.XClamped = true
		vx2 = 0
	}
	if z2 != z {
		flags.ZClamped = true
		vz2 = 0
	}

	return x2, z2, vx2, vz2, flags
}
