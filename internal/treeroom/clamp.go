// Package treeroom implements the authoritative per-room simulation: player
// kinematics, movement constraints, decorations, chat, and the tick loop
// that ties them together and broadcasts snapshots to connected clients.
package treeroom

import "math"

// Clamp returns v bounded to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// NormalizeAxis clamps each component to [-1, 1] and then rescales the pair
// so it never represents a magnitude greater than 1 — keeping diagonal
// input (e.g. forward+strafe) from moving faster than a single axis would.
func NormalizeAxis(ax, az float64) (float64, float64) {
	ax = Clamp(ax, -1.0, 1.0)
	az = Clamp(az, -1.0, 1.0)
	magSq := ax*ax + az*az
	if magSq <= 1.0 {
		return ax, az
	}
	mag := math.Sqrt(magSq)
	return ax / mag, az / mag
}
