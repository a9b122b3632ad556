package treeroom

import (
	"math"
	"testing"

	"pgregory.net/rapid"
)

func TestClamp_Property_AlwaysWithinBounds(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.Float64Range(-1000, 1000).Draw(rt, "lo")
		hi := lo + rapid.Float64Range(0, 1000).Draw(rt, "span")
		v := rapid.Float64Range(-10000, 10000).Draw(rt, "v")

		got := Clamp(v, lo, hi)
		if got < lo || got > hi {
			rt.Fatalf("Clamp(%v, %v, %v) = %v, outside bounds", v, lo, hi, got)
		}
		if v >= lo && v <= hi && got != v {
			rt.Fatalf("Clamp(%v, %v, %v) = %v, want unchanged", v, lo, hi, got)
		}
	})
}

func TestNormalizeAxis_Property_MagnitudeNeverExceedsOne(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		ax := rapid.Float64Range(-10, 10).Draw(rt, "ax")
		az := rapid.Float64Range(-10, 10).Draw(rt, "az")

		nax, naz := NormalizeAxis(ax, az)
		mag := math.Hypot(nax, naz)
		if mag > 1.0+1e-9 {
			rt.Fatalf("NormalizeAxis(%v, %v) = (%v, %v), magnitude %v > 1", ax, az, nax, naz, mag)
		}
	})
}

func TestNormalizeAxis_SingleAxisUnclamped(t *testing.T) {
	nax, naz := NormalizeAxis(0.5, 0)
	if nax != 0.5 || naz != 0 {
		t.Fatalf("NormalizeAxis(0.5, 0) = (%v, %v), want (0.5, 0)", nax, naz)
	}
}

func TestNormalizeDecorationAngle_Property_WithinTau(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		angle := rapid.Float64Range(-1000, 1000).Draw(rt, "angle")
		got := NormalizeDecorationAngle(angle)
		if got < 0 || got >= tau {
			rt.Fatalf("NormalizeDecorationAngle(%v) = %v, outside [0, 2pi)", angle, got)
		}
	})
}

func TestClampDecorationHeight_Property_WithinSlotRange(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		height := rapid.Float64Range(-10, 10).Draw(rt, "height")
		got := ClampDecorationHeight(height)
		if got < decorationMinHeight || got > decorationMaxHeight {
			rt.Fatalf("ClampDecorationHeight(%v) = %v, outside slot range", height, got)
		}
	})
}
