package treeroom

import (
	"math"
	"strings"
)

// DecorationType enumerates the ornaments a player may place on the tree.
type DecorationType string

const (
	DecorationBell    DecorationType = "bell"
	DecorationMiniHat DecorationType = "mini_hat"
	DecorationTinsel  DecorationType = "tinsel"
)

// IsValidDecorationType reports whether t is one of the accepted enum
// values.
func IsValidDecorationType(t string) bool {
	switch DecorationType(t) {
	case DecorationBell, DecorationMiniHat, DecorationTinsel:
		return true
	default:
		return false
	}
}

const (
	decorationMinHeight = 0.12
	decorationMaxHeight = 1.28
	tau                 = 2 * math.Pi
)

// NormalizeDecorationAngle reduces angle into [0, 2π).
func NormalizeDecorationAngle(angle float64) float64 {
	angle = math.Mod(angle, tau)
	if angle < 0 {
		angle += tau
	}
	if angle >= tau {
		angle = 0
	}
	return angle
}

// ClampDecorationHeight bounds height to the accepted slot range.
func ClampDecorationHeight(height float64) float64 {
	return Clamp(height, decorationMinHeight, decorationMaxHeight)
}

// PlayerKinematic is a player's authoritative physical state. Y is unused
// scenery height and always defaults to 0.
type PlayerKinematic struct {
	X   float64
	Y   float64
	Z   float64
	VX  float64
	VZ  float64
	Yaw float64
}

// PlayerCosmetic is a player's purely visual state.
type PlayerCosmetic struct {
	Hat bool
}

// CheatFlags is a player's anti-cheat telemetry plus the last-known input
// axis back-channel. Kept as a dedicated struct (rather than the loose
// string-keyed bag the original implementation used) per the reimplementation
// note in spec.md §9: the back-channel axis is a distinct field, and the
// telemetry booleans are named fields instead of a typed map.
type CheatFlags struct {
	SpeedClamped bool
	XClamped     bool
	ZClamped     bool
	RateLimited  bool
	LastAxisX    float64
	LastAxisZ    float64
}

// Merge folds constraint-clamp flags into the telemetry, leaving
// LastAxis and RateLimited untouched.
func (f *CheatFlags) Merge(c ConstraintFlags) {
	if c.SpeedClamped {
		f.SpeedClamped = true
	}
	if c.XClamped {
		f.XClamped = true
	}
	if c.ZClamped {
		f.ZClamped = true
	}
}

// PlayerRuntime is the authoritative, server-owned record for one connected
// player.
type PlayerRuntime struct {
	PlayerID              string
	Name                  string
	IP                    string
	Kin                   PlayerKinematic
	LastInputSeq          int64
	LastInputClientTimeMs int64
	CheatFlags            CheatFlags
	Cosmetic              PlayerCosmetic
	PlacedCount           int
}

// Decoration is one ornament placed on the shared tree.
type Decoration struct {
	DecoID    string
	DecoType  DecorationType
	Angle     float64
	Height    float64
	PlacedBy  string
	PlacedMs  int64
}

// DefaultName is used whenever a supplied player name is empty or invalid
// after sanitization.
const DefaultName = "游客"

// SanitizeName trims name, defaults empty/invalid input to DefaultName, and
// truncates to 16 runes. It is applied both at the connection boundary and
// inside the room itself (spec.md §9 Open Question: the room must not trust
// a caller to have already sanitized).
func SanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultName
	}
	runes := []rune(name)
	if len(runes) > 16 {
		runes = runes[:16]
	}
	return string(runes)
}
