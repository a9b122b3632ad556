package wire

import "strings"

const defaultRoomID = "public"

// sanitizeRoomID trims roomID, truncates it to its first 32 bytes, then keeps
// only [A-Za-z0-9_-] from those, and falls back to defaultRoomID on anything
// empty/invalid.
func sanitizeRoomID(roomID string) string {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return defaultRoomID
	}
	if len(roomID) > 32 {
		roomID = roomID[:32]
	}
	var b strings.Builder
	for _, ch := range roomID {
		if isRoomIDRune(ch) {
			b.WriteRune(ch)
		}
	}
	safe := b.String()
	if safe == "" {
		return defaultRoomID
	}
	return safe
}

func isRoomIDRune(ch rune) bool {
	switch {
	case ch >= 'a' && ch <= 'z':
		return true
	case ch >= 'A' && ch <= 'Z':
		return true
	case ch >= '0' && ch <= '9':
		return true
	case ch == '-' || ch == '_':
		return true
	default:
		return false
	}
}
