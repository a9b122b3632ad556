package wire

import (
	"strings"
	"testing"

	"pgregory.net/rapid"
)

func TestSanitizeRoomID_EmptyFallsBackToDefault(t *testing.T) {
	if got := sanitizeRoomID(""); got != defaultRoomID {
		t.Fatalf("sanitizeRoomID(\"\") = %q, want %q", got, defaultRoomID)
	}
	if got := sanitizeRoomID("   "); got != defaultRoomID {
		t.Fatalf("sanitizeRoomID(whitespace) = %q, want %q", got, defaultRoomID)
	}
}

func TestSanitizeRoomID_StripsDisallowedRunes(t *testing.T) {
	got := sanitizeRoomID("room #1! <script>")
	if strings.ContainsAny(got, " #!<>") {
		t.Fatalf("sanitizeRoomID left disallowed runes: %q", got)
	}
}

func TestSanitizeRoomID_TruncatesTo32(t *testing.T) {
	got := sanitizeRoomID(strings.Repeat("a", 100))
	if len(got) != 32 {
		t.Fatalf("sanitizeRoomID length = %d, want 32", len(got))
	}
}

func TestSanitizeRoomID_AllDisallowedFallsBackToDefault(t *testing.T) {
	if got := sanitizeRoomID("###???"); got != defaultRoomID {
		t.Fatalf("sanitizeRoomID(all-disallowed) = %q, want %q", got, defaultRoomID)
	}
}

func TestSanitizeRoomID_Property_AlwaysValidAndBounded(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.String().Draw(rt, "raw")
		got := sanitizeRoomID(raw)

		if got == "" {
			rt.Fatalf("sanitizeRoomID(%q) returned empty string", raw)
		}
		if len(got) > 32 {
			rt.Fatalf("sanitizeRoomID(%q) = %q, longer than 32 bytes", raw, got)
		}
		for _, ch := range got {
			if !isRoomIDRune(ch) {
				rt.Fatalf("sanitizeRoomID(%q) = %q contains disallowed rune %q", raw, got, ch)
			}
		}
	})
}

func TestSanitizeRoomID_Idempotent(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		raw := rapid.String().Draw(rt, "raw")
		once := sanitizeRoomID(raw)
		twice := sanitizeRoomID(once)
		if once != twice {
			rt.Fatalf("sanitizeRoomID not idempotent: once=%q twice=%q", once, twice)
		}
	})
}
