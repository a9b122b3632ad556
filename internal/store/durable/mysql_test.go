package durable

import (
	"context"
	"testing"
)

// TestConnect_DisabledWithoutDSN verifies that an empty MYSQL_DSN yields a
// Store whose every method is a silent no-op, matching DurableStore's
// best-effort contract.
func TestConnect_DisabledWithoutDSN(t *testing.T) {
	ctx := context.Background()
	s, err := Connect(ctx, "", nil)
	if err != nil {
		t.Fatalf("Connect(\"\"): unexpected error %v", err)
	}
	if s.db != nil {
		t.Fatalf("Connect(\"\") produced a non-nil db")
	}

	s.UpsertRoomState(ctx, "room", []byte("{}"), 0)
	s.InsertChatMessage(ctx, "room", "p1", "Alice", "127.0.0.1", "hi", 0)
	s.DeleteChatHistory(ctx, "room")

	if _, ok := s.GetRoomState(ctx, "room"); ok {
		t.Fatalf("GetRoomState on a disabled store reported ok=true")
	}
}

func TestIsUnknownDatabaseError_MatchesByMessage(t *testing.T) {
	if !isUnknownDatabaseError(errMsg("Error 1049: Unknown database 'treeroom'")) {
		t.Fatalf("expected unknown-database message to match")
	}
	if isUnknownDatabaseError(errMsg("connection refused")) {
		t.Fatalf("unrelated error incorrectly matched as unknown-database")
	}
}

type errMsg string

func (e errMsg) Error() string { return string(e) }
